package query

import (
	"iter"
	"slices"

	"github.com/roach88/querystore/internal/plan"
)

// Constraint is the operator and comparison value for one field.
type Constraint struct {
	Op    plan.Operator
	Value any
}

// Constraints is an insertion-ordered set of field constraints.
//
// A nil *Constraints means "absent" and is rejected by Validate and Build;
// use NewConstraints() for "no constraints".
type Constraints struct {
	fields  []string
	byField map[string]Constraint
}

// NewConstraints returns an empty constraint set.
func NewConstraints() *Constraints {
	return &Constraints{byField: make(map[string]Constraint)}
}

// ConstraintsFromMap builds a set from a map, ordering fields lexically so
// the resulting plan is reproducible across runs.
func ConstraintsFromMap(m map[string]Constraint) *Constraints {
	c := NewConstraints()
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	for _, f := range fields {
		c.Set(f, m[f].Op, m[f].Value)
	}
	return c
}

// Set adds or replaces the constraint on field. A replaced field keeps its
// original position. Returns c for chaining.
func (c *Constraints) Set(field string, op plan.Operator, value any) *Constraints {
	if c.byField == nil {
		c.byField = make(map[string]Constraint)
	}
	if _, exists := c.byField[field]; !exists {
		c.fields = append(c.fields, field)
	}
	c.byField[field] = Constraint{Op: op, Value: value}
	return c
}

// Get returns the constraint on field.
func (c *Constraints) Get(field string) (Constraint, bool) {
	if c == nil {
		return Constraint{}, false
	}
	con, ok := c.byField[field]
	return con, ok
}

// Len returns the number of constrained fields. Nil-safe.
func (c *Constraints) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fields)
}

// Fields returns the constrained field names in insertion order.
func (c *Constraints) Fields() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.fields)
}

// All iterates fields and constraints in insertion order.
func (c *Constraints) All() iter.Seq2[string, Constraint] {
	return func(yield func(string, Constraint) bool) {
		if c == nil {
			return
		}
		for _, f := range c.fields {
			if !yield(f, c.byField[f]) {
				return
			}
		}
	}
}

// Clone returns an independent copy. Values themselves are not deep-copied.
func (c *Constraints) Clone() *Constraints {
	if c == nil {
		return nil
	}
	out := NewConstraints()
	for f, con := range c.All() {
		out.Set(f, con.Op, con.Value)
	}
	return out
}

// Sorts is an insertion-ordered set of sort directives.
//
// A nil *Sorts means "absent"; use NewSorts() for "no ordering".
type Sorts struct {
	fields  []string
	byField map[string]plan.Direction
}

// NewSorts returns an empty sort set.
func NewSorts() *Sorts {
	return &Sorts{byField: make(map[string]plan.Direction)}
}

// SortsFromMap builds a set from a map, ordering fields lexically.
func SortsFromMap(m map[string]plan.Direction) *Sorts {
	s := NewSorts()
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	for _, f := range fields {
		s.Set(f, m[f])
	}
	return s
}

// Set adds or replaces the direction for field. Returns s for chaining.
func (s *Sorts) Set(field string, dir plan.Direction) *Sorts {
	if s.byField == nil {
		s.byField = make(map[string]plan.Direction)
	}
	if _, exists := s.byField[field]; !exists {
		s.fields = append(s.fields, field)
	}
	s.byField[field] = dir
	return s
}

// Get returns the direction for field.
func (s *Sorts) Get(field string) (plan.Direction, bool) {
	if s == nil {
		return "", false
	}
	d, ok := s.byField[field]
	return d, ok
}

// Delete removes field from the set.
func (s *Sorts) Delete(field string) {
	if _, ok := s.byField[field]; !ok {
		return
	}
	delete(s.byField, field)
	s.fields = slices.DeleteFunc(s.fields, func(f string) bool { return f == field })
}

// Len returns the number of directives. Nil-safe.
func (s *Sorts) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// Fields returns the sorted field names in insertion order.
func (s *Sorts) Fields() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.fields)
}

// All iterates fields and directions in insertion order.
func (s *Sorts) All() iter.Seq2[string, plan.Direction] {
	return func(yield func(string, plan.Direction) bool) {
		if s == nil {
			return
		}
		for _, f := range s.fields {
			if !yield(f, s.byField[f]) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (s *Sorts) Clone() *Sorts {
	if s == nil {
		return nil
	}
	out := NewSorts()
	for f, d := range s.All() {
		out.Set(f, d)
	}
	return out
}
