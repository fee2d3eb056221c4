package query

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/plan"
)

// IdentityField is the pseudo-field that addresses an entity's key rather
// than one of its stored properties.
const IdentityField = "_id"

type buildConfig struct {
	dropUnmatchedSorts bool
	keysOnly           bool
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// DropUnmatchedSorts discards sort directives whose field has no
// constraint. Only applies when constraints are non-empty.
func DropUnmatchedSorts() BuildOption {
	return func(c *buildConfig) { c.dropUnmatchedSorts = true }
}

// KeysOnlyPlan marks the resulting plan as keys-only.
func KeysOnlyPlan() BuildOption {
	return func(c *buildConfig) { c.keysOnly = true }
}

// Build folds constraints and sorts into an immutable plan for kind.
//
// Neither input is modified. Both must be non-nil; pass NewConstraints() or
// NewSorts() for "none".
func Build(kind string, constraints *Constraints, sorts *Sorts, opts ...BuildOption) (plan.Plan, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if kind == "" {
		return plan.Plan{}, NewInvalidArgument("", "kind must not be empty")
	}
	if sorts == nil {
		return plan.Plan{}, NewInvalidArgument("", "sorts must not be nil")
	}
	if _, err := Validate(constraints); err != nil {
		var qe *Error
		if errors.As(err, &qe) {
			qe.Kind = kind
		}
		return plan.Plan{}, err
	}

	p := plan.New(kind)
	if cfg.keysOnly {
		p = p.KeysOnly()
	}

	if constraints.Len() == 0 {
		for field, dir := range sorts.All() {
			p = p.WithSort(sortFor(field, dir))
		}
		return p, nil
	}

	working := sorts.Clone()
	for field, con := range constraints.All() {
		f, err := filterFor(kind, field, con)
		if err != nil {
			return plan.Plan{}, err
		}
		p = p.WithFilter(f)

		if dir, ok := working.Get(field); ok {
			p = p.WithSort(sortFor(field, dir))
			working.Delete(field)
		}
	}

	if !cfg.dropUnmatchedSorts {
		for field, dir := range working.All() {
			p = p.WithSort(sortFor(field, dir))
		}
	}
	return p, nil
}

func filterFor(kind, field string, con Constraint) (plan.Filter, error) {
	if field != IdentityField {
		value, err := detach(con.Op, con.Value)
		if err != nil {
			return plan.Filter{}, NewInvalidArgument(field, "%v", err)
		}
		return plan.Filter{Field: field, Op: con.Op, Value: value}, nil
	}

	if con.Op != plan.In {
		return plan.Filter{Field: plan.KeyField, Op: con.Op, Value: keyFor(kind, con.Value)}, nil
	}

	elems, err := ir.ListElems(con.Value)
	if err != nil {
		return plan.Filter{}, NewInvalidArgument(field, "%v", err)
	}
	keys := make([]any, len(elems))
	for i, elem := range elems {
		keys[i] = keyFor(kind, elem)
	}
	return plan.Filter{Field: plan.KeyField, Op: plan.In, Value: keys}, nil
}

// detach copies v so later changes to the caller's slices cannot reach the
// plan.
func detach(op plan.Operator, v any) (any, error) {
	if op != plan.In {
		return cloneScalar(v), nil
	}
	elems, err := ir.ListElems(v)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(elems))
	for i, elem := range elems {
		out[i] = cloneScalar(elem)
	}
	return out, nil
}

func cloneScalar(v any) any {
	if b, ok := v.([]byte); ok {
		return bytes.Clone(b)
	}
	return v
}

func keyFor(kind string, v any) ir.Key {
	switch val := v.(type) {
	case ir.Key:
		return val
	case []byte:
		return ir.NewKey(kind, string(val))
	default:
		return ir.NewKey(kind, fmt.Sprint(val))
	}
}

func sortFor(field string, dir plan.Direction) plan.Sort {
	if field == IdentityField {
		field = plan.KeyField
	}
	return plan.Sort{Field: field, Direction: dir}
}
