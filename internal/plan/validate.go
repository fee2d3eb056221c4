package plan

import (
	"fmt"

	"github.com/roach88/querystore/internal/ir"
)

// ValidationResult contains the portability analysis of a plan.
//
// A portable plan can be served by a datastore-style index planner as well
// as by the SQLite store. Non-portable plans still execute here.
type ValidationResult struct {
	// IsPortable is true when no warnings were raised.
	IsPortable bool

	// Warnings lists the non-portable features used, in discovery order.
	Warnings []string
}

// Validate checks a plan against datastore index-planner rules:
//  1. Inequality filters restrict at most one property
//  2. With an inequality, the first sort is on that property
//  3. IN lists are non-empty
//  4. Every filter and sort names a field, and a field is sorted once
//
// Validate is a pure function with no side effects.
func Validate(p Plan) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validate(p)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validate(p Plan) {
	if p.kind == "" {
		v.addWarning("empty kind - every plan must select from a kind")
	}

	inequality := ""
	for _, f := range p.filters {
		if f.Field == "" {
			v.addWarning("filter with empty field name")
			continue
		}
		if !f.Op.Valid() {
			v.addWarning("field '%s' uses unknown operator %q", f.Field, f.Op)
			continue
		}
		if f.Op == In {
			v.validateIn(f)
		}
		if f.Op.IsInequality() {
			switch {
			case inequality == "":
				inequality = f.Field
			case inequality != f.Field:
				v.addWarning("inequality filters on '%s' and '%s' - only one property may carry inequalities",
					inequality, f.Field)
			}
		}
	}

	seen := make(map[string]bool, len(p.sorts))
	for _, s := range p.sorts {
		if s.Field == "" {
			v.addWarning("sort with empty field name")
			continue
		}
		if seen[s.Field] {
			v.addWarning("field '%s' is sorted more than once", s.Field)
		}
		seen[s.Field] = true
	}

	if inequality != "" && len(p.sorts) > 0 && p.sorts[0].Field != inequality {
		v.addWarning("first sort is on '%s' but inequality filter is on '%s' - the inequality property must be sorted first",
			p.sorts[0].Field, inequality)
	}
}

func (v *validator) validateIn(f Filter) {
	elems, err := ir.ListElems(f.Value)
	if err != nil {
		v.addWarning("field '%s' uses IN with a non-list value", f.Field)
		return
	}
	if len(elems) == 0 {
		v.addWarning("field '%s' uses IN with an empty list - matches nothing", f.Field)
	}
}
