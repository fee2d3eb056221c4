package plan

import (
	"encoding/base64"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/querystore/internal/ir"
)

// Plan is an immutable query against a single kind.
//
// The zero value is a plan with an empty kind; use New.
type Plan struct {
	kind     string
	filters  []Filter
	sorts    []Sort
	keysOnly bool
}

// New returns a plan selecting every entity of kind, unordered.
func New(kind string) Plan {
	return Plan{kind: kind}
}

// WithFilter returns a copy of p with f conjoined after the existing filters.
func (p Plan) WithFilter(f Filter) Plan {
	// Clip forces append to allocate, so p's backing array is never shared
	p.filters = append(slices.Clip(p.filters), f)
	return p
}

// WithSort returns a copy of p with s applied after the existing sorts.
func (p Plan) WithSort(s Sort) Plan {
	p.sorts = append(slices.Clip(p.sorts), s)
	return p
}

// KeysOnly returns a copy of p that retrieves identities only.
func (p Plan) KeysOnly() Plan {
	p.keysOnly = true
	return p
}

// Kind returns the collection the plan selects from.
func (p Plan) Kind() string {
	return p.kind
}

// Filters returns a copy of the filters in evaluation order.
func (p Plan) Filters() []Filter {
	return slices.Clone(p.filters)
}

// Sorts returns a copy of the sort directives in application order.
func (p Plan) Sorts() []Sort {
	return slices.Clone(p.sorts)
}

// IsKeysOnly reports whether the plan retrieves identities only.
func (p Plan) IsKeysOnly() bool {
	return p.keysOnly
}

// Describe returns a JSON-native description of the plan, with filter
// values in their storage encoding. Used for fingerprints and explain output.
func (p Plan) Describe() (map[string]any, error) {
	filters := make([]any, 0, len(p.filters))
	for i, f := range p.filters {
		v, err := describeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter[%d] %s: %w", i, f.Field, err)
		}
		filters = append(filters, map[string]any{
			"field": f.Field,
			"op":    string(f.Op),
			"value": v,
		})
	}

	sorts := make([]any, 0, len(p.sorts))
	for _, s := range p.sorts {
		sorts = append(sorts, map[string]any{
			"field":     s.Field,
			"direction": string(s.Direction),
		})
	}

	return map[string]any{
		"kind":      p.kind,
		"filters":   filters,
		"sorts":     sorts,
		"keys_only": p.keysOnly,
	}, nil
}

func describeValue(v any) (any, error) {
	if ir.IsList(v) {
		elems, err := ir.ListElems(v)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			enc, err := ir.EncodeValue(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = enc
		}
		return out, nil
	}
	return ir.EncodeValue(v)
}

// Fingerprint returns a stable content hash of the plan.
// Two plans built from value-equal inputs share a fingerprint.
func (p Plan) Fingerprint() (string, error) {
	desc, err := p.Describe()
	if err != nil {
		return "", err
	}
	return ir.Fingerprint(ir.DomainPlan, desc)
}

// String renders the plan for humans, e.g.
//
//	SELECT * FROM Widget WHERE name == "foo" AND age > 3 ORDER BY age DESC
func (p Plan) String() string {
	var b strings.Builder
	if p.keysOnly {
		b.WriteString("SELECT " + KeyField)
	} else {
		b.WriteString("SELECT *")
	}
	b.WriteString(" FROM " + p.kind)

	for i, f := range p.filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s %s %s", f.Field, f.Op.Symbol(), FormatValue(f.Value))
	}

	for i, s := range p.sorts {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		dir := "ASC"
		if s.Direction == Descending {
			dir = "DESC"
		}
		b.WriteString(s.Field + " " + dir)
	}
	return b.String()
}

// FormatValue renders a filter value in the textual constraint syntax
// (see package filterexpr), so explain output can be pasted back.
func FormatValue(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case ir.Key:
		return fmt.Sprintf("key(%q, %q)", val.Kind, val.Name)
	case time.Time:
		return fmt.Sprintf("time(%q)", val.UTC().Format(time.RFC3339Nano))
	case []byte:
		return fmt.Sprintf("base64(%q)", base64.StdEncoding.EncodeToString(val))
	}
	if ir.IsList(v) {
		elems, _ := ir.ListElems(v)
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}
