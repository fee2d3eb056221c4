package query

import (
	"fmt"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/plan"
)

// Validate checks every constraint against the supported value kinds.
//
// It returns c unchanged on success. The first offending field stops
// validation with an INVALID_ARGUMENT error naming the field and the Go type
// of the value. A nil set is itself invalid.
func Validate(c *Constraints) (*Constraints, error) {
	if c == nil {
		return nil, NewInvalidArgument("", "constraints must not be nil")
	}
	for field, con := range c.All() {
		if err := validateConstraint(field, con); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func validateConstraint(field string, con Constraint) error {
	if field == "" {
		return NewInvalidArgument(field, "constraint field must not be empty")
	}
	if !con.Op.Valid() {
		return NewInvalidArgument(field, "unknown operator %q", string(con.Op))
	}

	if con.Op == plan.In {
		if !ir.IsList(con.Value) {
			return NewInvalidArgument(field, "operator IN requires a list, got %s", ir.TypeName(con.Value))
		}
		elems, err := ir.ListElems(con.Value)
		if err != nil {
			return NewInvalidArgument(field, "%v", err)
		}
		for i, elem := range elems {
			if err := validateScalar(field, elem); err != nil {
				err.Message = fmt.Sprintf("element %d: %s", i, err.Message)
				return err
			}
		}
		return nil
	}

	if ir.IsList(con.Value) {
		return NewInvalidArgument(field, "operator %s does not accept a list (%s)", con.Op, ir.TypeName(con.Value))
	}
	if err := validateScalar(field, con.Value); err != nil {
		return err
	}
	return nil
}

func validateScalar(field string, v any) *Error {
	if _, ok := ir.KindOf(v); !ok {
		return NewInvalidArgument(field, "unsupported value type %s", ir.TypeName(v))
	}
	if _, err := ir.EncodeValue(v); err != nil {
		e := NewInvalidArgument(field, "unencodable value")
		e.Err = err
		return e
	}
	return nil
}
