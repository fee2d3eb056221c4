package plan

import (
	"fmt"
	"strings"
)

// KeyField is the store-side field name of an entity's identity.
const KeyField = "__key__"

// Operator is a filter comparison operator.
type Operator string

const (
	Equal              Operator = "EQUAL"
	LessThan           Operator = "LESS_THAN"
	LessThanOrEqual    Operator = "LESS_THAN_OR_EQUAL"
	GreaterThan        Operator = "GREATER_THAN"
	GreaterThanOrEqual Operator = "GREATER_THAN_OR_EQUAL"
	NotEqual           Operator = "NOT_EQUAL"
	In                 Operator = "IN"
)

// Operators lists every operator in declaration order.
var Operators = []Operator{Equal, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual, NotEqual, In}

var operatorSymbols = map[Operator]string{
	Equal:              "==",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	NotEqual:           "!=",
	In:                 "in",
}

// Symbol returns the infix symbol for the operator ("==", "<", "in", ...).
func (o Operator) Symbol() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return string(o)
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	_, ok := operatorSymbols[o]
	return ok
}

// IsInequality reports whether o restricts a range rather than a point.
// NOT_EQUAL counts: stores implement it as (< v) OR (> v).
func (o Operator) IsInequality() bool {
	switch o {
	case LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual, NotEqual:
		return true
	default:
		return false
	}
}

// ParseOperator accepts an operator name (EQUAL, less_than, ...) or symbol
// (=, ==, <, <=, >, >=, !=, in).
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "==", "equal", "eq":
		return Equal, nil
	case "<", "less_than", "lt":
		return LessThan, nil
	case "<=", "less_than_or_equal", "lte":
		return LessThanOrEqual, nil
	case ">", "greater_than", "gt":
		return GreaterThan, nil
	case ">=", "greater_than_or_equal", "gte":
		return GreaterThanOrEqual, nil
	case "!=", "<>", "not_equal", "ne":
		return NotEqual, nil
	case "in":
		return In, nil
	default:
		return "", fmt.Errorf("unknown operator %q", s)
	}
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ASCENDING"
	Descending Direction = "DESCENDING"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}

// ParseDirection accepts asc, ascending, desc or descending in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
}

// Filter is a single field/operator/value predicate.
//
// For IN the value is a list ([]any or any slice type); every other
// operator takes a scalar of a supported ir.Kind.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// IsKey reports whether the filter targets the entity identity.
func (f Filter) IsKey() bool {
	return f.Field == KeyField
}

// Sort orders results by one field.
type Sort struct {
	Field     string
	Direction Direction
}
