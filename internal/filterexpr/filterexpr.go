// Package filterexpr parses textual constraints and sort specs.
//
// Constraints are CUE expressions of the form <field> <op> <value>, joined
// with &&:
//
//	age >= 18 && name == "foo"
//	status == ["active", "pending"]      list on the right means IN
//	created < time("2024-01-01T00:00:00Z")
//	owner == key("User", "7")
//	blob == 'raw bytes'                  bytes literal
//	digest == base64("AAE=")
//
// Sorts are "field" or "field:asc|desc".
package filterexpr

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/literal"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/plan"
	"github.com/roach88/querystore/internal/query"
)

// Clause is one parsed comparison.
type Clause struct {
	Field string
	Op    plan.Operator
	Value any
}

var comparisonOps = map[token.Token]plan.Operator{
	token.EQL: plan.Equal,
	token.NEQ: plan.NotEqual,
	token.LSS: plan.LessThan,
	token.LEQ: plan.LessThanOrEqual,
	token.GTR: plan.GreaterThan,
	token.GEQ: plan.GreaterThanOrEqual,
}

// Parse parses a conjunction of comparisons.
func Parse(expr string) ([]Clause, error) {
	node, err := parser.ParseExpr("constraint", expr)
	if err != nil {
		return nil, fmt.Errorf("parse constraint %s: %w", expr, err)
	}

	var clauses []Clause
	if err := collect(node, &clauses); err != nil {
		return nil, fmt.Errorf("parse constraint %s: %w", expr, err)
	}
	return clauses, nil
}

// ParseConstraints parses each expression and folds the clauses into a
// constraint set in the order written. A field may be constrained once.
func ParseConstraints(exprs ...string) (*query.Constraints, error) {
	c := query.NewConstraints()
	for _, expr := range exprs {
		clauses, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		for _, cl := range clauses {
			if _, dup := c.Get(cl.Field); dup {
				return nil, fmt.Errorf("parse constraint %s: field %q constrained more than once", expr, cl.Field)
			}
			c.Set(cl.Field, cl.Op, cl.Value)
		}
	}
	return c, nil
}

func collect(node ast.Expr, out *[]Clause) error {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return collect(n.X, out)
	case *ast.BinaryExpr:
		if n.Op == token.LAND {
			if err := collect(n.X, out); err != nil {
				return err
			}
			return collect(n.Y, out)
		}
		cl, err := comparison(n)
		if err != nil {
			return err
		}
		*out = append(*out, cl)
		return nil
	default:
		return fmt.Errorf("expected a comparison, got %T", node)
	}
}

func comparison(n *ast.BinaryExpr) (Clause, error) {
	op, ok := comparisonOps[n.Op]
	if !ok {
		return Clause{}, fmt.Errorf("unsupported operator %s", n.Op)
	}

	field, err := fieldName(n.X)
	if err != nil {
		return Clause{}, err
	}

	if list, ok := n.Y.(*ast.ListLit); ok {
		if op != plan.Equal {
			return Clause{}, fmt.Errorf("field %s: a list needs ==, got %s", field, n.Op)
		}
		values := make([]any, len(list.Elts))
		for i, elt := range list.Elts {
			v, err := value(elt)
			if err != nil {
				return Clause{}, fmt.Errorf("field %s: element %d: %w", field, i, err)
			}
			values[i] = v
		}
		return Clause{Field: field, Op: plan.In, Value: values}, nil
	}

	v, err := value(n.Y)
	if err != nil {
		return Clause{}, fmt.Errorf("field %s: %w", field, err)
	}
	return Clause{Field: field, Op: op, Value: v}, nil
}

func fieldName(x ast.Expr) (string, error) {
	switch n := x.(type) {
	case *ast.Ident:
		return n.Name, nil
	case *ast.BasicLit:
		if n.Kind == token.STRING && !isBytes(n.Value) {
			return literal.Unquote(n.Value)
		}
	}
	return "", fmt.Errorf("left side must be a field name, got %T", x)
}

func value(x ast.Expr) (any, error) {
	switch n := x.(type) {
	case *ast.ParenExpr:
		return value(n.X)
	case *ast.BasicLit:
		return basicValue(n, false)
	case *ast.UnaryExpr:
		lit, ok := n.X.(*ast.BasicLit)
		if n.Op != token.SUB || !ok || (lit.Kind != token.INT && lit.Kind != token.FLOAT) {
			return nil, fmt.Errorf("unsupported unary expression %s", n.Op)
		}
		return basicValue(lit, true)
	case *ast.CallExpr:
		return call(n)
	default:
		return nil, fmt.Errorf("unsupported value expression %T", x)
	}
}

func basicValue(lit *ast.BasicLit, negate bool) (any, error) {
	switch lit.Kind {
	case token.INT:
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("integer %s: %w", lit.Value, err)
		}
		if negate {
			n = -n
		}
		return n, nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(strings.ReplaceAll(lit.Value, "_", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("float %s: %w", lit.Value, err)
		}
		if negate {
			f = -f
		}
		return f, nil
	case token.STRING:
		s, err := literal.Unquote(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("string %s: %w", lit.Value, err)
		}
		if isBytes(lit.Value) {
			return []byte(s), nil
		}
		return s, nil
	case token.TRUE:
		return true, nil
	case token.FALSE:
		return false, nil
	default:
		return nil, fmt.Errorf("unsupported literal %s", lit.Value)
	}
}

func isBytes(raw string) bool {
	return strings.HasPrefix(strings.TrimLeft(raw, "#"), "'")
}

func call(n *ast.CallExpr) (any, error) {
	fn, ok := n.Fun.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("unsupported call target %T", n.Fun)
	}

	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		lit, ok := a.(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return nil, fmt.Errorf("%s: argument %d must be a string", fn.Name, i+1)
		}
		s, err := literal.Unquote(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn.Name, i+1, err)
		}
		args[i] = s
	}

	switch fn.Name {
	case "time":
		if len(args) != 1 {
			return nil, fmt.Errorf("time takes 1 argument, got %d", len(args))
		}
		t, err := time.Parse(time.RFC3339Nano, args[0])
		if err != nil {
			return nil, fmt.Errorf("time: %w", err)
		}
		return t, nil
	case "key":
		if len(args) != 2 {
			return nil, fmt.Errorf("key takes 2 arguments, got %d", len(args))
		}
		if args[0] == "" {
			return nil, fmt.Errorf("key: kind must not be empty")
		}
		return ir.NewKey(args[0], args[1]), nil
	case "base64":
		if len(args) != 1 {
			return nil, fmt.Errorf("base64 takes 1 argument, got %d", len(args))
		}
		b, err := base64.StdEncoding.DecodeString(args[0])
		if err != nil {
			return nil, fmt.Errorf("base64: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown function %s", fn.Name)
	}
}

// ParseSort parses "field", "field:asc" or "field:desc".
func ParseSort(spec string) (string, plan.Direction, error) {
	field, dir, hasDir := strings.Cut(strings.TrimSpace(spec), ":")
	field = strings.TrimSpace(field)
	if field == "" {
		return "", "", fmt.Errorf("parse sort %q: empty field", spec)
	}
	if !hasDir {
		return field, plan.Ascending, nil
	}
	d, err := plan.ParseDirection(dir)
	if err != nil {
		return "", "", fmt.Errorf("parse sort %q: %w", spec, err)
	}
	return field, d, nil
}

// ParseSorts parses each spec into a sort set in the order given.
func ParseSorts(specs ...string) (*query.Sorts, error) {
	s := query.NewSorts()
	for _, spec := range specs {
		field, dir, err := ParseSort(spec)
		if err != nil {
			return nil, err
		}
		s.Set(field, dir)
	}
	return s, nil
}
