package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/plan"
)

// DefaultTable is the entity table created by the store schema.
const DefaultTable = "entities"

// SQLCompiler compiles plans to parameterized SQL for SQLite.
//
// Every query is scoped with kind = ?, and every row query ends with the
// key COLLATE BINARY ASC tiebreaker so equal sort values come back in a
// stable order. Values and JSON paths are always bound as parameters.
type SQLCompiler struct {
	// Table is the entity table name. It is trusted and interpolated.
	Table string
}

// NewSQLCompiler creates a compiler for DefaultTable.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: DefaultTable}
}

// Compile converts p to a row query using the default table.
func Compile(p plan.Plan) (string, []any, error) {
	return NewSQLCompiler().Compile(p)
}

// CompileCount converts p to a COUNT query using the default table.
func CompileCount(p plan.Plan) (string, []any, error) {
	return NewSQLCompiler().CompileCount(p)
}

// Compile converts p to parameterized SQL.
//
// Full-entity plans select key, props, types. Keys-only plans select key.
func (c *SQLCompiler) Compile(p plan.Plan) (string, []any, error) {
	if p.Kind() == "" {
		return "", nil, fmt.Errorf("cannot compile plan without kind")
	}

	columns := "key, props, types"
	if p.IsKeysOnly() {
		columns = "key"
	}

	where, params, err := c.compileWhere(p)
	if err != nil {
		return "", nil, err
	}

	orderBy, orderParams, err := c.compileOrderBy(p.Sorts())
	if err != nil {
		return "", nil, err
	}
	params = append(params, orderParams...)

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s", columns, c.Table, where, orderBy)
	return sql, params, nil
}

// CompileCount converts p to a query returning the number of matches.
// Sorts do not affect the count and are left out.
func (c *SQLCompiler) CompileCount(p plan.Plan) (string, []any, error) {
	if p.Kind() == "" {
		return "", nil, fmt.Errorf("cannot compile plan without kind")
	}
	where, params, err := c.compileWhere(p)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", c.Table, where)
	return sql, params, nil
}

func (c *SQLCompiler) compileWhere(p plan.Plan) (string, []any, error) {
	parts := []string{"kind = ?"}
	params := []any{p.Kind()}

	for _, f := range p.Filters() {
		sql, fp, err := compileFilter(f)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter on %q: %w", f.Field, err)
		}
		parts = append(parts, sql)
		params = append(params, fp...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func (c *SQLCompiler) compileOrderBy(sorts []plan.Sort) (string, []any, error) {
	var parts []string
	var params []any

	for _, s := range sorts {
		expr, ep, err := fieldExpr(s.Field)
		if err != nil {
			return "", nil, fmt.Errorf("compile sort on %q: %w", s.Field, err)
		}
		dir := "ASC"
		switch s.Direction {
		case plan.Ascending:
		case plan.Descending:
			dir = "DESC"
		default:
			return "", nil, fmt.Errorf("unknown sort direction %q", string(s.Direction))
		}
		parts = append(parts, expr+" "+dir)
		params = append(params, ep...)
	}

	parts = append(parts, "key COLLATE BINARY ASC")
	return strings.Join(parts, ", "), params, nil
}

func compileFilter(f plan.Filter) (string, []any, error) {
	expr, params, err := fieldExpr(f.Field)
	if err != nil {
		return "", nil, err
	}

	if f.Op == plan.In {
		elems, err := ir.ListElems(f.Value)
		if err != nil {
			return "", nil, err
		}
		if len(elems) == 0 {
			return "0 = 1", nil, nil
		}
		placeholders := make([]string, len(elems))
		for i, elem := range elems {
			param, err := ir.EncodeValue(elem)
			if err != nil {
				return "", nil, fmt.Errorf("element %d: %w", i, err)
			}
			placeholders[i] = "?"
			params = append(params, param)
		}
		return fmt.Sprintf("%s IN (%s)", expr, strings.Join(placeholders, ", ")), params, nil
	}

	op, ok := sqlOperators[f.Op]
	if !ok {
		return "", nil, fmt.Errorf("unsupported operator %q", string(f.Op))
	}
	param, err := ir.EncodeValue(f.Value)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s ?", expr, op), append(params, param), nil
}

var sqlOperators = map[plan.Operator]string{
	plan.Equal:              "=",
	plan.LessThan:           "<",
	plan.LessThanOrEqual:    "<=",
	plan.GreaterThan:        ">",
	plan.GreaterThanOrEqual: ">=",
	plan.NotEqual:           "<>",
}

// fieldExpr returns the SQL expression reading field and its parameters.
func fieldExpr(field string) (string, []any, error) {
	if field == plan.KeyField {
		return "key", nil, nil
	}
	path, err := JSONPath(field)
	if err != nil {
		return "", nil, err
	}
	return "json_extract(props, ?)", []any{path}, nil
}

// JSONPath returns the SQLite JSON path addressing a top-level property.
// SQLite quoted path labels cannot contain a double quote.
func JSONPath(field string) (string, error) {
	if field == "" {
		return "", fmt.Errorf("empty field name")
	}
	if strings.Contains(field, `"`) {
		return "", fmt.Errorf("field name %q contains a double quote", field)
	}
	return `$."` + field + `"`, nil
}
