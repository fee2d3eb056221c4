package filterexpr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/plan"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr string
		want Clause
	}{
		{`age >= 18`, Clause{"age", plan.GreaterThanOrEqual, int64(18)}},
		{`name == "foo"`, Clause{"name", plan.Equal, "foo"}},
		{`name != "foo"`, Clause{"name", plan.NotEqual, "foo"}},
		{`score < -1.5`, Clause{"score", plan.LessThan, -1.5}},
		{`n <= -3`, Clause{"n", plan.LessThanOrEqual, int64(-3)}},
		{`n > 0x10`, Clause{"n", plan.GreaterThan, int64(16)}},
		{`active == true`, Clause{"active", plan.Equal, true}},
		{`active == false`, Clause{"active", plan.Equal, false}},
		{`_id == "42"`, Clause{"_id", plan.Equal, "42"}},
		{`"display name" == "x"`, Clause{"display name", plan.Equal, "x"}},
		{`blob == 'raw'`, Clause{"blob", plan.Equal, []byte("raw")}},
		{`digest == base64("AAE=")`, Clause{"digest", plan.Equal, []byte{0, 1}}},
		{`owner == key("User", "7")`, Clause{"owner", plan.Equal, ir.NewKey("User", "7")}},
		{
			`created < time("2024-01-01T00:00:00Z")`,
			Clause{"created", plan.LessThan, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		{`status == ["a", "b"]`, Clause{"status", plan.In, []any{"a", "b"}}},
		{`status == []`, Clause{"status", plan.In, []any{}}},
		{`(age > 1)`, Clause{"age", plan.GreaterThan, int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Parse(tt.expr)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestParse_Conjunction(t *testing.T) {
	got, err := Parse(`age >= 18 && name == "foo" && tag == ["x"]`)
	require.NoError(t, err)

	assert.Equal(t, []Clause{
		{"age", plan.GreaterThanOrEqual, int64(18)},
		{"name", plan.Equal, "foo"},
		{"tag", plan.In, []any{"x"}},
	}, got)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		expr    string
		message string
	}{
		{`age >=`, "parse"},
		{`age`, "expected a comparison"},
		{`age > 1 || age < 0`, "unsupported operator"},
		{`1 == age`, "left side must be a field name"},
		{`tags != ["a"]`, "a list needs =="},
		{`x == {a: 1}`, "unsupported value expression"},
		{`x == other`, "unsupported value expression"},
		{`x == now()`, "unknown function now"},
		{`x == time("yesterday")`, "time"},
		{`x == key("User")`, "key takes 2 arguments"},
		{`x == base64("***")`, "base64"},
		{`x == null`, "unsupported literal"},
		{`x == -"a"`, "unsupported unary"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Parse(tt.expr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, err.Error(), tt.expr, "errors name the expression")
		})
	}
}

func TestParseConstraints(t *testing.T) {
	c, err := ParseConstraints(`name == "foo"`, `age > 3 && _id == 7`)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "_id"}, c.Fields())

	_, err = ParseConstraints(`age > 1 && age < 5`)
	assert.ErrorContains(t, err, "more than once")

	c, err = ParseConstraints()
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		spec  string
		field string
		dir   plan.Direction
	}{
		{"age", "age", plan.Ascending},
		{"age:desc", "age", plan.Descending},
		{" name : ASC ", "name", plan.Ascending},
		{"_id:descending", "_id", plan.Descending},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			field, dir, err := ParseSort(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.field, field)
			assert.Equal(t, tt.dir, dir)
		})
	}

	_, _, err := ParseSort(":desc")
	assert.Error(t, err)
	_, _, err = ParseSort("age:sideways")
	assert.Error(t, err)
}

func TestParseSorts(t *testing.T) {
	s, err := ParseSorts("b:desc", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, s.Fields())
}
