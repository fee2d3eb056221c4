package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/plan"
)

func seedWidgets(t *testing.T, s *Store) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	putWidget(t, s, "a", ir.Properties{"name": "foo", "age": 30, "tag": "x", "created": base})
	putWidget(t, s, "b", ir.Properties{"name": "bar", "age": 17, "tag": "y", "created": base.Add(time.Hour)})
	putWidget(t, s, "c", ir.Properties{"name": "foo", "age": 18, "tag": "z", "created": base.Add(2 * time.Hour)})
	putWidget(t, s, "d", ir.Properties{"name": "baz", "age": 30.5, "tag": "x", "created": base.Add(3 * time.Hour)})
}

func keyNames(t *testing.T, pq *PreparedQuery) []string {
	t.Helper()
	var names []string
	for e, err := range pq.Entities(context.Background()) {
		require.NoError(t, err)
		names = append(names, e.Key.Name)
	}
	return names
}

func TestPrepare_Filters(t *testing.T) {
	s := createTestStore(t)
	seedWidgets(t, s)

	tests := []struct {
		name string
		p    plan.Plan
		want []string
	}{
		{"whole kind", plan.New("Widget"), []string{"a", "b", "c", "d"}},
		{"other kind", plan.New("Gadget"), nil},
		{"equal", plan.New("Widget").WithFilter(plan.Filter{Field: "name", Op: plan.Equal, Value: "foo"}), []string{"a", "c"}},
		{"not equal", plan.New("Widget").WithFilter(plan.Filter{Field: "name", Op: plan.NotEqual, Value: "foo"}), []string{"b", "d"}},
		{"int vs float", plan.New("Widget").WithFilter(plan.Filter{Field: "age", Op: plan.GreaterThanOrEqual, Value: 18}), []string{"a", "c", "d"}},
		{
			"conjunction",
			plan.New("Widget").
				WithFilter(plan.Filter{Field: "name", Op: plan.Equal, Value: "foo"}).
				WithFilter(plan.Filter{Field: "age", Op: plan.LessThan, Value: 20}),
			[]string{"c"},
		},
		{"in", plan.New("Widget").WithFilter(plan.Filter{Field: "tag", Op: plan.In, Value: []string{"x", "z"}}), []string{"a", "c", "d"}},
		{"empty in", plan.New("Widget").WithFilter(plan.Filter{Field: "tag", Op: plan.In, Value: []any{}}), nil},
		{
			"time",
			plan.New("Widget").WithFilter(plan.Filter{Field: "created", Op: plan.GreaterThan, Value: time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC)}),
			[]string{"c", "d"},
		},
		{"key", plan.New("Widget").WithFilter(plan.Filter{Field: plan.KeyField, Op: plan.Equal, Value: ir.NewKey("Widget", "b")}), []string{"b"}},
		{"missing property", plan.New("Widget").WithFilter(plan.Filter{Field: "color", Op: plan.Equal, Value: "red"}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq, err := s.Prepare(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keyNames(t, pq))
		})
	}
}

func TestPrepare_SortsWithKeyTiebreaker(t *testing.T) {
	s := createTestStore(t)
	seedWidgets(t, s)

	p := plan.New("Widget").
		WithSort(plan.Sort{Field: "name", Direction: plan.Ascending}).
		WithSort(plan.Sort{Field: "age", Direction: plan.Descending})
	pq, err := s.Prepare(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "a", "c"}, keyNames(t, pq))

	p = plan.New("Widget").WithSort(plan.Sort{Field: "tag", Direction: plan.Descending})
	pq, err = s.Prepare(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a", "d"}, keyNames(t, pq), "equal tags fall back to key order")
}

func TestPrepare_BytesCompareInByteOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for name, b := range map[string][]byte{
		"high": {0xfc},
		"low":  {0x00, 0x01},
		"mid":  {0x7f},
	} {
		_, err := s.Put(ctx, ir.Entity{Key: ir.NewKey("Blob", name), Properties: ir.Properties{"b": b}})
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		p    plan.Plan
		want []string
	}{
		{"below smallest", plan.New("Blob").WithFilter(plan.Filter{Field: "b", Op: plan.LessThan, Value: []byte{0x00}}), nil},
		{"above mid", plan.New("Blob").WithFilter(plan.Filter{Field: "b", Op: plan.GreaterThan, Value: []byte{0x7f}}), []string{"high"}},
		{"at most mid", plan.New("Blob").WithFilter(plan.Filter{Field: "b", Op: plan.LessThanOrEqual, Value: []byte{0x7f}}), []string{"low", "mid"}},
		{"ascending", plan.New("Blob").WithSort(plan.Sort{Field: "b", Direction: plan.Ascending}), []string{"low", "mid", "high"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq, err := s.Prepare(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keyNames(t, pq))
		})
	}
}

func TestPrepare_KeysOnly(t *testing.T) {
	s := createTestStore(t)
	seedWidgets(t, s)

	pq, err := s.Prepare(plan.New("Widget").KeysOnly())
	require.NoError(t, err)

	for e, err := range pq.Entities(context.Background()) {
		require.NoError(t, err)
		assert.Nil(t, e.Properties)
		assert.Equal(t, "Widget", e.Key.Kind)
	}
}

func TestPreparedQuery_Count(t *testing.T) {
	s := createTestStore(t)
	seedWidgets(t, s)

	pq, err := s.Prepare(plan.New("Widget").WithFilter(plan.Filter{Field: "name", Op: plan.Equal, Value: "foo"}))
	require.NoError(t, err)

	n, err := pq.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = pq.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "count is repeatable")
}

func TestPreparedQuery_SinglePass(t *testing.T) {
	s := createTestStore(t)
	seedWidgets(t, s)

	pq, err := s.Prepare(plan.New("Widget"))
	require.NoError(t, err)

	seq := pq.Entities(context.Background())
	for range seq {
		break
	}

	var errs []error
	for _, err := range seq {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrConsumed)
}

func TestPrepare_CompileError(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Prepare(plan.Plan{})
	assert.Error(t, err)
}

func TestTx_CommitAndRollback(t *testing.T) {
	s := createTestStore(t)
	seedWidgets(t, s)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	assert.True(t, tx.IsActive())

	pq, err := tx.Prepare(plan.New("Widget").KeysOnly())
	require.NoError(t, err)
	n, err := pq.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, tx.Commit())
	assert.False(t, tx.IsActive())
	assert.ErrorIs(t, tx.Commit(), ErrTxDone)
	assert.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	_, err = tx.Prepare(plan.New("Widget"))
	assert.ErrorIs(t, err, ErrTxDone)

	tx, err = s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.False(t, tx.IsActive())
	assert.NoError(t, tx.Rollback())

	// The connection is free again once the tx ends.
	_, err = s.Get(ctx, ir.NewKey("Widget", "a"))
	assert.NoError(t, err)
}
