package querystore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/iterutil"
	"github.com/roach88/querystore/internal/plan"
	"github.com/roach88/querystore/internal/query"
	"github.com/roach88/querystore/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExists_AgainstStore(t *testing.T) {
	s := openStore(t)
	qs := New(FromStore(s))
	ctx := context.Background()

	assert.False(t, qs.Exists(ctx, "Widget", query.NewConstraints()), "empty collection")

	_, err := s.Put(ctx, ir.Entity{Key: ir.NewKey("Widget", "w1"), Properties: ir.Properties{"name": "foo"}})
	require.NoError(t, err)

	assert.True(t, qs.Exists(ctx, "Widget", query.NewConstraints()))
	assert.True(t, qs.Exists(ctx, "Widget", query.NewConstraints().Set("name", plan.Equal, "foo")))
	assert.False(t, qs.Exists(ctx, "Widget", query.NewConstraints().Set("name", plan.Equal, "bar")))
	assert.False(t, qs.Exists(ctx, "Gadget", query.NewConstraints()))

	assert.True(t, qs.ExistsLike(ctx, "Widget", map[string]any{"name": "foo"}))
	assert.True(t, qs.Exists(ctx, "Widget", query.NewConstraints().Set(query.IdentityField, plan.Equal, "w1")))
}

func TestCheck_FailureReleasesConnection(t *testing.T) {
	s := openStore(t)
	qs := New(FromStore(s))
	ctx := context.Background()

	bad := query.NewConstraints().Set("meta", plan.Equal, []int{1})
	got, err := qs.Check(ctx, "Widget", bad)
	assert.Equal(t, CheckFailed, got)
	assert.True(t, query.IsTransactionFailure(err))

	// The single store connection is usable again.
	_, err = s.Put(ctx, ir.Entity{Key: ir.NewKey("Widget", "w1")})
	require.NoError(t, err)
	assert.True(t, qs.Exists(ctx, "Widget", query.NewConstraints()))
}

func TestQuery_AgainstStore(t *testing.T) {
	s := openStore(t)
	qs := New(FromStore(s))
	ctx := context.Background()

	for i, name := range []string{"delta", "alpha", "charlie", "bravo"} {
		_, err := s.Put(ctx, ir.Entity{
			Key:        ir.NewKey("Widget", name),
			Properties: ir.Properties{"rank": i, "group": "g"},
		})
		require.NoError(t, err)
	}

	c := query.NewConstraints().Set("group", plan.Equal, "g")
	srt := query.NewSorts().Set("rank", plan.Descending)

	seq, err := qs.QueryEntities(ctx, "Widget", c, srt)
	require.NoError(t, err)
	entities, err := iterutil.Collect(seq)
	require.NoError(t, err)

	var names []string
	for _, e := range entities {
		names = append(names, e.Key.Name)
	}
	assert.Equal(t, []string{"bravo", "charlie", "alpha", "delta"}, names, "leftover sort applied after filters")

	page, err := qs.Query(ctx, "Widget", c, srt, intPtr(1), intPtr(2))
	require.NoError(t, err)
	records, err := iterutil.Collect(page)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"rank": int64(2), "group": "g"},
		{"rank": int64(1), "group": "g"},
	}, records)
}
