package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/querystore/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// putWidget stores a Widget entity with the given name and properties.
func putWidget(t *testing.T, s *Store, name string, props ir.Properties) ir.Key {
	t.Helper()
	key, err := s.Put(context.Background(), ir.Entity{Key: ir.NewKey("Widget", name), Properties: props})
	if err != nil {
		t.Fatalf("Put(%s) failed: %v", name, err)
	}
	return key
}
