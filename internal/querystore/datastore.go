package querystore

import (
	"context"
	"iter"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/plan"
	"github.com/roach88/querystore/internal/store"
)

// PreparedQuery is a plan bound to a store connection or transaction.
type PreparedQuery interface {
	// Count returns the number of matching entities.
	Count(ctx context.Context) (int, error)

	// Entities returns the matches as a lazy, single-pass sequence.
	Entities(ctx context.Context) iter.Seq2[ir.Entity, error]
}

// Transaction is a single-use store transaction.
type Transaction interface {
	Commit() error

	// Rollback must be a no-op on an inactive transaction.
	Rollback() error

	IsActive() bool
	Prepare(p plan.Plan) (PreparedQuery, error)
}

// Datastore is the store a QueryStore executes against.
type Datastore interface {
	BeginTx(ctx context.Context) (Transaction, error)
	Prepare(p plan.Plan) (PreparedQuery, error)
}

// FromStore adapts a SQLite store to Datastore.
func FromStore(s *store.Store) Datastore {
	return storeDatastore{s: s}
}

type storeDatastore struct {
	s *store.Store
}

func (d storeDatastore) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := d.s.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return storeTx{Tx: tx}, nil
}

func (d storeDatastore) Prepare(p plan.Plan) (PreparedQuery, error) {
	pq, err := d.s.Prepare(p)
	if err != nil {
		return nil, err
	}
	return pq, nil
}

type storeTx struct {
	*store.Tx
}

func (t storeTx) Prepare(p plan.Plan) (PreparedQuery, error) {
	pq, err := t.Tx.Prepare(p)
	if err != nil {
		return nil, err
	}
	return pq, nil
}
