package querystore

import (
	"context"
	"iter"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/plan"
)

// fakeDatastore records prepared plans and serves canned results.
type fakeDatastore struct {
	entities []ir.Entity
	count    int

	beginErr   error
	prepareErr error
	countErr   error
	commitErr  error
	iterErr    error

	plans []plan.Plan
	txs   []*fakeTx
}

func (d *fakeDatastore) BeginTx(ctx context.Context) (Transaction, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	tx := &fakeTx{ds: d, active: true}
	d.txs = append(d.txs, tx)
	return tx, nil
}

func (d *fakeDatastore) Prepare(p plan.Plan) (PreparedQuery, error) {
	d.plans = append(d.plans, p)
	if d.prepareErr != nil {
		return nil, d.prepareErr
	}
	return fakeQuery{ds: d}, nil
}

type fakeTx struct {
	ds        *fakeDatastore
	active    bool
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit() error {
	t.commits++
	t.active = false
	return t.ds.commitErr
}

func (t *fakeTx) Rollback() error {
	if !t.active {
		return nil
	}
	t.rollbacks++
	t.active = false
	return nil
}

func (t *fakeTx) IsActive() bool { return t.active }

func (t *fakeTx) Prepare(p plan.Plan) (PreparedQuery, error) {
	return t.ds.Prepare(p)
}

type fakeQuery struct {
	ds *fakeDatastore
}

func (q fakeQuery) Count(ctx context.Context) (int, error) {
	if q.ds.countErr != nil {
		return 0, q.ds.countErr
	}
	return q.ds.count, nil
}

func (q fakeQuery) Entities(ctx context.Context) iter.Seq2[ir.Entity, error] {
	return func(yield func(ir.Entity, error) bool) {
		for _, e := range q.ds.entities {
			if !yield(e, nil) {
				return
			}
		}
		if q.ds.iterErr != nil {
			yield(ir.Entity{}, q.ds.iterErr)
		}
	}
}
