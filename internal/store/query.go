package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/plan"
	"github.com/roach88/querystore/internal/querysql"
)

// Prepare compiles p for execution outside a transaction.
func (s *Store) Prepare(p plan.Plan) (*PreparedQuery, error) {
	return prepare(s.db, s.compiler, p)
}

// BeginTx starts a transaction. The store has a single connection, so other
// Store calls block until the Tx is committed or rolled back.
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx, compiler: s.compiler, active: true}, nil
}

// Tx is a single-use transaction. Not safe for concurrent use.
type Tx struct {
	tx       *sql.Tx
	compiler *querysql.SQLCompiler
	active   bool
}

// IsActive reports whether the transaction has not yet been committed or
// rolled back.
func (t *Tx) IsActive() bool {
	return t.active
}

// Commit commits the transaction. The Tx is inactive afterwards even if
// the commit fails.
func (t *Tx) Commit() error {
	if !t.active {
		return ErrTxDone
	}
	t.active = false
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back an inactive Tx is a no-op.
func (t *Tx) Rollback() error {
	if !t.active {
		return nil
	}
	t.active = false
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Prepare compiles p for execution inside the transaction.
func (t *Tx) Prepare(p plan.Plan) (*PreparedQuery, error) {
	if !t.active {
		return nil, ErrTxDone
	}
	return prepare(t.tx, t.compiler, p)
}

// PreparedQuery is a compiled plan bound to a connection or transaction.
type PreparedQuery struct {
	q           queryer
	plan        plan.Plan
	sql         string
	params      []any
	countSQL    string
	countParams []any
	consumed    atomic.Bool
}

func prepare(q queryer, c *querysql.SQLCompiler, p plan.Plan) (*PreparedQuery, error) {
	sqlText, params, err := c.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", p.Kind(), err)
	}
	countSQL, countParams, err := c.CompileCount(p)
	if err != nil {
		return nil, fmt.Errorf("prepare count %s: %w", p.Kind(), err)
	}
	return &PreparedQuery{
		q:           q,
		plan:        p,
		sql:         sqlText,
		params:      params,
		countSQL:    countSQL,
		countParams: countParams,
	}, nil
}

// Plan returns the plan this query was compiled from.
func (pq *PreparedQuery) Plan() plan.Plan {
	return pq.plan
}

// SQL returns the compiled row query and its parameters.
func (pq *PreparedQuery) SQL() (string, []any) {
	return pq.sql, append([]any(nil), pq.params...)
}

// Count returns the number of matching entities without fetching them.
func (pq *PreparedQuery) Count(ctx context.Context) (int, error) {
	var n int
	if err := pq.q.QueryRowContext(ctx, pq.countSQL, pq.countParams...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", pq.plan.Kind(), err)
	}
	return n, nil
}

// Entities returns the matching entities as a lazy, single-pass sequence.
//
// Rows are opened on the first pull and closed when the consumer stops.
// Iterating a second time yields ErrConsumed.
func (pq *PreparedQuery) Entities(ctx context.Context) iter.Seq2[ir.Entity, error] {
	return func(yield func(ir.Entity, error) bool) {
		if pq.consumed.Swap(true) {
			yield(ir.Entity{}, ErrConsumed)
			return
		}

		rows, err := pq.q.QueryContext(ctx, pq.sql, pq.params...)
		if err != nil {
			yield(ir.Entity{}, fmt.Errorf("query %s: %w", pq.plan.Kind(), err))
			return
		}
		defer rows.Close()

		keysOnly := pq.plan.IsKeysOnly()
		for rows.Next() {
			e, err := scanEntity(rows, keysOnly)
			if err != nil {
				yield(ir.Entity{}, fmt.Errorf("scan %s: %w", pq.plan.Kind(), err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ir.Entity{}, fmt.Errorf("iterate %s: %w", pq.plan.Kind(), err))
		}
	}
}
