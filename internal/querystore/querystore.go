package querystore

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"maps"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/iterutil"
	"github.com/roach88/querystore/internal/plan"
	"github.com/roach88/querystore/internal/query"
)

// Mapper turns a raw entity into the record handed to callers.
type Mapper func(ir.Entity) (map[string]any, error)

// MapProperties is the default Mapper: a copy of the entity's properties.
func MapProperties(e ir.Entity) (map[string]any, error) {
	out := make(map[string]any, len(e.Properties))
	maps.Copy(out, e.Properties)
	return out, nil
}

// QueryStore runs caller queries against a Datastore.
// Safe for concurrent use if the Datastore is.
type QueryStore struct {
	ds        Datastore
	logger    *slog.Logger
	mapper    Mapper
	buildOpts []query.BuildOption
}

// Option configures a QueryStore.
type Option func(*QueryStore)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(qs *QueryStore) {
		if l != nil {
			qs.logger = l
		}
	}
}

// WithMapper replaces MapProperties as the record mapper for Query.
func WithMapper(m Mapper) Option {
	return func(qs *QueryStore) {
		qs.mapper = m
	}
}

// WithBuildOptions applies opts to every plan build.
//
// Use WithBuildOptions(query.DropUnmatchedSorts()) to discard sorts on
// unconstrained fields.
func WithBuildOptions(opts ...query.BuildOption) Option {
	return func(qs *QueryStore) {
		qs.buildOpts = append(qs.buildOpts, opts...)
	}
}

// New creates a QueryStore over ds.
func New(ds Datastore, opts ...Option) *QueryStore {
	qs := &QueryStore{
		ds:     ds,
		logger: slog.New(slog.DiscardHandler),
		mapper: MapProperties,
	}
	for _, opt := range opts {
		opt(qs)
	}
	return qs
}

// Plan builds the plan Query or QueryEntities would execute.
func (qs *QueryStore) Plan(kind string, constraints *query.Constraints, sorts *query.Sorts) (plan.Plan, error) {
	return qs.build(kind, constraints, sorts)
}

func (qs *QueryStore) build(kind string, constraints *query.Constraints, sorts *query.Sorts, extra ...query.BuildOption) (plan.Plan, error) {
	opts := append(append([]query.BuildOption(nil), qs.buildOpts...), extra...)
	p, err := query.Build(kind, constraints, sorts, opts...)
	if err != nil {
		return plan.Plan{}, err
	}

	if qs.logger.Enabled(context.Background(), slog.LevelDebug) {
		attrs := []any{
			"kind", p.Kind(),
			"filters", len(p.Filters()),
			"sorts", len(p.Sorts()),
			"keys_only", p.IsKeysOnly(),
		}
		if fp, err := p.Fingerprint(); err == nil {
			attrs = append(attrs, "fingerprint", fp)
		}
		qs.logger.Debug("plan built", attrs...)
	}
	return p, nil
}

// Execute hands p to the datastore and returns its entities.
//
// Errors raised while iterating are yielded as EXECUTION_FAILURE. The
// sequence is single-pass; run Execute again to re-read.
func (qs *QueryStore) Execute(ctx context.Context, p plan.Plan) (iter.Seq2[ir.Entity, error], error) {
	pq, err := qs.ds.Prepare(p)
	if err != nil {
		qs.logger.Error("query execution failed", "kind", p.Kind(), "error", err)
		return nil, query.NewExecutionFailure(p.Kind(), err)
	}

	entities := pq.Entities(ctx)
	return func(yield func(ir.Entity, error) bool) {
		for e, err := range entities {
			if err != nil {
				qs.logger.Error("query iteration failed", "kind", p.Kind(), "error", err)
				yield(ir.Entity{}, query.NewExecutionFailure(p.Kind(), err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}, nil
}

// Query builds and executes a plan, mapping each entity with the
// configured Mapper. When limit is non-nil the results are windowed by
// skip (nil means zero) and limit.
func (qs *QueryStore) Query(
	ctx context.Context,
	kind string,
	constraints *query.Constraints,
	sorts *query.Sorts,
	skip, limit *int,
) (iter.Seq2[map[string]any, error], error) {
	if qs.mapper == nil {
		return nil, query.NewInvalidArgument("", "mapper must not be nil")
	}
	if skip != nil && *skip < 0 {
		return nil, query.NewInvalidArgument("skip", "must not be negative, got %d", *skip)
	}
	if limit != nil && *limit < 0 {
		return nil, query.NewInvalidArgument("limit", "must not be negative, got %d", *limit)
	}

	entities, err := qs.QueryEntities(ctx, kind, constraints, sorts)
	if err != nil {
		return nil, err
	}
	records := iterutil.Map(entities, func(e ir.Entity) (map[string]any, error) {
		return qs.mapper(e)
	})
	return iterutil.Paginate(records, skip, limit), nil
}

// QueryEntities builds and executes a plan, returning raw entities.
func (qs *QueryStore) QueryEntities(
	ctx context.Context,
	kind string,
	constraints *query.Constraints,
	sorts *query.Sorts,
) (iter.Seq2[ir.Entity, error], error) {
	p, err := qs.build(kind, constraints, sorts)
	if err != nil {
		return nil, err
	}
	return qs.Execute(ctx, p)
}

// ListAll returns every entity of kind in key order.
func (qs *QueryStore) ListAll(ctx context.Context, kind string) (iter.Seq2[ir.Entity, error], error) {
	return qs.QueryEntities(ctx, kind, query.NewConstraints(), query.NewSorts())
}

// ListSorted returns every entity of kind ordered by sorts.
func (qs *QueryStore) ListSorted(ctx context.Context, kind string, sorts *query.Sorts) (iter.Seq2[ir.Entity, error], error) {
	return qs.QueryEntities(ctx, kind, query.NewConstraints(), sorts)
}

// Existence is the outcome of an existence check.
type Existence int

const (
	// CheckFailed means existence could not be determined. It is the zero
	// value so an unset result never reads as a match.
	CheckFailed Existence = iota
	DoesNotExist
	Exists
)

func (e Existence) String() string {
	switch e {
	case Exists:
		return "exists"
	case DoesNotExist:
		return "does not exist"
	default:
		return "check failed"
	}
}

// Check reports whether any entity of kind satisfies constraints.
//
// The count runs in its own transaction. On any failure the transaction is
// rolled back and Check returns CheckFailed with a TRANSACTION_FAILURE
// error wrapping the cause.
func (qs *QueryStore) Check(ctx context.Context, kind string, constraints *query.Constraints) (Existence, error) {
	tx, err := qs.ds.BeginTx(ctx)
	if err != nil {
		return qs.checkFailed(kind, err)
	}
	defer func() {
		if tx.IsActive() {
			if rbErr := tx.Rollback(); rbErr != nil {
				qs.logger.Warn("rollback of dangling check transaction failed", "kind", kind, "error", rbErr)
			}
		}
	}()

	n, err := qs.countInTx(ctx, tx, kind, constraints)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return qs.checkFailed(kind, err)
	}

	if err := tx.Commit(); err != nil {
		return qs.checkFailed(kind, err)
	}

	if n == 0 {
		return DoesNotExist, nil
	}
	return Exists, nil
}

func (qs *QueryStore) countInTx(ctx context.Context, tx Transaction, kind string, constraints *query.Constraints) (int, error) {
	p, err := qs.build(kind, constraints, query.NewSorts(), query.KeysOnlyPlan())
	if err != nil {
		return 0, err
	}
	pq, err := tx.Prepare(p)
	if err != nil {
		return 0, err
	}
	return pq.Count(ctx)
}

func (qs *QueryStore) checkFailed(kind string, cause error) (Existence, error) {
	qs.logger.Warn("existence check failed", "kind", kind, "error", cause)
	return CheckFailed, query.NewTransactionFailure(kind, cause)
}

// Exists reports whether a matching entity exists. It fails closed: a
// check that could not complete reports false. Use Check to tell the two
// apart.
func (qs *QueryStore) Exists(ctx context.Context, kind string, constraints *query.Constraints) bool {
	result, _ := qs.Check(ctx, kind, constraints)
	return result == Exists
}

// ExistsLike reports whether an entity of kind has every property in props
// equal to the given value. Fails closed like Exists.
func (qs *QueryStore) ExistsLike(ctx context.Context, kind string, props map[string]any) bool {
	byField := make(map[string]query.Constraint, len(props))
	for field, value := range props {
		byField[field] = query.Constraint{Op: plan.Equal, Value: value}
	}
	return qs.Exists(ctx, kind, query.ConstraintsFromMap(byField))
}
