package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/querystore/internal/filterexpr"
	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/iterutil"
	"github.com/roach88/querystore/internal/plan"
	"github.com/roach88/querystore/internal/query"
	"github.com/roach88/querystore/internal/querysql"
	"github.com/roach88/querystore/internal/querystore"
	"github.com/roach88/querystore/internal/store"
	"github.com/roach88/querystore/internal/testutil"
)

// Harness runs scenario steps against one seeded store.
type Harness struct {
	store  *store.Store
	qs     *querystore.QueryStore
	logger *slog.Logger
}

// keyNameMapper maps each record to its key name only, so steps can
// compare result order without caring about properties.
func keyNameMapper(e ir.Entity) (map[string]any, error) {
	return map[string]any{query.IdentityField: e.Key.Name}, nil
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Create fresh in-memory database
// 2. Write seed entities
// 3. Plan, compile and execute each step, comparing against expectations
//
// Run returns an error only when the scenario itself cannot run (bad seed
// data, unparseable constraint text); step mismatches land in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return RunWithLogger(ctx, scenario, slog.New(slog.DiscardHandler))
}

// RunWithLogger is Run with an explicit logger for the query layer.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:", store.WithNameGenerator(testutil.NewSequentialNames("")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		qs: querystore.New(querystore.FromStore(st),
			querystore.WithLogger(logger),
			querystore.WithMapper(keyNameMapper),
		),
		logger: logger,
	}

	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Name, err)
		}
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context, entities []SeedEntity) error {
	for i, se := range entities {
		e, err := se.Entity()
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		if _, err := h.store.Put(ctx, e); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}
	h.logger.Debug("seeded store", "entities", len(entities))
	return nil
}

func (h *Harness) runStep(ctx context.Context, step Step, result *Result) error {
	constraints, err := filterexpr.ParseConstraints(step.Where...)
	if err != nil {
		return err
	}
	sorts, err := filterexpr.ParseSorts(step.Sort...)
	if err != nil {
		return err
	}

	sr := StepResult{Name: step.Name}
	if step.IsExistenceCheck() {
		err = h.runExists(ctx, step, constraints, &sr)
	} else {
		err = h.runQuery(ctx, step, constraints, sorts, &sr)
	}
	if err != nil {
		var qe *query.Error
		if !errors.As(err, &qe) {
			return err
		}
		sr.Error = string(qe.Code)
	}
	result.AddStep(sr)
	h.compare(step, sr, result)
	return nil
}

func (h *Harness) runQuery(ctx context.Context, step Step, constraints *query.Constraints, sorts *query.Sorts, sr *StepResult) error {
	p, err := h.qs.Plan(step.Kind, constraints, sorts)
	if err != nil {
		return err
	}
	if err := describe(p, querysql.Compile, sr); err != nil {
		return err
	}

	seq, err := h.qs.Query(ctx, step.Kind, constraints, sorts, step.Skip, step.Limit)
	if err != nil {
		return err
	}
	records, err := iterutil.Collect(seq)
	if err != nil {
		return err
	}
	sr.Keys = make([]string, 0, len(records))
	for _, r := range records {
		sr.Keys = append(sr.Keys, r[query.IdentityField].(string))
	}
	return nil
}

func (h *Harness) runExists(ctx context.Context, step Step, constraints *query.Constraints, sr *StepResult) error {
	p, err := h.qs.Plan(step.Kind, constraints, query.NewSorts())
	if err != nil {
		return err
	}
	if err := describe(p.KeysOnly(), querysql.CompileCount, sr); err != nil {
		return err
	}

	existence, err := h.qs.Check(ctx, step.Kind, constraints)
	sr.Exists = existence.String()
	return err
}

func describe(p plan.Plan, compile func(plan.Plan) (string, []any, error), sr *StepResult) error {
	sql, params, err := compile(p)
	if err != nil {
		return fmt.Errorf("compile plan: %w", err)
	}
	sr.Plan = p.String()
	sr.SQL = sql
	sr.Params = params
	return nil
}

func (h *Harness) compare(step Step, sr StepResult, result *Result) {
	if step.ExpectError != "" || sr.Error != "" {
		if sr.Error != step.ExpectError {
			result.AddError(fmt.Sprintf("step %s: expected error %q, got %q", step.Name, step.ExpectError, sr.Error))
		}
		return
	}

	if step.IsExistenceCheck() {
		want := querystore.DoesNotExist
		if *step.ExpectExists {
			want = querystore.Exists
		}
		if sr.Exists != want.String() {
			result.AddError(fmt.Sprintf("step %s: expected %s, got %s", step.Name, want, sr.Exists))
		}
		return
	}

	want := step.ExpectKeys
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(sr.Keys, want) {
		result.AddError(fmt.Sprintf("step %s: expected keys %v, got %v", step.Name, want, sr.Keys))
	}
}
