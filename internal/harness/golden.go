package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/querystore/internal/ir"
)

// Snapshot converts a result to the canonical form stored in golden files.
// Pass and Errors are left out: golden files pin what was planned and
// returned, not whether expectations matched.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	steps := make([]any, len(result.Steps))
	for i, s := range result.Steps {
		m := map[string]any{"name": s.Name}
		if s.Plan != "" {
			m["plan"] = s.Plan
			m["sql"] = s.SQL
			m["params"] = append([]any{}, s.Params...)
		}
		switch {
		case s.Error != "":
			m["error"] = s.Error
		case s.Exists != "":
			m["exists"] = s.Exists
		default:
			keys := make([]any, len(s.Keys))
			for j, k := range s.Keys {
				keys[j] = k
			}
			m["keys"] = keys
		}
		steps[i] = m
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"steps":    steps,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
