package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/query"
)

// Scenario is a seeded store plus a list of query steps.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed entities are written before any step runs.
	Seed []SeedEntity `yaml:"seed,omitempty"`

	// Steps run in order against the seeded store.
	Steps []Step `yaml:"steps"`
}

// SeedEntity is one entity to store before the steps run.
type SeedEntity struct {
	Kind string `yaml:"kind"`

	// Name is the key name. Empty names are allocated in seed order as
	// auto-000001, auto-000002, ...
	Name string `yaml:"name,omitempty"`

	Properties map[string]any `yaml:"properties,omitempty"`

	// Types overrides the kind of a property whose YAML form is ambiguous:
	// "time" (RFC 3339 string), "bytes" (base64 string), "key" ("Kind/name"),
	// "float" (integer literal stored as float).
	Types map[string]string `yaml:"types,omitempty"`
}

// Step is one query or existence check.
type Step struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Where holds constraint expressions, conjoined.
	Where []string `yaml:"where,omitempty"`

	// Sort holds "field[:asc|desc]" specs in priority order.
	Sort []string `yaml:"sort,omitempty"`

	Skip  *int `yaml:"skip,omitempty"`
	Limit *int `yaml:"limit,omitempty"`

	// ExpectKeys lists the expected key names in result order.
	ExpectKeys []string `yaml:"expect_keys,omitempty"`

	// ExpectExists turns the step into an existence check.
	ExpectExists *bool `yaml:"expect_exists,omitempty"`

	// ExpectError is the error code the step must fail with,
	// e.g. INVALID_ARGUMENT.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// IsExistenceCheck reports whether the step runs Check instead of a query.
func (s Step) IsExistenceCheck() bool {
	return s.ExpectExists != nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, e := range s.Seed {
		if e.Kind == "" {
			return fmt.Errorf("seed[%d]: kind is required", i)
		}
		for field, kind := range e.Types {
			switch kind {
			case "time", "bytes", "key", "float":
			default:
				return fmt.Errorf("seed[%d]: unknown type %q for property %q", i, kind, field)
			}
		}
	}

	names := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if names[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		names[step.Name] = true

		if step.Kind == "" {
			return fmt.Errorf("steps[%d]: kind is required", i)
		}
		if step.IsExistenceCheck() && step.ExpectKeys != nil {
			return fmt.Errorf("steps[%d]: expect_keys and expect_exists are exclusive", i)
		}
		if step.IsExistenceCheck() && (len(step.Sort) > 0 || step.Skip != nil || step.Limit != nil) {
			return fmt.Errorf("steps[%d]: existence checks take no sort, skip or limit", i)
		}
		switch query.ErrorCode(step.ExpectError) {
		case "", query.ErrCodeInvalidArgument, query.ErrCodeExecutionFailure, query.ErrCodeTransactionFailure:
		default:
			return fmt.Errorf("steps[%d]: unknown expect_error %q", i, step.ExpectError)
		}
	}

	return nil
}

// Entity converts a seed entry to a storable entity.
func (e SeedEntity) Entity() (ir.Entity, error) {
	props := make(ir.Properties, len(e.Properties))
	for field, raw := range e.Properties {
		v, err := convertValue(raw, e.Types[field])
		if err != nil {
			return ir.Entity{}, fmt.Errorf("property %q: %w", field, err)
		}
		props[field] = v
	}
	return ir.Entity{Key: ir.NewKey(e.Kind, e.Name), Properties: props}, nil
}
