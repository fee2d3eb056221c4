package harness

// StepResult records what one step planned, compiled and returned.
type StepResult struct {
	Name string `json:"name"`

	// Plan is the human-readable plan, empty if the step failed to plan.
	Plan string `json:"plan,omitempty"`

	// SQL and Params are the compiled statement. Existence checks compile
	// to a COUNT query.
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`

	// Keys holds result key names in order, for query steps.
	Keys []string `json:"keys,omitempty"`

	// Exists is the existence outcome, for existence steps.
	Exists string `json:"exists,omitempty"`

	// Error is the error code the step failed with, if any.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every step matched its expectation.
	Pass bool `json:"pass"`

	// Steps holds one entry per executed step, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains mismatch messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a mismatch message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step outcome.
func (r *Result) AddStep(s StepResult) {
	r.Steps = append(r.Steps, s)
}
