package harness

import "github.com/roach88/stylefx/internal/trace"

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the scenario's name.
	Scenario string `json:"scenario"`

	// Pass indicates overall success: every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Failures contains expectation and assertion failure messages.
	// Empty if Pass is true.
	Failures []string `json:"failures,omitempty"`

	// Trace is every render-port operation, step, status change and batch
	// completion, in order.
	Trace []trace.Event `json:"trace"`

	// TraceHash is the content hash of Trace.
	TraceHash string `json:"trace_hash"`

	// ScenarioHash is the content hash of the scenario source. Empty for a
	// scenario built in code.
	ScenarioHash string `json:"scenario_hash,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Scenario: name,
		Pass:     true,
		Trace:    []trace.Event{},
	}
}

// AddFailure adds a failure message and marks the result as failed.
func (r *Result) AddFailure(msg string) {
	r.Failures = append(r.Failures, msg)
	r.Pass = false
}
