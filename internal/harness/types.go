package harness

import (
	"github.com/roach88/liftoff/internal/engine"
	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/ordering"
)

// TraceEvent is one published event, reduced to a stable summary line.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
}

// StepTrace records one executed step and the events it published.
type StepTrace struct {
	Index   int          `json:"index"`
	Command string       `json:"command"`
	Code    string       `json:"code,omitempty"`
	Events  []TraceEvent `json:"events"`
}

// Final is the session as the last step left it.
type Final struct {
	State   engine.State     `json:"state"`
	Lift    meet.Lift        `json:"lift"`
	Index   int              `json:"index"`
	Current *ordering.Entry  `json:"current,omitempty"`
	Queue   []ordering.Entry `json:"queue"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	// Steps holds the per-step trace.
	Steps []StepTrace `json:"steps"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the session state after the last step.
	Final Final `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Trace returns every event of every step in publication order.
func (r *Result) Trace() []TraceEvent {
	var out []TraceEvent
	for _, s := range r.Steps {
		out = append(out, s.Events...)
	}
	return out
}
