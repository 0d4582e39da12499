package core

import (
	"time"

	"github.com/devicelab-dev/actionrunner/pkg/flow"
)

// ActionResult captures the outcome of executing a single action
type ActionResult struct {
	// Identity
	Index int     `json:"index"` // 0-based position in the action table
	Name  string  `json:"name"`
	Op    flow.Op `json:"op"`

	// Status
	Status   ActionStatus  `json:"status"`
	Category ErrorCategory `json:"errorCategory"`
	Required bool          `json:"required"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Output
	Text     string `json:"text,omitempty"`     // Text of the element acted on
	Count    int    `json:"count,omitempty"`    // Elements matched (waitForAll)
	Snapshot string `json:"snapshot,omitempty"` // UI tree captured after the action

	// Error Details
	Error string `json:"error,omitempty"`
}

// Halted returns true if this result stops the run
func (r *ActionResult) Halted() bool {
	return r.Required && r.Status.HaltsRun()
}

// Summary contains aggregated counts for a run
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	NotFound  int `json:"notFound"`
	TimedOut  int `json:"timedOut"`
	Errored   int `json:"errored"`
	Cancelled int `json:"cancelled"`
}

// Failed returns the number of non-successful results
func (s Summary) Failed() int {
	return s.NotFound + s.TimedOut + s.Errored + s.Cancelled
}

// RunReport captures the complete outcome of executing an action table once
type RunReport struct {
	// Identity
	ID      string `json:"id"`
	Profile string `json:"profile"`
	Target  string `json:"target"`

	// Platform info (captured once per run)
	Platform *PlatformInfo `json:"platform,omitempty"`

	// Status
	Status   RunStatus `json:"status"`
	HaltedAt int       `json:"haltedAt"` // Index of the halting action, -1 if none

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results, one per attempted action
	Results []ActionResult `json:"results"`
	Planned int            `json:"planned"` // Actions in the table

	SessionReleased bool   `json:"sessionReleased"`
	Error           string `json:"error,omitempty"`

	Summary Summary `json:"summary"`
}

// ComputeSummary calculates result counts from the Results slice
func (r *RunReport) ComputeSummary() {
	s := Summary{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Status {
		case StatusSuccess:
			s.Succeeded++
		case StatusNotFound:
			s.NotFound++
		case StatusTimeout:
			s.TimedOut++
		case StatusError:
			s.Errored++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	r.Summary = s
}

// Statuses returns the status of each result, in order
func (r *RunReport) Statuses() []ActionStatus {
	out := make([]ActionStatus, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Status
	}
	return out
}

// Success returns true if the run completed (optional failures allowed)
func (r *RunReport) Success() bool {
	return r.Status.IsSuccess()
}

// Halted returns the halting result, or nil when the run was not halted
func (r *RunReport) Halted() *ActionResult {
	if r.Status != RunHalted || r.HaltedAt < 0 {
		return nil
	}
	for i := range r.Results {
		if r.Results[i].Index == r.HaltedAt {
			return &r.Results[i]
		}
	}
	return nil
}
