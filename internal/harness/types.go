package harness

import (
	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/model"
)

// TraceEvent is one notification, reduced to the fields that identify it.
type TraceEvent struct {
	Seq      int    `json:"seq"`
	Kind     string `json:"kind"`
	Message  string `json:"message,omitempty"`
	Running  bool   `json:"running"`
	Campaign string `json:"campaign,omitempty"`
	Streamer string `json:"streamer,omitempty"`
}

func traceEvent(seq int, n engine.Notification) TraceEvent {
	ev := TraceEvent{
		Seq:     seq,
		Kind:    string(n.Kind),
		Message: n.Message,
		Running: n.State.Running,
	}
	if n.State.Selected != nil {
		ev.Campaign = n.State.Selected.Name
	}
	if n.State.ActiveStreamer != nil {
		ev.Streamer = n.State.ActiveStreamer.Login
	}
	return ev
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step and assertion held.
	Pass bool `json:"pass"`

	// Trace lists the notifications in emission order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// State is the final farming state.
	State model.FarmingState `json:"state"`

	// Ticks records each tick outcome in order.
	Ticks []engine.TickResult `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
