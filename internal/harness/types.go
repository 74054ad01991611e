package harness

import "github.com/roach88/rewind/internal/timeline"

// TraceEntry records the outcome of one step.
type TraceEntry struct {
	Step    int              `json:"step"`
	Op      string           `json:"op"`
	Store   string           `json:"store"`
	EventID string           `json:"event_id,omitempty"`
	Moved   *bool            `json:"moved,omitempty"`
	As      string           `json:"as,omitempty"`
	Error   string           `json:"error,omitempty"`
	Index   int              `json:"index"`
	Length  int              `json:"length"`
	State   map[string]int64 `json:"state"`

	// Notified counts listener calls the step triggered across all stores.
	Notified int `json:"notified"`
}

// Notification is one listener call observed during a run.
// EventID is set for append notifications, Move for cursor notifications.
type Notification struct {
	Store   string               `json:"store"`
	Channel string               `json:"channel"`
	EventID string               `json:"event_id,omitempty"`
	Move    *timeline.CursorMove `json:"move,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEntry `json:"trace"`

	Notifications []Notification `json:"notifications"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Trace:         []TraceEntry{},
		Notifications: []Notification{},
		Errors:        []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
