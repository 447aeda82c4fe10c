package domain

import "time"

// ExecutionState is a node of the confirmation-gated execution machine.
type ExecutionState string

const (
	StateProposed             ExecutionState = "proposed"
	StateAwaitingConfirmation ExecutionState = "awaiting_confirmation"
	StateRunning              ExecutionState = "running"
	StateSucceeded            ExecutionState = "succeeded"
	StateFailed               ExecutionState = "failed"
	StateCancelled            ExecutionState = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s ExecutionState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// ExecutionRecord describes one command that entered the execution machine.
// Stdout and Stderr are bounded; a truncated stream ends with a marker.
type ExecutionRecord struct {
	ID              string         `json:"id"`
	PluginID        string         `json:"plugin"`
	Utterance       string         `json:"utterance,omitempty"`
	Command         string         `json:"command"`
	Summary         string         `json:"summary,omitempty"`
	WorkingDir      string         `json:"working_dir"`
	State           ExecutionState `json:"state"`
	ProposedAt      time.Time      `json:"proposed_at"`
	StartedAt       time.Time      `json:"started_at,omitempty"`
	EndedAt         time.Time      `json:"ended_at,omitempty"`
	ExitCode        int            `json:"exit_code"`
	Stdout          string         `json:"stdout,omitempty"`
	Stderr          string         `json:"stderr,omitempty"`
	OutputTruncated bool           `json:"output_truncated,omitempty"`
	CancelRequested bool           `json:"cancel_requested,omitempty"`
	PinnedAt        time.Time      `json:"pinned_at,omitempty"`
}

// Pinned reports whether the record is kept at the top of listings.
func (r ExecutionRecord) Pinned() bool { return !r.PinnedAt.IsZero() }

// Duration is the wall time between spawn and exit, zero if the process never ran.
func (r ExecutionRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// ExecutionEvent is one append-only mutation of an ExecutionRecord.
type ExecutionEvent struct {
	RecordID string
	From     ExecutionState
	To       ExecutionState
	At       time.Time
	Note     string
}
