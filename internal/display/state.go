// Package display holds the presentation-facing state of command invocations.
//
// A Binding owns the Display State of one command: the last-known value and
// whether it is still pending, succeeded or failed. Failures are recorded as
// a Failed phase with a reason, never as a bare empty value.
package display

import (
	"time"
)

// Phase is where a Binding's invocation stands.
type Phase int

const (
	// Idle means no invocation has been attempted yet.
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of a Binding's Display State.
type State[T any] struct {
	Phase Phase
	// Value is the command payload on success and the empty default otherwise.
	Value T
	// Err and Reason are set only in the Failed phase.
	Err       error
	Reason    string
	UpdatedAt time.Time
}

// Done reports whether the state is terminal.
func (s State[T]) Done() bool {
	return s.Phase == Succeeded || s.Phase == Failed
}
