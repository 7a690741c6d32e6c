package poller

import "errors"

// State is the lifecycle state of one polling run.
type State string

const (
	// StateIdle is the initial state before the first tick.
	StateIdle State = "idle"
	// StatePolling means the run is ticking and no terminal status was seen yet.
	StatePolling State = "polling"
	// StateCompleted means the provider reported completion with a video URL.
	StateCompleted State = "completed"
	// StateFailed means the provider reported the job failed or was cancelled.
	StateFailed State = "failed"
	// StateTimedOut means the attempt ceiling was reached first.
	StateTimedOut State = "timed_out"
	// StateCancelled means the run was superseded, stopped or its context ended.
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transition can leave s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut || s == StateCancelled
}

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[State][]State{
	StateIdle:      {StatePolling, StateCancelled},
	StatePolling:   {StateCompleted, StateFailed, StateTimedOut, StateCancelled},
	StateCompleted: {},
	StateFailed:    {},
	StateTimedOut:  {},
	StateCancelled: {},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
