// Package jobs runs the named background operations (scrape, rank, refresh)
// and owns their lifecycle.
//
// Per-job state machine:
//
//	IDLE ──► RUNNING ──► SUCCEEDED
//	              │────► FAILED
//	              └────► CANCELLED
//
// Terminal states transition back to RUNNING when the job is started again;
// the previous run's record is discarded at that point.
package jobs

import "fmt"

// State is the lifecycle state of a job run.
type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[State][]State{
	StateIdle:      {StateRunning},
	StateRunning:   {StateSucceeded, StateFailed, StateCancelled},
	StateSucceeded: {StateRunning},
	StateFailed:    {StateRunning},
	StateCancelled: {StateRunning},
}

// ParseState converts a raw string to a State, returning an error for
// unknown values.
func ParseState(s string) (State, error) {
	st := State(s)
	switch st {
	case StateIdle, StateRunning, StateSucceeded, StateFailed, StateCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown job state %q", s)
}

// IsTerminal returns true for states a finished run rests in.
func IsTerminal(s State) bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Name identifies a long-running operation. At most one run per name is
// active at any time; different names run fully concurrently.
type Name string

const (
	NameScrape  Name = "scrape"
	NameRank    Name = "rank"
	NameRefresh Name = "refresh"
)

// ParseName converts a raw string to a job Name, returning an error for
// unknown values.
func ParseName(s string) (Name, error) {
	n := Name(s)
	switch n {
	case NameScrape, NameRank, NameRefresh:
		return n, nil
	}
	return "", fmt.Errorf("unknown job %q", s)
}
