package jobs

import "time"

// ItemError is one soft per-item failure recorded during a run.
type ItemError struct {
	Item    string `json:"item_label"`
	Message string `json:"message"`
}

// Progress is the live tally of a run. Total is nil while the amount of work
// is still unknown (e.g. before adapters have listed their pages).
type Progress struct {
	Processed   int         `json:"processed_count"`
	Total       *int        `json:"total_count"`
	CurrentItem string      `json:"current_item_label"`
	Errors      []ItemError `json:"errors"`
}

// Run is one invocation of a named job. The orchestrator owns it for its
// whole lifetime; callers only ever see snapshot copies.
type Run struct {
	ID         string     `json:"id"`
	Name       Name       `json:"name"`
	State      State      `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	// Summary is the human-readable terminal line, distinguishing a
	// job-level failure from "N items had soft errors, job completed".
	Summary  string   `json:"summary,omitempty"`
	Progress Progress `json:"progress"`
}

// snapshot returns a deep copy safe to hand out while the worker keeps
// mutating the original.
func (r Run) snapshot() Run {
	cp := r
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	if r.Progress.Total != nil {
		n := *r.Progress.Total
		cp.Progress.Total = &n
	}
	cp.Progress.Errors = append([]ItemError(nil), r.Progress.Errors...)
	return cp
}

// idleRun is the snapshot reported for a job that has never been started.
func idleRun(name Name) Run {
	return Run{Name: name, State: StateIdle, Progress: Progress{Errors: []ItemError{}}}
}
