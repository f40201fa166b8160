package jobs_test

import (
	"testing"

	"github.com/bethmaloney/job-applier/internal/jobs"
)

// All five constants must round-trip through ParseState without error.
func TestParseState_AllConstantsRoundTrip(t *testing.T) {
	all := []jobs.State{
		jobs.StateIdle,
		jobs.StateRunning,
		jobs.StateSucceeded,
		jobs.StateFailed,
		jobs.StateCancelled,
	}
	for _, s := range all {
		got, err := jobs.ParseState(string(s))
		if err != nil {
			t.Errorf("ParseState(%q) unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseState(%q) = %q, want %q", s, got, s)
		}
	}
}

// ParseState must be case-sensitive — lowercase variants must not be valid.
func TestParseState_CaseSensitive(t *testing.T) {
	lowercase := []string{"idle", "running", "succeeded", "failed", "cancelled"}
	for _, s := range lowercase {
		if _, err := jobs.ParseState(s); err == nil {
			t.Errorf("ParseState(%q) should reject lowercase value, got nil error", s)
		}
	}
}

func TestParseName(t *testing.T) {
	for _, s := range []string{"scrape", "rank", "refresh"} {
		got, err := jobs.ParseName(s)
		if err != nil {
			t.Errorf("ParseName(%q) unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseName(%q) = %q", s, got)
		}
	}
	for _, s := range []string{"", "SCRAPE", "rescrape", "rank "} {
		if _, err := jobs.ParseName(s); err == nil {
			t.Errorf("ParseName(%q) should fail", s)
		}
	}
}

// Every terminal state must allow exactly one outgoing transition: back to
// RUNNING when the job is started again.
func TestIsTransitionAllowed_TerminalStatesRestart(t *testing.T) {
	terminals := []jobs.State{jobs.StateSucceeded, jobs.StateFailed, jobs.StateCancelled}
	all := []jobs.State{
		jobs.StateIdle,
		jobs.StateRunning,
		jobs.StateSucceeded,
		jobs.StateFailed,
		jobs.StateCancelled,
	}
	for _, from := range terminals {
		if !jobs.IsTerminal(from) {
			t.Errorf("IsTerminal(%s) = false, want true", from)
		}
		for _, to := range all {
			allowed := jobs.IsTransitionAllowed(from, to)
			if to == jobs.StateRunning && !allowed {
				t.Errorf("IsTransitionAllowed(%s → RUNNING) must be true", from)
			}
			if to != jobs.StateRunning && allowed {
				t.Errorf("IsTransitionAllowed(%s → %s) must be false", from, to)
			}
		}
	}
}

// RUNNING may only end in a terminal state, never jump back to IDLE.
func TestIsTransitionAllowed_RunningOutgoing(t *testing.T) {
	if jobs.IsTransitionAllowed(jobs.StateRunning, jobs.StateIdle) {
		t.Error("RUNNING → IDLE must not be allowed")
	}
	if jobs.IsTransitionAllowed(jobs.StateRunning, jobs.StateRunning) {
		t.Error("RUNNING → RUNNING must not be allowed")
	}
	for _, to := range []jobs.State{jobs.StateSucceeded, jobs.StateFailed, jobs.StateCancelled} {
		if !jobs.IsTransitionAllowed(jobs.StateRunning, to) {
			t.Errorf("RUNNING → %s must be allowed", to)
		}
	}
}
