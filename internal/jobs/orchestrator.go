package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bethmaloney/job-applier/internal/model"
	"github.com/bethmaloney/job-applier/internal/ranker"
	"github.com/bethmaloney/job-applier/internal/scraper"
	"github.com/bethmaloney/job-applier/internal/store"
)

// ─── Errors ──────────────────────────────────────────────────────────────────

// ErrAlreadyRunning is returned by Start when a run for that name is still
// in RUNNING state. It is a synchronous conflict, never part of any run.
var ErrAlreadyRunning = errors.New("job already running")

// ErrUnknownJob is returned for names outside scrape/rank/refresh.
var ErrUnknownJob = errors.New("unknown job")

// ─── Orchestrator ────────────────────────────────────────────────────────────

// eventsChannel is the Redis channel state transitions are published to.
const eventsChannel = "jobs.events"

// worker is the body of one job run, executed off the caller's control path.
// It must poll ctx between discrete units of work and return ctx.Err() once
// cancellation is observed.
type worker func(ctx context.Context, t *Tracker) error

// Options holds the orchestrator's collaborators. Redis is optional; when
// nil, state-change events are simply not published.
type Options struct {
	Store    store.Store
	Adapters []scraper.Adapter
	Queries  map[model.Source][]model.SearchQuery
	Invoker  ranker.Invoker
	Redis    *redis.Client

	// RefreshLimit caps how many listings one refresh run re-fetches.
	RefreshLimit int
	// MinDelay/MaxDelay bound the polite delay between detail requests
	// issued by the refresh worker.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Orchestrator manages one mutex-guarded run slot per job name. It is the
// only writer of run state; all reads go through snapshot copies.
type Orchestrator struct {
	mu      sync.Mutex
	slots   map[Name]*slot
	workers map[Name]worker
	deps    Options
}

type slot struct {
	run    Run
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an Orchestrator with the scrape, rank and refresh workers
// registered.
func New(deps Options) *Orchestrator {
	o := &Orchestrator{
		slots: make(map[Name]*slot),
		deps:  deps,
	}
	o.workers = map[Name]worker{
		NameScrape:  o.runScrape,
		NameRank:    o.runRank,
		NameRefresh: o.runRefresh,
	}
	return o
}

// Start claims the slot for name and launches its worker. It returns the
// initial run snapshot, or ErrAlreadyRunning when a run for that name is
// still active. The previous terminal run, if any, is discarded.
func (o *Orchestrator) Start(name Name) (Run, error) {
	o.mu.Lock()

	w, ok := o.workers[name]
	if !ok {
		o.mu.Unlock()
		return Run{}, ErrUnknownJob
	}

	prev := StateIdle
	if s, ok := o.slots[name]; ok {
		prev = s.run.State
	}
	if !IsTransitionAllowed(prev, StateRunning) {
		o.mu.Unlock()
		return Run{}, ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &slot{
		run: Run{
			ID:        uuid.NewString(),
			Name:      name,
			State:     StateRunning,
			StartedAt: time.Now().UTC(),
			Progress:  Progress{Errors: []ItemError{}},
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	o.slots[name] = s
	started := s.run.snapshot()
	o.mu.Unlock()

	o.publish(started)
	go o.execute(ctx, name, w, s)
	return started, nil
}

// Status returns a consistent snapshot of the current (or most recent) run
// for name. A job that has never been started reports IDLE.
func (o *Orchestrator) Status(name Name) (Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.workers[name]; !ok {
		return Run{}, ErrUnknownJob
	}
	s, ok := o.slots[name]
	if !ok {
		return idleRun(name), nil
	}
	return s.run.snapshot(), nil
}

// Cancel signals the running worker for name to stop and returns
// immediately. The worker observes the signal at its next checkpoint;
// in-flight requests drain. Returns false when nothing is running.
func (o *Orchestrator) Cancel(name Name) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.slots[name]
	if !ok || s.run.State != StateRunning {
		return false
	}
	s.cancel()
	return true
}

// Wait blocks until the current run for name finishes. Used by tests and
// shutdown; returns immediately when nothing is running.
func (o *Orchestrator) Wait(name Name) {
	o.mu.Lock()
	s, ok := o.slots[name]
	o.mu.Unlock()
	if ok {
		<-s.done
	}
}

// Shutdown cancels every running job and waits for the workers to drain.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	var running []*slot
	for _, s := range o.slots {
		if s.run.State == StateRunning {
			s.cancel()
			running = append(running, s)
		}
	}
	o.mu.Unlock()
	for _, s := range running {
		<-s.done
	}
}

// execute runs the worker and records the terminal transition.
func (o *Orchestrator) execute(ctx context.Context, name Name, w worker, s *slot) {
	defer close(s.done)
	defer s.cancel()

	err := w(ctx, &Tracker{o: o, slot: s})

	o.mu.Lock()
	end := StateSucceeded
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		end = StateCancelled
	case err != nil:
		end = StateFailed
		s.run.Summary = fmt.Sprintf("job failed: %v", err)
	case ctx.Err() != nil:
		// Cancelled between the worker's last checkpoint and its return.
		end = StateCancelled
	}
	if !IsTransitionAllowed(s.run.State, end) {
		slog.Warn("illegal job transition", "job", name, "from", s.run.State, "to", end)
	}
	s.run.State = end
	now := time.Now().UTC()
	s.run.FinishedAt = &now
	if s.run.Summary == "" {
		s.run.Summary = defaultSummary(end, s.run.Progress)
	}
	finished := s.run.snapshot()
	o.mu.Unlock()

	o.publish(finished)
}

func defaultSummary(end State, p Progress) string {
	switch end {
	case StateCancelled:
		return fmt.Sprintf("cancelled after %d items", p.Processed)
	default:
		summary := fmt.Sprintf("completed: %d items processed", p.Processed)
		if n := len(p.Errors); n > 0 {
			summary += fmt.Sprintf(", %d items had soft errors", n)
		}
		return summary
	}
}

// publish sends a state-change event to Redis. Non-fatal: subscribers are a
// convenience, not a dependency.
func (o *Orchestrator) publish(run Run) {
	if o.deps.Redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	event, _ := json.Marshal(map[string]any{
		"type":  "JOB_STATE_CHANGED",
		"runId": run.ID,
		"name":  run.Name,
		"state": run.State,
	})
	if err := o.deps.Redis.Publish(ctx, eventsChannel, event).Err(); err != nil {
		slog.Warn("publish job event failed", "job", run.Name, "err", err)
	}
}
