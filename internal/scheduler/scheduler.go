// Package scheduler wires up the cron job that periodically triggers a
// scrape run through the orchestrator.
package scheduler

import (
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/bethmaloney/job-applier/internal/jobs"
)

// Scheduler wraps robfig/cron and kicks off scrape runs on an interval.
type Scheduler struct {
	cron *cron.Cron
	orch *jobs.Orchestrator
	spec string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(orch *jobs.Orchestrator, intervalHours int) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cron.DefaultLogger)),
		orch: orch,
		spec: fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.trigger)
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// trigger requests a scrape run. A run already in flight is not an error;
// the tick is simply skipped.
func (s *Scheduler) trigger() {
	run, err := s.orch.Start(jobs.NameScrape)
	if errors.Is(err, jobs.ErrAlreadyRunning) {
		log.Println("[scheduler] Scrape already running — skipping tick")
		return
	}
	if err != nil {
		log.Printf("[scheduler] Start scrape error: %v", err)
		return
	}
	log.Printf("[scheduler] Scrape run %s started", run.ID)
}
