package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bethmaloney/job-applier/internal/merge"
	"github.com/bethmaloney/job-applier/internal/model"
	"github.com/bethmaloney/job-applier/internal/store"
)

// runScrape fans the configured source adapters out concurrently and merges
// each adapter's output into the store. Adapters fail independently: a
// source-level failure becomes a soft error at adapter granularity and never
// aborts siblings.
func (o *Orchestrator) runScrape(ctx context.Context, t *Tracker) error {
	exclusions, err := o.profileExclusions(ctx)
	if err != nil {
		// Persistence unreachable before any work happened: job-level failure.
		return err
	}

	merger := merge.New(o.deps.Store)

	var (
		mu    sync.Mutex
		total model.MergeResult
	)
	// The group only collects goroutine completion; adapter errors are soft
	// and must not cancel siblings, so workers always return nil.
	g := new(errgroup.Group)
	for _, a := range o.deps.Adapters {
		a := a // per-iteration copy for the goroutine below (pre-1.22 loop semantics)
		queries := o.deps.Queries[a.Source()]
		if len(queries) == 0 {
			continue
		}
		g.Go(func() error {
			source := string(a.Source())
			listings, fetchErr := a.Fetch(ctx, queries, t)
			if fetchErr != nil && !errors.Is(fetchErr, context.Canceled) {
				t.SoftError(source, fetchErr.Error())
			}

			res := merger.Merge(ctx, listings, exclusions, t)
			mu.Lock()
			total.Add(res)
			mu.Unlock()

			entry := model.ScrapeLogEntry{
				Source:   a.Source(),
				Found:    len(listings),
				Inserted: res.Inserted,
				Updated:  res.Updated,
			}
			if fetchErr != nil && !errors.Is(fetchErr, context.Canceled) {
				entry.Errors = fetchErr.Error()
			}
			if err := o.deps.Store.LogScrape(ctx, entry); err != nil {
				slog.Warn("scrape log write failed", "source", source, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	summary := fmt.Sprintf("scrape complete: %d inserted, %d updated, %d skipped",
		total.Inserted, total.Updated, total.Skipped)
	if n := t.ErrorCount(); n > 0 {
		summary += fmt.Sprintf(", %d items had soft errors", n)
	}
	t.SetSummary(summary)
	return nil
}

// profileExclusions loads the profile's exclusion terms. A missing profile
// just means no filtering; any other store error is fatal to the job.
func (o *Orchestrator) profileExclusions(ctx context.Context) ([]string, error) {
	profile, err := o.deps.Store.GetProfile(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile.Exclusions, nil
}
