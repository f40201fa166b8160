package jobs

import (
	"context"
	"fmt"

	"github.com/bethmaloney/job-applier/internal/model"
	"github.com/bethmaloney/job-applier/internal/scraper"
)

// runRefresh re-fetches detail pages for listings that are missing a
// description or a rank, updating the stored description. An updated
// description clears the listing's rank so the next rank run re-scores it.
// The loop is serialized with the polite delay between items since all
// requests leave through this single worker.
func (o *Orchestrator) runRefresh(ctx context.Context, t *Tracker) error {
	adapters := make(map[model.Source]scraper.Adapter, len(o.deps.Adapters))
	for _, a := range o.deps.Adapters {
		adapters[a.Source()] = a
	}

	recs, err := o.deps.Store.ListForRefresh(ctx, o.deps.RefreshLimit)
	if err != nil {
		return fmt.Errorf("list for refresh: %w", err)
	}
	t.AddTotal(len(recs))

	updated := 0
	requested := false
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.Item(rec.Title)

		adapter, ok := adapters[rec.Source]
		if !ok || rec.URL == "" {
			continue
		}
		if requested {
			if err := scraper.PoliteDelay(ctx, o.deps.MinDelay, o.deps.MaxDelay); err != nil {
				return err
			}
		}
		requested = true

		description, salary, err := adapter.FetchDetail(ctx, rec.URL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.SoftError(rec.Title, err.Error())
			continue
		}
		if description == "" || description == rec.Description {
			continue
		}
		if rec.Salary != "" {
			salary = "" // keep the salary already on record
		}
		if err := o.deps.Store.UpdateDescription(ctx, rec.ID, description, salary); err != nil {
			t.SoftError(rec.Title, err.Error())
			continue
		}
		updated++
	}

	summary := fmt.Sprintf("refreshed %d of %d listings", updated, len(recs))
	if n := t.ErrorCount(); n > 0 {
		summary += fmt.Sprintf(", %d items had soft errors", n)
	}
	t.SetSummary(summary)
	return nil
}
