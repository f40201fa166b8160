package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/bethmaloney/job-applier/internal/store"
)

// runRank scores every unranked listing against the user profile. Each
// successful score is persisted immediately so partial progress survives a
// cancellation or crash; invocation failures are soft per-item errors.
func (o *Orchestrator) runRank(ctx context.Context, t *Tracker) error {
	profile, err := o.deps.Store.GetProfile(ctx)
	if errors.Is(err, store.ErrNotFound) {
		t.SetSummary("no profile configured, nothing ranked")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	unranked, err := o.deps.Store.ListUnranked(ctx)
	if err != nil {
		return fmt.Errorf("list unranked: %w", err)
	}
	t.AddTotal(len(unranked))

	ranked := 0
	for _, rec := range unranked {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.Item(rec.Title)

		score, err := o.deps.Invoker.Invoke(ctx, rec, *profile)
		if err != nil {
			// A cancellation kills the in-flight CLI; that is not a
			// per-item failure.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.SoftError(rec.Title, err.Error())
			continue
		}
		if err := o.deps.Store.SetRank(ctx, rec.ID, score.Value, score.Explanation); err != nil {
			t.SoftError(rec.Title, err.Error())
			continue
		}
		ranked++
	}

	summary := fmt.Sprintf("ranked %d of %d listings", ranked, len(unranked))
	if n := t.ErrorCount(); n > 0 {
		summary += fmt.Sprintf(", %d items had soft errors", n)
	}
	t.SetSummary(summary)
	return nil
}
