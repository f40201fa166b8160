// Package merge reconciles freshly fetched listings against the store.
package merge

import (
	"context"
	"errors"
	"time"

	"github.com/bethmaloney/job-applier/internal/model"
	"github.com/bethmaloney/job-applier/internal/store"
)

// Reporter receives per-record soft errors.
type Reporter interface {
	SoftError(item, msg string)
}

// Merger deduplicates raw listings into the store.
type Merger struct {
	store store.Store
}

// New returns a Merger writing to s.
func New(s store.Store) *Merger {
	return &Merger{store: s}
}

// Merge reconciles listings against the store one record at a time:
// never-seen keys are inserted with status NEW; existing keys get only
// their descriptive fields updated, and only when something actually
// changed (identical re-fetches are skipped to avoid updated_at churn).
// Listings matching an exclusion term are dropped and counted as skipped.
// A failure on one record is a soft error; the rest still merge. Calling
// Merge again with the same input converges on the same stored state.
func (m *Merger) Merge(ctx context.Context, listings []model.RawListing, exclusions []string, rep Reporter) model.MergeResult {
	var res model.MergeResult
	for _, raw := range listings {
		if ctx.Err() != nil {
			return res
		}
		if ContainsExcludedTerm(raw.Title, raw.Company, raw.Description, exclusions) {
			res.Skipped++
			continue
		}
		switch outcome, err := m.mergeOne(ctx, raw); {
		case err != nil:
			rep.SoftError(raw.Title, err.Error())
		default:
			switch outcome {
			case outcomeInserted:
				res.Inserted++
			case outcomeUpdated:
				res.Updated++
			case outcomeSkipped:
				res.Skipped++
			}
		}
	}
	return res
}

type outcome int

const (
	outcomeInserted outcome = iota
	outcomeUpdated
	outcomeSkipped
)

func (m *Merger) mergeOne(ctx context.Context, raw model.RawListing) (outcome, error) {
	key := store.DedupKey(raw)

	existing, err := m.store.GetByDedupKey(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec := newRecord(key, raw)
		err := m.store.Insert(ctx, rec)
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent writer; fall through to update.
			existing, err = m.store.GetByDedupKey(ctx, key)
			if err != nil {
				return 0, err
			}
			return m.update(ctx, key, existing, raw)
		}
		if err != nil {
			return 0, err
		}
		return outcomeInserted, nil
	case err != nil:
		return 0, err
	}

	return m.update(ctx, key, existing, raw)
}

func (m *Merger) update(ctx context.Context, key string, existing *model.ListingRecord, raw model.RawListing) (outcome, error) {
	merged := mergeFields(existing, raw)
	if identical(existing, merged) {
		return outcomeSkipped, nil
	}
	if err := m.store.UpdateFields(ctx, key, merged); err != nil {
		return 0, err
	}
	return outcomeUpdated, nil
}

func newRecord(key string, raw model.RawListing) *model.ListingRecord {
	return &model.ListingRecord{
		DedupKey:    key,
		Source:      raw.Source,
		ExternalID:  raw.ExternalID,
		Title:       raw.Title,
		Company:     raw.Company,
		Location:    raw.Location,
		URL:         raw.URL,
		Salary:      raw.Salary,
		Description: raw.Description,
		PostedAt:    raw.PostedAt,
		FetchedAt:   raw.FetchedAt,
		Status:      model.StatusNew,
	}
}

// mergeFields overlays the incoming listing on the stored one. Empty incoming
// fields keep the stored value so a list-page re-fetch never wipes a detail
// the store already has (e.g. a full description).
func mergeFields(existing *model.ListingRecord, raw model.RawListing) model.RawListing {
	merged := raw
	if merged.Title == "" {
		merged.Title = existing.Title
	}
	if merged.Company == "" {
		merged.Company = existing.Company
	}
	if merged.Location == "" {
		merged.Location = existing.Location
	}
	if merged.URL == "" {
		merged.URL = existing.URL
	}
	if merged.Salary == "" {
		merged.Salary = existing.Salary
	}
	if merged.Description == "" {
		merged.Description = existing.Description
	}
	if merged.PostedAt == nil {
		merged.PostedAt = existing.PostedAt
	}
	return merged
}

// identical reports whether the merged fields match what is already stored,
// ignoring FetchedAt (a re-fetch alone is not a change worth writing).
func identical(existing *model.ListingRecord, merged model.RawListing) bool {
	return existing.Title == merged.Title &&
		existing.Company == merged.Company &&
		existing.Location == merged.Location &&
		existing.URL == merged.URL &&
		existing.Salary == merged.Salary &&
		existing.Description == merged.Description &&
		timesEqual(existing.PostedAt, merged.PostedAt)
}

// timesEqual compares nullable timestamps at second precision, which is as
// much as the sources provide.
func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}
