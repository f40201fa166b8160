// Package store persists listings, the user profile and the scrape log.
//
// All write operations are atomic at the single-record level so that
// concurrent scrape/rank/refresh workers can interleave safely. The dedup_key
// column carries a uniqueness constraint; any engine satisfying those two
// properties can sit behind the Store interface.
package store

import (
	"context"
	"errors"

	"github.com/bethmaloney/job-applier/internal/model"
)

// ErrNotFound is returned when a listing or profile does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned by Insert when the dedup_key already exists.
// Callers racing on the same key fall back to an update.
var ErrDuplicate = errors.New("duplicate dedup key")

// ListFilter narrows and orders List results.
type ListFilter struct {
	Status *model.ListingStatus
	Source *model.Source
	Sort   string // "rank" (default), "fetched" or "company"
}

// ListingStats holds the dashboard counters.
type ListingStats struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Applied   int `json:"applied"`
	Dismissed int `json:"dismissed"`
	Unranked  int `json:"unranked"`
}

// Store is the persistence boundary for the aggregator.
type Store interface {
	GetByDedupKey(ctx context.Context, key string) (*model.ListingRecord, error)
	// Insert stores a new listing. ID, CreatedAt and UpdatedAt are filled on
	// the passed record. Returns ErrDuplicate when the key is already present.
	Insert(ctx context.Context, rec *model.ListingRecord) error
	// UpdateFields overwrites the mutable descriptive fields of the listing
	// with the given dedup key. Status and rank fields are never touched.
	UpdateFields(ctx context.Context, key string, raw model.RawListing) error
	SetStatus(ctx context.Context, id int64, status model.ListingStatus) error
	// SetRank persists a ranking result and stamps ranked_at.
	SetRank(ctx context.Context, id int64, score int, explanation string) error
	// UpdateDescription replaces a listing's description (and salary when
	// non-empty) and clears its rank so the next rank run re-scores it.
	UpdateDescription(ctx context.Context, id int64, description, salary string) error
	List(ctx context.Context, f ListFilter) ([]model.ListingRecord, error)
	// ListUnranked returns non-dismissed listings with no rank score.
	ListUnranked(ctx context.Context) ([]model.ListingRecord, error)
	// ListForRefresh returns non-dismissed listings missing a description or
	// a rank score, newest first.
	ListForRefresh(ctx context.Context, limit int) ([]model.ListingRecord, error)
	Stats(ctx context.Context) (*ListingStats, error)

	GetProfile(ctx context.Context) (*model.UserProfile, error)
	SaveProfile(ctx context.Context, p *model.UserProfile) error

	LogScrape(ctx context.Context, entry model.ScrapeLogEntry) error
	ListScrapeLog(ctx context.Context, limit int) ([]model.ScrapeLogEntry, error)
}
