// Package scraper implements the source adapters that fetch job listings
// from external boards.
//
// Each adapter paginates internally and inserts a randomised polite delay
// between every two outbound requests of one Fetch call. A single failed
// page or detail request is reported as a soft error and fetching continues;
// only a source-level failure (e.g. nothing parseable on the first page)
// aborts the adapter, and never its siblings.
package scraper

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bethmaloney/job-applier/internal/model"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Report receives progress and soft errors from an adapter run. The job
// orchestrator's progress tracker implements it.
type Report interface {
	// Item records one processed unit of work and its label.
	Item(label string)
	// AddTotal grows the known total once an adapter has listed its items.
	AddTotal(n int)
	// SoftError records a per-item failure without aborting the run.
	SoftError(item, msg string)
}

// Adapter is the per-source fetch capability. Fetch is finite and not
// restartable: every call re-issues network requests from the start.
type Adapter interface {
	Source() model.Source
	Fetch(ctx context.Context, queries []model.SearchQuery, rep Report) ([]model.RawListing, error)
	// FetchDetail retrieves the full description (and salary, when the page
	// exposes one) for a single listing URL. Used by the refresh job.
	FetchDetail(ctx context.Context, url string) (description, salary string, err error)
}

// Options holds the knobs shared by all adapters.
type Options struct {
	MaxPages       int
	PageSize       int
	MinDelay       time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
}

// NewClient builds the shared resty client with browser headers and a
// per-request timeout.
func NewClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-AU,en;q=0.9")
}

// PoliteDelay sleeps for a uniformly random duration in [min, max]. It
// returns early with the context error on cancellation so workers stop
// promptly instead of finishing the sleep.
func PoliteDelay(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min + 1)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parsePostedAt normalises the date formats the boards emit. Unparseable
// values are dropped rather than guessed.
func parsePostedAt(s string) *time.Time {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
