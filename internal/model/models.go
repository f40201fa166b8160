// Package model defines the shared data structures for the job aggregator.
package model

import (
	"fmt"
	"time"
)

// Source identifies the external job board a listing came from.
type Source string

const (
	SourceSeek     Source = "seek"
	SourceLinkedIn Source = "linkedin"
)

// ParseSource converts a raw string to a Source, returning an error for
// unknown values.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	switch src {
	case SourceSeek, SourceLinkedIn:
		return src, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// ListingStatus mirrors the status column on the listings table.
type ListingStatus string

const (
	StatusNew       ListingStatus = "NEW"
	StatusSeen      ListingStatus = "SEEN"
	StatusApplied   ListingStatus = "APPLIED"
	StatusDismissed ListingStatus = "DISMISSED"
)

// ParseListingStatus converts a raw string to a ListingStatus, returning an
// error for unknown values.
func ParseListingStatus(s string) (ListingStatus, error) {
	st := ListingStatus(s)
	switch st {
	case StatusNew, StatusSeen, StatusApplied, StatusDismissed:
		return st, nil
	}
	return "", fmt.Errorf("unknown listing status %q", s)
}

// RawListing is a single job posting as fetched from a source. It lives only
// for the duration of the fetch that produced it; the merger converts it into
// a durable ListingRecord.
type RawListing struct {
	Source      Source
	ExternalID  string
	Title       string
	Company     string
	Location    string
	URL         string
	Salary      string
	Description string
	PostedAt    *time.Time
	FetchedAt   time.Time
}

// ListingRecord is the durable form of a listing. DedupKey is unique across
// the store; Status and rank fields are owned by user/ranking actions and are
// never touched by a merge.
type ListingRecord struct {
	ID              int64         `json:"id"`
	DedupKey        string        `json:"dedupKey"`
	Source          Source        `json:"source"`
	ExternalID      string        `json:"externalId"`
	Title           string        `json:"title"`
	Company         string        `json:"company"`
	Location        string        `json:"location"`
	URL             string        `json:"url"`
	Salary          string        `json:"salary,omitempty"`
	Description     string        `json:"description,omitempty"`
	PostedAt        *time.Time    `json:"postedAt"`
	FetchedAt       time.Time     `json:"fetchedAt"`
	Status          ListingStatus `json:"status"`
	RankScore       *int          `json:"rankScore"`
	RankExplanation *string       `json:"rankExplanation"`
	RankedAt        *time.Time    `json:"rankedAt"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// SearchQuery is the opaque per-source search configuration. Seek queries
// carry a full search URL; LinkedIn queries carry a keywords+location pair.
type SearchQuery struct {
	Source   Source
	URL      string
	Keywords string
	Location string
}

// Label returns a short human-readable form used in progress and error
// reporting.
func (q SearchQuery) Label() string {
	if q.URL != "" {
		return q.URL
	}
	return fmt.Sprintf("%s in %s", q.Keywords, q.Location)
}

// MergeResult tallies one merge pass.
type MergeResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// Add accumulates another result into r.
func (r *MergeResult) Add(other MergeResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Skipped += other.Skipped
}

// UserProfile is the single-row candidate profile used to build ranking
// prompts. Exclusions are terms that discard a listing before insert.
type UserProfile struct {
	Skills       string    `json:"skills"`
	Preferences  string    `json:"preferences"`
	ResumeText   string    `json:"resumeText"`
	TargetTitles string    `json:"targetTitles"`
	MinSalary    *int      `json:"minSalary"`
	Location     string    `json:"location"`
	Exclusions   []string  `json:"exclusions"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ScrapeLogEntry records the outcome of one source's contribution to a
// scrape run.
type ScrapeLogEntry struct {
	ID        int64     `json:"id"`
	Source    Source    `json:"source"`
	Found     int       `json:"found"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Errors    string    `json:"errors,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
