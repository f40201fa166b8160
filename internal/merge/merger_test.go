package merge_test

import (
	"context"
	"testing"
	"time"

	"github.com/bethmaloney/job-applier/internal/merge"
	"github.com/bethmaloney/job-applier/internal/model"
	"github.com/bethmaloney/job-applier/internal/store"
)

// nopReporter discards soft errors.
type nopReporter struct{}

func (nopReporter) SoftError(string, string) {}

func raw(source model.Source, externalID, title string) model.RawListing {
	return model.RawListing{
		Source:     source,
		ExternalID: externalID,
		Title:      title,
		Company:    "Acme",
		Location:   "Sydney NSW",
		URL:        "https://example.com/" + externalID,
		FetchedAt:  time.Now().UTC(),
	}
}

func TestMerge_InsertsNewListings(t *testing.T) {
	mem := store.NewMemory()
	m := merge.New(mem)
	ctx := context.Background()

	batch := []model.RawListing{
		raw(model.SourceSeek, "1", "Go Developer"),
		raw(model.SourceSeek, "2", "Backend Engineer"),
		raw(model.SourceLinkedIn, "100", "Platform Engineer"),
	}
	res := m.Merge(ctx, batch, nil, nopReporter{})
	if res.Inserted != 3 || res.Updated != 0 || res.Skipped != 0 {
		t.Errorf("result = %+v, want 3 inserted", res)
	}

	listings, err := mem.List(ctx, store.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 3 {
		t.Fatalf("stored = %d, want 3", len(listings))
	}
	for _, l := range listings {
		if l.Status != model.StatusNew {
			t.Errorf("listing %s status = %s, want NEW", l.Title, l.Status)
		}
	}
}

// The same external ID from the same source must collapse to one record,
// even when the batch itself carries the duplicate.
func TestMerge_DuplicateWithinBatch(t *testing.T) {
	mem := store.NewMemory()
	m := merge.New(mem)
	ctx := context.Background()

	first := raw(model.SourceSeek, "1", "Go Developer")
	second := raw(model.SourceSeek, "1", "Go Developer")
	res := m.Merge(ctx, []model.RawListing{first, second}, nil, nopReporter{})
	if res.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", res.Inserted)
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 for identical re-fetch", res.Skipped)
	}

	listings, _ := mem.List(ctx, store.ListFilter{})
	if len(listings) != 1 {
		t.Errorf("stored = %d, want 1", len(listings))
	}
}

// Re-merging an unchanged batch must be a no-op: all skipped, same state.
func TestMerge_Idempotent(t *testing.T) {
	mem := store.NewMemory()
	m := merge.New(mem)
	ctx := context.Background()

	batch := []model.RawListing{
		raw(model.SourceSeek, "1", "Go Developer"),
		raw(model.SourceSeek, "2", "Backend Engineer"),
	}
	m.Merge(ctx, batch, nil, nopReporter{})

	res := m.Merge(ctx, batch, nil, nopReporter{})
	if res.Inserted != 0 || res.Updated != 0 || res.Skipped != 2 {
		t.Errorf("second merge = %+v, want all skipped", res)
	}
}

// A changed descriptive field updates the record; status and rank survive.
func TestMerge_UpdatePreservesStatusAndRank(t *testing.T) {
	mem := store.NewMemory()
	m := merge.New(mem)
	ctx := context.Background()

	original := raw(model.SourceSeek, "1", "Go Developer")
	m.Merge(ctx, []model.RawListing{original}, nil, nopReporter{})

	stored, err := mem.GetByDedupKey(ctx, store.DedupKey(original))
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.SetStatus(ctx, stored.ID, model.StatusApplied); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetRank(ctx, stored.ID, 7, "good fit"); err != nil {
		t.Fatal(err)
	}

	changed := original
	changed.Salary = "$140k - $160k"
	res := m.Merge(ctx, []model.RawListing{changed}, nil, nopReporter{})
	if res.Updated != 1 {
		t.Fatalf("result = %+v, want 1 updated", res)
	}

	after, _ := mem.GetByDedupKey(ctx, store.DedupKey(original))
	if after.Salary != "$140k - $160k" {
		t.Errorf("salary = %q, want updated value", after.Salary)
	}
	if after.Status != model.StatusApplied {
		t.Errorf("status = %s, want APPLIED preserved across merge", after.Status)
	}
	if after.RankScore == nil || *after.RankScore != 7 {
		t.Errorf("rank = %v, want 7 preserved across merge", after.RankScore)
	}
}

// An empty incoming field must not wipe a richer stored value.
func TestMerge_EmptyFieldsKeepStoredValues(t *testing.T) {
	mem := store.NewMemory()
	m := merge.New(mem)
	ctx := context.Background()

	detailed := raw(model.SourceSeek, "1", "Go Developer")
	detailed.Description = "Full description fetched from the detail page."
	m.Merge(ctx, []model.RawListing{detailed}, nil, nopReporter{})

	// List-page re-fetch: no description.
	listPage := raw(model.SourceSeek, "1", "Go Developer")
	res := m.Merge(ctx, []model.RawListing{listPage}, nil, nopReporter{})
	if res.Skipped != 1 {
		t.Errorf("result = %+v, want skipped (nothing effectively changed)", res)
	}

	after, _ := mem.GetByDedupKey(ctx, store.DedupKey(detailed))
	if after.Description != detailed.Description {
		t.Errorf("description = %q, want stored detail preserved", after.Description)
	}
}

// staleReadStore simulates losing an insert race: the first lookup misses
// even though a concurrent writer has already stored the record, so the
// merger's Insert comes back ErrDuplicate and it must fall through to the
// update path.
type staleReadStore struct {
	store.Store
	missed bool
}

func (s *staleReadStore) GetByDedupKey(ctx context.Context, key string) (*model.ListingRecord, error) {
	if !s.missed {
		s.missed = true
		return nil, store.ErrNotFound
	}
	return s.Store.GetByDedupKey(ctx, key)
}

func TestMerge_LostInsertRaceFallsBackToUpdate(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	original := raw(model.SourceSeek, "1", "Go Developer")
	merge.New(mem).Merge(ctx, []model.RawListing{original}, nil, nopReporter{})

	// Re-fetch with a changed field through a store whose first read misses.
	changed := original
	changed.Salary = "$140k - $160k"
	res := merge.New(&staleReadStore{Store: mem}).Merge(ctx, []model.RawListing{changed}, nil, nopReporter{})
	if res.Inserted != 0 || res.Updated != 1 || res.Skipped != 0 {
		t.Fatalf("result = %+v, want the race to resolve as 1 updated", res)
	}

	after, err := mem.GetByDedupKey(ctx, store.DedupKey(original))
	if err != nil {
		t.Fatal(err)
	}
	if after.Salary != "$140k - $160k" {
		t.Errorf("salary = %q, want the racing fetch's value applied", after.Salary)
	}

	listings, _ := mem.List(ctx, store.ListFilter{})
	if len(listings) != 1 {
		t.Errorf("stored = %d, want the duplicate collapsed to one record", len(listings))
	}
}

func TestMerge_LostInsertRaceIdenticalIsSkipped(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	original := raw(model.SourceSeek, "1", "Go Developer")
	merge.New(mem).Merge(ctx, []model.RawListing{original}, nil, nopReporter{})

	res := merge.New(&staleReadStore{Store: mem}).Merge(ctx, []model.RawListing{original}, nil, nopReporter{})
	if res.Inserted != 0 || res.Updated != 0 || res.Skipped != 1 {
		t.Fatalf("result = %+v, want the race on an identical record to skip", res)
	}
}

func TestMerge_ExclusionTermsSkipListings(t *testing.T) {
	mem := store.NewMemory()
	m := merge.New(mem)
	ctx := context.Background()

	recruiting := raw(model.SourceSeek, "1", "Go Developer")
	recruiting.Company = "Shady Recruitment Agency"
	keeper := raw(model.SourceSeek, "2", "Backend Engineer")

	res := m.Merge(ctx, []model.RawListing{recruiting, keeper}, []string{"recruitment"}, nopReporter{})
	if res.Inserted != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v, want 1 inserted, 1 skipped", res)
	}

	listings, _ := mem.List(ctx, store.ListFilter{})
	if len(listings) != 1 || listings[0].Title != "Backend Engineer" {
		t.Errorf("stored = %+v, want only the non-excluded listing", listings)
	}
}

// Sources without an external ID dedupe on the normalised
// (title, company, location) triple; cosmetic whitespace and case
// differences must map to the same record.
func TestMerge_FallbackKeyNormalisation(t *testing.T) {
	mem := store.NewMemory()
	m := merge.New(mem)
	ctx := context.Background()

	a := model.RawListing{
		Source: model.SourceLinkedIn, Title: "Go Developer",
		Company: "Acme Corp", Location: "Sydney NSW",
		FetchedAt: time.Now().UTC(),
	}
	b := model.RawListing{
		Source: model.SourceLinkedIn, Title: "  go   developer ",
		Company: "ACME CORP", Location: "sydney nsw",
		FetchedAt: time.Now().UTC(),
	}
	if store.DedupKey(a) != store.DedupKey(b) {
		t.Fatal("normalised fallback keys must match")
	}

	res := m.Merge(ctx, []model.RawListing{a, b}, nil, nopReporter{})
	if res.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", res.Inserted)
	}

	listings, _ := mem.List(ctx, store.ListFilter{})
	if len(listings) != 1 {
		t.Errorf("stored = %d, want 1", len(listings))
	}
}

func TestContainsExcludedTerm(t *testing.T) {
	cases := []struct {
		name                        string
		title, company, description string
		terms                       []string
		want                        bool
	}{
		{"no terms", "Go Developer", "Acme", "", nil, false},
		{"title match", "Senior Recruiter", "Acme", "", []string{"recruiter"}, true},
		{"company match", "Go Developer", "Hays Recruitment", "", []string{"recruitment"}, true},
		{"description match", "Go Developer", "Acme", "via our agency partner", []string{"agency"}, true},
		{"case insensitive", "GO DEVELOPER", "Acme", "", []string{"go developer"}, true},
		{"empty term ignored", "Go Developer", "Acme", "", []string{""}, false},
		{"no match", "Go Developer", "Acme", "great team", []string{"php", "wordpress"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := merge.ContainsExcludedTerm(tc.title, tc.company, tc.description, tc.terms)
			if got != tc.want {
				t.Errorf("ContainsExcludedTerm() = %v, want %v", got, tc.want)
			}
		})
	}
}
