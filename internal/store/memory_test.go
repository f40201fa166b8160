package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bethmaloney/job-applier/internal/model"
	"github.com/bethmaloney/job-applier/internal/store"
)

func insert(t *testing.T, s store.Store, externalID, title string) *model.ListingRecord {
	t.Helper()
	raw := model.RawListing{
		Source:     model.SourceSeek,
		ExternalID: externalID,
		Title:      title,
		Company:    "Acme",
		FetchedAt:  time.Now().UTC(),
	}
	rec := &model.ListingRecord{
		DedupKey:   store.DedupKey(raw),
		Source:     raw.Source,
		ExternalID: raw.ExternalID,
		Title:      raw.Title,
		Company:    raw.Company,
		FetchedAt:  raw.FetchedAt,
	}
	if err := s.Insert(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestInsert_DuplicateKey(t *testing.T) {
	mem := store.NewMemory()
	first := insert(t, mem, "1", "Go Developer")
	if first.ID == 0 {
		t.Error("Insert must assign an ID")
	}
	if first.Status != model.StatusNew {
		t.Errorf("status = %s, want NEW default", first.Status)
	}

	dup := &model.ListingRecord{DedupKey: first.DedupKey, Title: "Go Developer"}
	if err := mem.Insert(context.Background(), dup); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate insert err = %v, want ErrDuplicate", err)
	}
}

func TestSetRankAndUpdateDescription(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	rec := insert(t, mem, "1", "Go Developer")

	if err := mem.SetRank(ctx, rec.ID, 8, "strong match"); err != nil {
		t.Fatal(err)
	}
	got, _ := mem.GetByDedupKey(ctx, rec.DedupKey)
	if got.RankScore == nil || *got.RankScore != 8 || got.RankedAt == nil {
		t.Fatalf("rank not persisted: %+v", got)
	}

	// A refreshed description clears the rank and fills salary only when
	// one was provided.
	if err := mem.UpdateDescription(ctx, rec.ID, "full text", ""); err != nil {
		t.Fatal(err)
	}
	got, _ = mem.GetByDedupKey(ctx, rec.DedupKey)
	if got.Description != "full text" {
		t.Errorf("description = %q", got.Description)
	}
	if got.RankScore != nil || got.RankExplanation != nil || got.RankedAt != nil {
		t.Error("rank fields must be cleared by UpdateDescription")
	}

	if err := mem.SetRank(ctx, 999, 5, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetRank on missing id err = %v, want ErrNotFound", err)
	}
	if err := mem.UpdateDescription(ctx, 999, "x", ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateDescription on missing id err = %v, want ErrNotFound", err)
	}
}

func TestList_RankSortPutsUnrankedLast(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	low := insert(t, mem, "1", "Low")
	insert(t, mem, "2", "Unranked")
	high := insert(t, mem, "3", "High")

	if err := mem.SetRank(ctx, low.ID, 3, "meh"); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetRank(ctx, high.ID, 9, "great"); err != nil {
		t.Fatal(err)
	}

	recs, err := mem.List(ctx, store.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	titles := []string{recs[0].Title, recs[1].Title, recs[2].Title}
	want := []string{"High", "Low", "Unranked"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("order = %v, want %v", titles, want)
		}
	}
}

// The company sort breaks ties by rank, best first, unranked last — the
// same ordering the SQL implementation produces.
func TestList_CompanySortBreaksTiesByRank(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	zenithLow := insert(t, mem, "1", "Zenith low")
	acmeUnranked := insert(t, mem, "2", "Acme unranked")
	acmeHigh := insert(t, mem, "3", "Acme high")
	acmeLow := insert(t, mem, "4", "Acme low")

	// All inserted with Company "Acme"; move one to a later company.
	if err := mem.UpdateFields(ctx, zenithLow.DedupKey, model.RawListing{
		Title: zenithLow.Title, Company: "Zenith", FetchedAt: zenithLow.FetchedAt,
	}); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetRank(ctx, zenithLow.ID, 2, "x"); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetRank(ctx, acmeHigh.ID, 9, "x"); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetRank(ctx, acmeLow.ID, 4, "x"); err != nil {
		t.Fatal(err)
	}
	if acmeUnranked.RankScore != nil {
		t.Fatal("fixture listing must stay unranked")
	}

	recs, err := mem.List(ctx, store.ListFilter{Sort: "company"})
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, len(recs))
	for i, r := range recs {
		got[i] = r.Title
	}
	want := []string{"Acme high", "Acme low", "Acme unranked", "Zenith low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestListUnranked_SkipsDismissed(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	insert(t, mem, "1", "Keep")
	dismissed := insert(t, mem, "2", "Dismissed")
	if err := mem.SetStatus(ctx, dismissed.ID, model.StatusDismissed); err != nil {
		t.Fatal(err)
	}

	recs, err := mem.ListUnranked(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Title != "Keep" {
		t.Errorf("unranked = %+v, want only the non-dismissed listing", recs)
	}
}

func TestListForRefresh_LimitAndEligibility(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	complete := insert(t, mem, "1", "Complete")
	if err := mem.UpdateDescription(ctx, complete.ID, "text", ""); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetRank(ctx, complete.ID, 7, "fine"); err != nil {
		t.Fatal(err)
	}
	insert(t, mem, "2", "Missing description")
	insert(t, mem, "3", "Also missing")

	recs, err := mem.ListForRefresh(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("refresh candidates = %d, want limit applied", len(recs))
	}
	if recs[0].Title == "Complete" {
		t.Error("a ranked listing with a description must not be refreshed")
	}
}

func TestStats(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	insert(t, mem, "1", "A")
	b := insert(t, mem, "2", "B")
	c := insert(t, mem, "3", "C")
	if err := mem.SetStatus(ctx, b.ID, model.StatusApplied); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetStatus(ctx, c.ID, model.StatusDismissed); err != nil {
		t.Fatal(err)
	}

	stats, err := mem.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.New != 1 || stats.Applied != 1 || stats.Dismissed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Unranked != 2 {
		t.Errorf("unranked = %d, want 2 (dismissed excluded)", stats.Unranked)
	}
}
