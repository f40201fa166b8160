package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bethmaloney/job-applier/internal/model"
)

// Memory is an in-memory Store used by tests. Semantics mirror the Postgres
// implementation: single-record atomicity (one mutex) and dedup_key
// uniqueness.
type Memory struct {
	mu      sync.Mutex
	seq     int64
	byKey   map[string]*model.ListingRecord
	profile *model.UserProfile
	log     []model.ScrapeLogEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byKey: make(map[string]*model.ListingRecord)}
}

func (s *Memory) GetByDedupKey(_ context.Context, key string) (*model.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Memory) Insert(_ context.Context, rec *model.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[rec.DedupKey]; ok {
		return ErrDuplicate
	}
	s.seq++
	rec.ID = s.seq
	if rec.Status == "" {
		rec.Status = model.StatusNew
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	s.byKey[rec.DedupKey] = &cp
	return nil
}

func (s *Memory) UpdateFields(_ context.Context, key string, raw model.RawListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byKey[key]
	if !ok {
		return ErrNotFound
	}
	rec.Title = raw.Title
	rec.Company = raw.Company
	rec.Location = raw.Location
	rec.URL = raw.URL
	rec.Salary = raw.Salary
	rec.Description = raw.Description
	rec.PostedAt = raw.PostedAt
	rec.FetchedAt = raw.FetchedAt
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Memory) SetStatus(_ context.Context, id int64, status model.ListingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.byID(id)
	if rec == nil {
		return ErrNotFound
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Memory) SetRank(_ context.Context, id int64, score int, explanation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.byID(id)
	if rec == nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	rec.RankScore = &score
	rec.RankExplanation = &explanation
	rec.RankedAt = &now
	rec.UpdatedAt = now
	return nil
}

func (s *Memory) UpdateDescription(_ context.Context, id int64, description, salary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.byID(id)
	if rec == nil {
		return ErrNotFound
	}
	rec.Description = description
	if salary != "" {
		rec.Salary = salary
	}
	rec.RankScore = nil
	rec.RankExplanation = nil
	rec.RankedAt = nil
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Memory) List(_ context.Context, f ListFilter) ([]model.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := make([]model.ListingRecord, 0)
	for _, rec := range s.byKey {
		if f.Status != nil && rec.Status != *f.Status {
			continue
		}
		if f.Source != nil && rec.Source != *f.Source {
			continue
		}
		recs = append(recs, *rec)
	}
	switch f.Sort {
	case "fetched":
		sort.Slice(recs, func(i, j int) bool { return recs[i].FetchedAt.After(recs[j].FetchedAt) })
	case "company":
		sort.Slice(recs, func(i, j int) bool {
			if recs[i].Company != recs[j].Company {
				return recs[i].Company < recs[j].Company
			}
			return rankOf(recs[i]) > rankOf(recs[j])
		})
	default:
		sort.Slice(recs, func(i, j int) bool {
			if si, sj := rankOf(recs[i]), rankOf(recs[j]); si != sj {
				return si > sj
			}
			return recs[i].FetchedAt.After(recs[j].FetchedAt)
		})
	}
	return recs, nil
}

// rankOf orders unranked listings last, matching rank_score DESC NULLS LAST.
func rankOf(rec model.ListingRecord) int {
	if rec.RankScore == nil {
		return -1
	}
	return *rec.RankScore
}

func (s *Memory) ListUnranked(_ context.Context) ([]model.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := make([]model.ListingRecord, 0)
	for _, rec := range s.byKey {
		if rec.RankScore == nil && rec.Status != model.StatusDismissed {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

func (s *Memory) ListForRefresh(_ context.Context, limit int) ([]model.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := make([]model.ListingRecord, 0)
	for _, rec := range s.byKey {
		if rec.Status == model.StatusDismissed {
			continue
		}
		if rec.Description == "" || rec.RankScore == nil {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].FetchedAt.After(recs[j].FetchedAt) })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *Memory) Stats(_ context.Context) (*ListingStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st ListingStats
	for _, rec := range s.byKey {
		st.Total++
		switch rec.Status {
		case model.StatusNew:
			st.New++
		case model.StatusApplied:
			st.Applied++
		case model.StatusDismissed:
			st.Dismissed++
		}
		if rec.RankScore == nil && rec.Status != model.StatusDismissed {
			st.Unranked++
		}
	}
	return &st, nil
}

func (s *Memory) GetProfile(_ context.Context) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil, ErrNotFound
	}
	cp := *s.profile
	cp.Exclusions = append([]string(nil), s.profile.Exclusions...)
	return &cp, nil
}

func (s *Memory) SaveProfile(_ context.Context, p *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.Exclusions = append([]string(nil), p.Exclusions...)
	cp.UpdatedAt = time.Now().UTC()
	s.profile = &cp
	return nil
}

func (s *Memory) LogScrape(_ context.Context, entry model.ScrapeLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.log) + 1)
	entry.CreatedAt = time.Now().UTC()
	s.log = append(s.log, entry)
	return nil
}

func (s *Memory) ListScrapeLog(_ context.Context, limit int) ([]model.ScrapeLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]model.ScrapeLogEntry, 0, len(s.log))
	for i := len(s.log) - 1; i >= 0 && (limit <= 0 || len(entries) < limit); i-- {
		entries = append(entries, s.log[i])
	}
	return entries, nil
}

func (s *Memory) byID(id int64) *model.ListingRecord {
	for _, rec := range s.byKey {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}
