package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bethmaloney/job-applier/internal/model"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Postgres store backed by pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// InitSchema creates the tables if they do not exist.
func (s *Postgres) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id               BIGSERIAL PRIMARY KEY,
			dedup_key        TEXT NOT NULL UNIQUE,
			source           TEXT NOT NULL,
			external_id      TEXT NOT NULL DEFAULT '',
			title            TEXT NOT NULL,
			company          TEXT NOT NULL DEFAULT '',
			location         TEXT NOT NULL DEFAULT '',
			url              TEXT NOT NULL DEFAULT '',
			salary           TEXT NOT NULL DEFAULT '',
			description      TEXT NOT NULL DEFAULT '',
			posted_at        TIMESTAMPTZ,
			fetched_at       TIMESTAMPTZ NOT NULL,
			status           TEXT NOT NULL DEFAULT 'NEW',
			rank_score       INT,
			rank_explanation TEXT,
			ranked_at        TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS user_profile (
			id            INT PRIMARY KEY CHECK (id = 1),
			skills        TEXT NOT NULL DEFAULT '',
			preferences   TEXT NOT NULL DEFAULT '',
			resume_text   TEXT NOT NULL DEFAULT '',
			target_titles TEXT NOT NULL DEFAULT '',
			min_salary    INT,
			location      TEXT NOT NULL DEFAULT '',
			exclusions    TEXT[] NOT NULL DEFAULT '{}',
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS scrape_log (
			id         BIGSERIAL PRIMARY KEY,
			source     TEXT NOT NULL,
			found      INT NOT NULL DEFAULT 0,
			inserted   INT NOT NULL DEFAULT 0,
			updated    INT NOT NULL DEFAULT 0,
			errors     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

const listingColumns = `id, dedup_key, source, external_id, title, company, location,
	url, salary, description, posted_at, fetched_at, status,
	rank_score, rank_explanation, ranked_at, created_at, updated_at`

func scanListing(row pgx.Row) (*model.ListingRecord, error) {
	var rec model.ListingRecord
	err := row.Scan(
		&rec.ID, &rec.DedupKey, &rec.Source, &rec.ExternalID, &rec.Title,
		&rec.Company, &rec.Location, &rec.URL, &rec.Salary, &rec.Description,
		&rec.PostedAt, &rec.FetchedAt, &rec.Status,
		&rec.RankScore, &rec.RankExplanation, &rec.RankedAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByDedupKey returns the listing for key, or ErrNotFound.
func (s *Postgres) GetByDedupKey(ctx context.Context, key string) (*model.ListingRecord, error) {
	rec, err := scanListing(s.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE dedup_key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getByDedupKey: %w", err)
	}
	return rec, nil
}

// Insert stores a new listing with status NEW unless the record carries one.
func (s *Postgres) Insert(ctx context.Context, rec *model.ListingRecord) error {
	if rec.Status == "" {
		rec.Status = model.StatusNew
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO listings (dedup_key, source, external_id, title, company,
		                       location, url, salary, description, posted_at,
		                       fetched_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (dedup_key) DO NOTHING
		 RETURNING id, created_at, updated_at`,
		rec.DedupKey, rec.Source, rec.ExternalID, rec.Title, rec.Company,
		rec.Location, rec.URL, rec.Salary, rec.Description, rec.PostedAt,
		rec.FetchedAt, rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// UpdateFields overwrites the mutable descriptive fields of the listing with
// the given dedup key and bumps updated_at. Status and rank are untouched.
func (s *Postgres) UpdateFields(ctx context.Context, key string, raw model.RawListing) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings
		 SET title = $1, company = $2, location = $3, url = $4, salary = $5,
		     description = $6, posted_at = $7, fetched_at = $8,
		     updated_at = NOW()
		 WHERE dedup_key = $9`,
		raw.Title, raw.Company, raw.Location, raw.URL, raw.Salary,
		raw.Description, raw.PostedAt, raw.FetchedAt, key,
	)
	if err != nil {
		return fmt.Errorf("updateFields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus transitions a listing to the given status.
func (s *Postgres) SetStatus(ctx context.Context, id int64, status model.ListingStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("setStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRank persists a ranking result and stamps ranked_at.
func (s *Postgres) SetRank(ctx context.Context, id int64, score int, explanation string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings
		 SET rank_score = $1, rank_explanation = $2, ranked_at = NOW(),
		     updated_at = NOW()
		 WHERE id = $3`,
		score, explanation, id,
	)
	if err != nil {
		return fmt.Errorf("setRank: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDescription replaces the description (and salary when non-empty) and
// clears the rank so the next rank run re-scores the listing.
func (s *Postgres) UpdateDescription(ctx context.Context, id int64, description, salary string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings
		 SET description = $1,
		     salary = CASE WHEN $2 <> '' THEN $2 ELSE salary END,
		     rank_score = NULL, rank_explanation = NULL, ranked_at = NULL,
		     updated_at = NOW()
		 WHERE id = $3`,
		description, salary, id,
	)
	if err != nil {
		return fmt.Errorf("updateDescription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns listings matching the filter.
func (s *Postgres) List(ctx context.Context, f ListFilter) ([]model.ListingRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Source != nil {
		args = append(args, *f.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch f.Sort {
	case "fetched":
		query += " ORDER BY fetched_at DESC"
	case "company":
		query += " ORDER BY company ASC, rank_score DESC NULLS LAST"
	default:
		query += " ORDER BY rank_score DESC NULLS LAST, fetched_at DESC"
	}

	return s.queryListings(ctx, query, args...)
}

// ListUnranked returns non-dismissed listings with no rank score.
func (s *Postgres) ListUnranked(ctx context.Context) ([]model.ListingRecord, error) {
	return s.queryListings(ctx,
		`SELECT `+listingColumns+` FROM listings
		 WHERE rank_score IS NULL AND status <> 'DISMISSED'
		 ORDER BY fetched_at DESC`)
}

// ListForRefresh returns non-dismissed listings missing a description or a
// rank score, newest first.
func (s *Postgres) ListForRefresh(ctx context.Context, limit int) ([]model.ListingRecord, error) {
	return s.queryListings(ctx,
		`SELECT `+listingColumns+` FROM listings
		 WHERE status <> 'DISMISSED'
		   AND (description = '' OR rank_score IS NULL)
		 ORDER BY fetched_at DESC
		 LIMIT $1`, limit)
}

func (s *Postgres) queryListings(ctx context.Context, query string, args ...any) ([]model.ListingRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	recs := make([]model.ListingRecord, 0)
	for rows.Next() {
		rec, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// Stats returns the dashboard counters.
func (s *Postgres) Stats(ctx context.Context) (*ListingStats, error) {
	var st ListingStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'NEW'),
		       COUNT(*) FILTER (WHERE status = 'APPLIED'),
		       COUNT(*) FILTER (WHERE status = 'DISMISSED'),
		       COUNT(*) FILTER (WHERE rank_score IS NULL AND status <> 'DISMISSED')
		FROM listings`,
	).Scan(&st.Total, &st.New, &st.Applied, &st.Dismissed, &st.Unranked)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}

// GetProfile returns the single-row user profile, or ErrNotFound when it has
// never been saved.
func (s *Postgres) GetProfile(ctx context.Context) (*model.UserProfile, error) {
	var p model.UserProfile
	err := s.pool.QueryRow(ctx,
		`SELECT skills, preferences, resume_text, target_titles, min_salary,
		        location, exclusions, updated_at
		 FROM user_profile WHERE id = 1`,
	).Scan(&p.Skills, &p.Preferences, &p.ResumeText, &p.TargetTitles,
		&p.MinSalary, &p.Location, &p.Exclusions, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getProfile: %w", err)
	}
	return &p, nil
}

// SaveProfile upserts the single-row user profile.
func (s *Postgres) SaveProfile(ctx context.Context, p *model.UserProfile) error {
	if p.Exclusions == nil {
		p.Exclusions = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_profile (id, skills, preferences, resume_text,
		                           target_titles, min_salary, location,
		                           exclusions, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		     skills        = EXCLUDED.skills,
		     preferences   = EXCLUDED.preferences,
		     resume_text   = EXCLUDED.resume_text,
		     target_titles = EXCLUDED.target_titles,
		     min_salary    = EXCLUDED.min_salary,
		     location      = EXCLUDED.location,
		     exclusions    = EXCLUDED.exclusions,
		     updated_at    = NOW()`,
		p.Skills, p.Preferences, p.ResumeText, p.TargetTitles,
		p.MinSalary, p.Location, p.Exclusions,
	)
	if err != nil {
		return fmt.Errorf("saveProfile: %w", err)
	}
	return nil
}

// LogScrape appends a scrape log row.
func (s *Postgres) LogScrape(ctx context.Context, entry model.ScrapeLogEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_log (source, found, inserted, updated, errors)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.Source, entry.Found, entry.Inserted, entry.Updated, entry.Errors,
	)
	if err != nil {
		return fmt.Errorf("logScrape: %w", err)
	}
	return nil
}

// ListScrapeLog returns the most recent scrape log rows.
func (s *Postgres) ListScrapeLog(ctx context.Context, limit int) ([]model.ScrapeLogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, found, inserted, updated, errors, created_at
		 FROM scrape_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listScrapeLog: %w", err)
	}
	defer rows.Close()

	entries := make([]model.ScrapeLogEntry, 0)
	for rows.Next() {
		var e model.ScrapeLogEntry
		if err := rows.Scan(&e.ID, &e.Source, &e.Found, &e.Inserted,
			&e.Updated, &e.Errors, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scrape_log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
