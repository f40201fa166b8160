// Package config loads and validates runtime configuration from the
// environment. Fail-fast: a missing required variable aborts startup.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/bethmaloney/job-applier/internal/model"
)

// Config holds all runtime configuration for the aggregator service.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	// SeekSearchURLs are full Seek search URLs, comma separated.
	SeekSearchURLs []string `env:"SEEK_SEARCH_URLS" envSeparator:","`
	// LinkedInSearches are "keywords|location" pairs, semicolon separated.
	LinkedInSearches []string `env:"LINKEDIN_SEARCHES" envSeparator:";"`

	MaxPages         int           `env:"SCRAPE_MAX_PAGES" envDefault:"3"`
	LinkedInPageSize int           `env:"LINKEDIN_PAGE_SIZE" envDefault:"25"`
	MinDelay         time.Duration `env:"SCRAPE_DELAY_MIN" envDefault:"2s"`
	MaxDelay         time.Duration `env:"SCRAPE_DELAY_MAX" envDefault:"5s"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	RankCLIPath string        `env:"RANK_CLI_PATH" envDefault:"claude"`
	RankModel   string        `env:"RANK_MODEL" envDefault:"sonnet"`
	RankTimeout time.Duration `env:"RANK_TIMEOUT" envDefault:"30s"`

	RefreshLimit int `env:"REFRESH_LIMIT" envDefault:"50"`
	// ScrapeIntervalHours drives the periodic scrape; 0 disables it.
	ScrapeIntervalHours int `env:"SCRAPE_INTERVAL_HOURS" envDefault:"0"`
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	cfg.Sanitize()
	return &cfg, nil
}

// Sanitize applies guardrails to values loaded from env.
func (c *Config) Sanitize() {
	if c.MaxPages < 1 {
		c.MaxPages = 1
	}
	if c.LinkedInPageSize < 1 {
		c.LinkedInPageSize = 25
	}
	if c.MinDelay < 0 {
		c.MinDelay = 0
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.RankTimeout <= 0 {
		c.RankTimeout = 30 * time.Second
	}
	if c.RefreshLimit < 1 {
		c.RefreshLimit = 50
	}
	if c.ScrapeIntervalHours < 0 {
		c.ScrapeIntervalHours = 0
	}
}

// Queries expands the configured searches into per-source query lists.
// Malformed LinkedIn pairs are skipped.
func (c *Config) Queries() map[model.Source][]model.SearchQuery {
	queries := make(map[model.Source][]model.SearchQuery)
	for _, u := range c.SeekSearchURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		queries[model.SourceSeek] = append(queries[model.SourceSeek],
			model.SearchQuery{Source: model.SourceSeek, URL: u})
	}
	for _, pair := range c.LinkedInSearches {
		keywords, location, ok := strings.Cut(pair, "|")
		keywords = strings.TrimSpace(keywords)
		location = strings.TrimSpace(location)
		if !ok || keywords == "" || location == "" {
			continue
		}
		queries[model.SourceLinkedIn] = append(queries[model.SourceLinkedIn],
			model.SearchQuery{Source: model.SourceLinkedIn, Keywords: keywords, Location: location})
	}
	return queries
}
