// job-applier aggregator service
//
// Pulls job listings from Seek and LinkedIn, merges them into a single
// deduplicated Postgres table, and ranks them against the stored user
// profile via an external AI CLI. Exposes a REST API to:
//   - trigger and poll scrape / rank / refresh jobs
//   - browse, filter and triage listings
//   - read and update the user profile
//
// Publishes JOB_STATE_CHANGED events to Redis for dashboard consumption.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bethmaloney/job-applier/internal/api"
	"github.com/bethmaloney/job-applier/internal/config"
	"github.com/bethmaloney/job-applier/internal/db"
	"github.com/bethmaloney/job-applier/internal/jobs"
	"github.com/bethmaloney/job-applier/internal/ranker"
	"github.com/bethmaloney/job-applier/internal/scheduler"
	"github.com/bethmaloney/job-applier/internal/scraper"
	"github.com/bethmaloney/job-applier/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[aggregator] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[aggregator] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[aggregator] PostgreSQL: %v", err)
	}
	defer pool.Close()

	st := store.NewPostgres(pool)
	if err := st.InitSchema(ctx); err != nil {
		log.Fatalf("[aggregator] Schema init: %v", err)
	}
	log.Println("[aggregator] PostgreSQL connected ✓")

	// ── Redis (optional, event publishing only) ──────────────────────────────
	orchOpts := jobs.Options{
		Store:        st,
		Queries:      cfg.Queries(),
		RefreshLimit: cfg.RefreshLimit,
		MinDelay:     cfg.MinDelay,
		MaxDelay:     cfg.MaxDelay,
	}
	if cfg.RedisURL != "" {
		log.Println("[aggregator] Connecting to Redis…")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[aggregator] Redis: %v", err)
		}
		defer rdb.Close()
		orchOpts.Redis = rdb
		log.Println("[aggregator] Redis connected ✓")
	}

	// ── Scrapers & ranker ────────────────────────────────────────────────────
	client := scraper.NewClient(cfg.RequestTimeout)
	scraperOpts := scraper.Options{
		MaxPages:       cfg.MaxPages,
		PageSize:       cfg.LinkedInPageSize,
		MinDelay:       cfg.MinDelay,
		MaxDelay:       cfg.MaxDelay,
		RequestTimeout: cfg.RequestTimeout,
	}
	orchOpts.Adapters = []scraper.Adapter{
		scraper.NewSeek(client, scraperOpts),
		scraper.NewLinkedIn(client, scraperOpts),
	}
	orchOpts.Invoker = ranker.NewCLI(cfg.RankCLIPath, cfg.RankModel, cfg.RankTimeout)

	orch := jobs.New(orchOpts)

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := api.NewHandler(orch, st)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("[aggregator] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[aggregator] HTTP server error: %v", err)
		}
	}()

	// ── Scheduler (optional) ─────────────────────────────────────────────────
	if cfg.ScrapeIntervalHours > 0 {
		sched := scheduler.New(orch, cfg.ScrapeIntervalHours)
		if err := sched.Start(); err != nil {
			log.Fatalf("[aggregator] Scheduler: %v", err)
		}
		defer sched.Stop()
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[aggregator] Shutting down…")
	orch.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[aggregator] Shutdown error: %v", err)
	}
	log.Println("[aggregator] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "aggregator",
		"version": version,
	})
}
