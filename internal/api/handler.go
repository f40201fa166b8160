// Package api implements the JSON trigger/poll surface over the job system
// plus the listing and profile endpoints the dashboard consumes.
//
// Routes:
//
//	POST /jobs/{name}/start    → {"accepted": bool, "reason"?: string}
//	GET  /jobs/{name}/status   → job run snapshot
//	POST /jobs/{name}/cancel   → {"accepted": bool}
//	GET  /listings             → listings (filter: status, source; sort)
//	POST /listings/{id}/status → transition a listing's status
//	GET  /profile, PUT /profile
//	GET  /scrapes              → recent scrape log
//	GET  /stats                → dashboard counters
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/bethmaloney/job-applier/internal/jobs"
	"github.com/bethmaloney/job-applier/internal/model"
	"github.com/bethmaloney/job-applier/internal/store"
)

// Handler holds shared dependencies.
type Handler struct {
	orch  *jobs.Orchestrator
	store store.Store
}

// NewHandler returns a configured Handler.
func NewHandler(orch *jobs.Orchestrator, s store.Store) *Handler {
	return &Handler{orch: orch, store: s}
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/jobs/", h.handleJobAction)
	mux.HandleFunc("/listings", h.handleListings)
	mux.HandleFunc("/listings/", h.handleListingAction)
	mux.HandleFunc("/profile", h.handleProfile)
	mux.HandleFunc("/scrapes", h.handleScrapes)
	mux.HandleFunc("/stats", h.handleStats)
}

// ─── Job trigger/poll surface ────────────────────────────────────────────────

// startResponse is the synchronous answer to start/cancel requests.
type startResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// handleJobAction dispatches /jobs/{name}/start|status|cancel.
func (h *Handler) handleJobAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	name, err := jobs.ParseName(parts[1])
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}

	switch action := parts[2]; action {
	case "start":
		h.startJob(w, r, name)
	case "status":
		h.jobStatus(w, r, name)
	case "cancel":
		h.cancelJob(w, r, name)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

func (h *Handler) startJob(w http.ResponseWriter, r *http.Request, name jobs.Name) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, err := h.orch.Start(name)
	switch {
	case errors.Is(err, jobs.ErrAlreadyRunning):
		jsonWith(w, http.StatusConflict, startResponse{Accepted: false, Reason: err.Error()})
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		jsonWith(w, http.StatusAccepted, startResponse{Accepted: true})
	}
}

func (h *Handler) jobStatus(w http.ResponseWriter, r *http.Request, name jobs.Name) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	run, err := h.orch.Status(name)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	jsonOK(w, run)
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request, name jobs.Name) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonOK(w, startResponse{Accepted: h.orch.Cancel(name)})
}

// ─── Listings ────────────────────────────────────────────────────────────────

func (h *Handler) handleListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var filter store.ListFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := model.ParseListingStatus(s)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Status = &status
	}
	if s := r.URL.Query().Get("source"); s != "" {
		source, err := model.ParseSource(s)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Source = &source
	}
	filter.Sort = r.URL.Query().Get("sort")

	listings, err := h.store.List(r.Context(), filter)
	if err != nil {
		log.Printf("[api] list listings error: %v", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, listings)
}

// handleListingAction handles POST /listings/{id}/status.
func (h *Handler) handleListingAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "status" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		jsonError(w, "invalid listing id", http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	status, err := model.ParseListingStatus(body.Status)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch err := h.store.SetStatus(r.Context(), id, status); {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, "listing not found", http.StatusNotFound)
	case err != nil:
		log.Printf("[api] set status error: %v", err)
		jsonError(w, "database error", http.StatusInternalServerError)
	default:
		jsonOK(w, map[string]bool{"ok": true})
	}
}

// ─── Profile ─────────────────────────────────────────────────────────────────

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		profile, err := h.store.GetProfile(r.Context())
		if errors.Is(err, store.ErrNotFound) {
			jsonOK(w, model.UserProfile{Exclusions: []string{}})
			return
		}
		if err != nil {
			log.Printf("[api] get profile error: %v", err)
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		jsonOK(w, profile)

	case http.MethodPut:
		var profile model.UserProfile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if err := h.store.SaveProfile(r.Context(), &profile); err != nil {
			log.Printf("[api] save profile error: %v", err)
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		jsonOK(w, map[string]bool{"ok": true})

	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ─── Scrape log & stats ──────────────────────────────────────────────────────

func (h *Handler) handleScrapes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.store.ListScrapeLog(r.Context(), limit)
	if err != nil {
		log.Printf("[api] list scrapes error: %v", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, entries)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		log.Printf("[api] stats error: %v", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, stats)
}

// ─── JSON helpers ────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	jsonWith(w, http.StatusOK, v)
}

func jsonWith(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	jsonWith(w, status, map[string]string{"error": msg})
}
