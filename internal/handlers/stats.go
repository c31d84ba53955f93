package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/velocityfibre/fibrefield/internal/models"
	"github.com/velocityfibre/fibrefield/internal/stats"
)

// statsSummary returns the aggregate capture statistics
func (r *Router) statsSummary(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.ops.Stats.Summary())
}

// statsFilter applies query-parameter predicates over the captures
func (r *Router) statsFilter(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	var f stats.Filter
	if v := q.Get("status"); v != "" {
		status := models.CaptureStatus(v)
		f.Status = &status
	}
	if v := q.Get("syncStatus"); v != "" {
		state := models.SyncState(v)
		f.SyncStatus = &state
	}
	f.ContractorID = q.Get("contractorId")
	f.ProjectID = q.Get("projectId")
	f.TechnicianID = q.Get("technicianId")
	f.PoleNumber = q.Get("poleNumber")

	if v := q.Get("createdAfter"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.CreatedAfter = &t
		}
	}
	if v := q.Get("createdBefore"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.CreatedBefore = &t
		}
	}
	if v := q.Get("hasPhotos"); v != "" {
		b := v == "true"
		f.HasPhotos = &b
	}
	if v := q.Get("needsApproval"); v != "" {
		b := v == "true"
		f.NeedsApproval = &b
	}
	if v := q.Get("hasErrors"); v != "" {
		b := v == "true"
		f.HasErrors = &b
	}

	matches := r.ops.Stats.Apply(f)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(matches),
		"captures": matches,
	})
}

// leaderboard ranks technicians by completed and approved captures
func (r *Router) leaderboard(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.ops.Stats.Leaderboard())
}

// dailyStats returns per-day capture counts for the trailing window
func (r *Router) dailyStats(w http.ResponseWriter, req *http.Request) {
	days := 14
	if v := req.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 90 {
			days = parsed
		}
	}
	respondJSON(w, http.StatusOK, r.ops.Stats.Daily(days))
}

// productivity reports sync health and approval throughput
func (r *Router) productivity(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.ops.Stats.Productivity())
}
