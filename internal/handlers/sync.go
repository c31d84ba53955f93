package handlers

import (
	"net/http"

	"github.com/velocityfibre/fibrefield/internal/models"
)

// syncStatus reports engine state and queue depth by status
func (r *Router) syncStatus(w http.ResponseWriter, req *http.Request) {
	counts, err := r.ops.Queue.CountByStatus()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"engine": r.engine.Status(),
		"queue":  counts,
	})
}

// syncQueue lists the outbox items currently due for delivery
func (r *Router) syncQueue(w http.ResponseWriter, req *http.Request) {
	items, err := r.ops.Queue.Due()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if items == nil {
		items = []models.SyncQueueItem{}
	}
	respondJSON(w, http.StatusOK, items)
}

// drainNow triggers an immediate drain pass. If one is already running
// the call is a logged no-op and reports that.
func (r *Router) drainNow(w http.ResponseWriter, req *http.Request) {
	result, err := r.engine.Drain(req.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if result == nil {
		respondJSON(w, http.StatusAccepted, map[string]string{"message": "Drain already in progress"})
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// pruneQueue removes completed outbox entries
func (r *Router) pruneQueue(w http.ResponseWriter, req *http.Request) {
	removed, err := r.ops.Queue.PruneCompleted()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
