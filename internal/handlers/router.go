package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/velocityfibre/fibrefield/internal/ai"
	"github.com/velocityfibre/fibrefield/internal/buildinfo"
	"github.com/velocityfibre/fibrefield/internal/config"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/fieldops"
	"github.com/velocityfibre/fibrefield/internal/middleware"
	"github.com/velocityfibre/fibrefield/internal/sync"
	"github.com/velocityfibre/fibrefield/internal/websocket"
)

// Router wraps the mux router and the services the handlers consume
type Router struct {
	*mux.Router
	db       *database.DB
	ops      *fieldops.Service
	engine   *sync.Engine
	hub      *websocket.Hub
	feedback *ai.FeedbackWriter
	cfg      *config.Config
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, ops *fieldops.Service, engine *sync.Engine, hub *websocket.Hub, feedback *ai.FeedbackWriter, cfg *config.Config) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		db:       db,
		ops:      ops,
		engine:   engine,
		hub:      hub,
		feedback: feedback,
		cfg:      cfg,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes (open)
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")

	// Dashboard websocket (token passed via query, checked in ServeWs caller)
	r.HandleFunc("/ws", r.serveWs).Methods("GET")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	api.HandleFunc("/status", r.getStatus).Methods("GET")

	// Capture routes
	api.HandleFunc("/captures", r.listCaptures).Methods("GET")
	api.HandleFunc("/captures", r.createCapture).Methods("POST")
	api.HandleFunc("/captures/nearby", r.nearbyCaptures).Methods("GET")
	api.HandleFunc("/captures/duplicates", r.duplicateLocations).Methods("GET")
	api.HandleFunc("/captures/{id}", r.getCapture).Methods("GET")
	api.HandleFunc("/captures/{id}", r.updateCapture).Methods("PUT")
	api.HandleFunc("/captures/{id}", r.deleteCapture).Methods("DELETE")
	api.HandleFunc("/captures/{id}/workflow", r.progressWorkflow).Methods("POST")
	api.HandleFunc("/captures/{id}/gps", r.updateGPS).Methods("PUT")
	api.HandleFunc("/captures/{id}/gps/validate", r.validateGPS).Methods("GET")
	api.HandleFunc("/captures/{id}/gps/quality", r.gpsQuality).Methods("GET")
	api.HandleFunc("/captures/{id}/photos", r.attachPhoto).Methods("POST")
	api.HandleFunc("/captures/{id}/photos", r.photoCompletion).Methods("GET")
	api.HandleFunc("/captures/{id}/photos/{photoId}", r.removePhoto).Methods("DELETE")
	api.HandleFunc("/captures/{id}/submit", r.submitCapture).Methods("POST")
	api.HandleFunc("/captures/{id}/report", r.completionReport).Methods("GET")

	// Approval routes (admin)
	approvals := api.PathPrefix("/approvals").Subrouter()
	approvals.Use(middleware.RequireRole("admin"))
	approvals.HandleFunc("/pending", r.pendingApprovals).Methods("GET")
	approvals.HandleFunc("/stats", r.approvalStats).Methods("GET")
	approvals.HandleFunc("/{id}/approve", r.approveCapture).Methods("POST")
	approvals.HandleFunc("/{id}/reject", r.rejectCapture).Methods("POST")
	approvals.HandleFunc("/{id}/quality", r.qualityReport).Methods("GET")

	// Statistics routes
	api.HandleFunc("/stats/summary", r.statsSummary).Methods("GET")
	api.HandleFunc("/stats/filter", r.statsFilter).Methods("GET")
	api.HandleFunc("/stats/leaderboard", r.leaderboard).Methods("GET")
	api.HandleFunc("/stats/daily", r.dailyStats).Methods("GET")
	api.HandleFunc("/stats/productivity", r.productivity).Methods("GET")

	// Sync routes
	api.HandleFunc("/sync/status", r.syncStatus).Methods("GET")
	api.HandleFunc("/sync/queue", r.syncQueue).Methods("GET")
	api.HandleFunc("/sync/drain", r.drainNow).Methods("POST")
	api.HandleFunc("/sync/prune", r.pruneQueue).Methods("POST")

	// Pole routes
	api.HandleFunc("/poles", r.listPoles).Methods("GET")
	api.HandleFunc("/poles", r.createPole).Methods("POST")
	api.HandleFunc("/poles/labels", r.poleLabels).Methods("POST")
	api.HandleFunc("/poles/{poleNumber}", r.getPole).Methods("GET")

	// Assignment routes
	api.HandleFunc("/assignments", r.listAssignments).Methods("GET")
	api.HandleFunc("/assignments/import", r.importAssignments).Methods("POST")

	// Export routes
	api.HandleFunc("/export/geojson", r.exportGeoJSON).Methods("GET")
	api.HandleFunc("/export/kml", r.exportKML).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"server": "local",
	})
}

// getStatus returns the current server and sync status
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "running",
		"version":    buildinfo.Version,
		"sync":       r.engine.Status(),
		"dashboards": r.hub.ClientCount(),
	})
}

func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	websocket.ServeWs(r.hub, w, req)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
