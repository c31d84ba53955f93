package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/velocityfibre/fibrefield/internal/middleware"
)

// claimedUser extracts the acting user's identity from the JWT claims
func claimedUser(req *http.Request) string {
	claims, ok := req.Context().Value(middleware.UserContextKey).(jwt.MapClaims)
	if !ok {
		return ""
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		return email
	}
	if id, ok := claims["id"].(string); ok {
		return id
	}
	return ""
}

// pendingApprovals lists captures waiting for review, oldest first
func (r *Router) pendingApprovals(w http.ResponseWriter, req *http.Request) {
	captures, err := r.ops.Approval.Pending()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, captures)
}

// approveCapture records an admin approval decision
func (r *Router) approveCapture(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var body struct {
		Notes string `json:"notes"`
	}
	// Body is optional for approvals
	_ = json.NewDecoder(req.Body).Decode(&body)

	c, err := r.ops.Approval.Approve(id, claimedUser(req), body.Notes)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// rejectCapture records a rejection and reopens the capture for rework
func (r *Router) rejectCapture(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var body struct {
		Reason          string   `json:"reason"`
		RequiredActions []string `json:"requiredActions"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if body.Reason == "" {
		respondError(w, http.StatusBadRequest, "reason is required")
		return
	}

	c, err := r.ops.Approval.Reject(id, claimedUser(req), body.Reason, body.RequiredActions)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response := map[string]interface{}{"capture": c}
	if r.feedback != nil {
		if note, err := r.feedback.Generate(req.Context(), c, body.RequiredActions); err == nil {
			response["technicianFeedback"] = note
		}
	}
	respondJSON(w, http.StatusOK, response)
}

// approvalStats summarizes the review pipeline
func (r *Router) approvalStats(w http.ResponseWriter, req *http.Request) {
	stats, err := r.ops.Approval.Stats()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// qualityReport scores a capture for the reviewing admin
func (r *Router) qualityReport(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	report, err := r.ops.Approval.QualityReport(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
