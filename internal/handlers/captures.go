package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/velocityfibre/fibrefield/internal/approval"
	"github.com/velocityfibre/fibrefield/internal/capture"
	"github.com/velocityfibre/fibrefield/internal/models"
	"github.com/velocityfibre/fibrefield/internal/services/printer"
)

// respondServiceError maps service errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	var vErr *capture.ValidationError
	switch {
	case errors.Is(err, capture.ErrCaptureNotFound),
		errors.Is(err, capture.ErrPoleNotFound),
		errors.Is(err, capture.ErrPhotoNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, approval.ErrStateConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &vErr):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    "validation failed",
			"findings": vErr.Findings,
		})
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// listCaptures returns all captures, newest first
func (r *Router) listCaptures(w http.ResponseWriter, req *http.Request) {
	captures, err := r.ops.Captures.List()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, captures)
}

// createCapture opens a new capture against a planted pole
func (r *Router) createCapture(w http.ResponseWriter, req *http.Request) {
	var input capture.CreateInput
	if err := json.NewDecoder(req.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	c, err := r.ops.CreateCapture(input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// getCapture returns one capture with its photos
func (r *Router) getCapture(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	c, err := r.ops.Captures.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// updateCapture applies a merge-patch of editable fields
func (r *Router) updateCapture(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var input capture.UpdateInput
	if err := json.NewDecoder(req.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	c, err := r.ops.UpdateCapture(id, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// deleteCapture removes a capture with its photos and queue entries
func (r *Router) deleteCapture(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if err := r.ops.DeleteCapture(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Capture deleted", "id": id})
}

// progressWorkflow marks a workflow step complete
func (r *Router) progressWorkflow(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var body struct {
		Step models.WorkflowStep `json:"step"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if models.StepIndex(body.Step) == 0 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown workflow step %q", body.Step))
		return
	}

	c, err := r.ops.ProgressWorkflow(id, body.Step)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// submitCapture submits a completed capture for admin approval
func (r *Router) submitCapture(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	c, result, err := r.ops.Submit(id)
	if err != nil {
		if result != nil {
			// Validation blocked submission; return the findings
			respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":      "submission blocked",
				"validation": result,
			})
			return
		}
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"capture":    c,
		"validation": result,
	})
}

// completionReport streams the capture's installation report PDF
func (r *Router) completionReport(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	c, err := r.ops.Captures.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	pdf, err := printer.GenerateCompletionReportPDF(c)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-report.pdf", c.ID))
	w.Write(pdf)
}
