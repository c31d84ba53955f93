package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/velocityfibre/fibrefield/internal/models"
	"github.com/velocityfibre/fibrefield/internal/services/printer"
)

// listPoles returns all poles, optionally filtered by project
func (r *Router) listPoles(w http.ResponseWriter, req *http.Request) {
	q := r.db.Order("pole_number ASC")
	if project := req.URL.Query().Get("projectId"); project != "" {
		q = q.Where("project_id = ?", project)
	}

	var poles []models.Pole
	if err := q.Find(&poles).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, poles)
}

// createPole registers a planted pole
func (r *Router) createPole(w http.ResponseWriter, req *http.Request) {
	var pole models.Pole
	if err := json.NewDecoder(req.Body).Decode(&pole); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if pole.PoleNumber == "" {
		respondError(w, http.StatusBadRequest, "poleNumber is required")
		return
	}
	if pole.Status == "" {
		pole.Status = "planted"
	}

	if err := r.db.Create(&pole).Error; err != nil {
		respondError(w, http.StatusBadRequest, "Failed to create pole (number might exist)")
		return
	}
	respondJSON(w, http.StatusCreated, pole)
}

// getPole returns one pole by its pole number
func (r *Router) getPole(w http.ResponseWriter, req *http.Request) {
	poleNumber := mux.Vars(req)["poleNumber"]

	pole, err := r.ops.Captures.Pole(poleNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pole)
}

// poleLabels renders a QR label sheet for the requested poles.
// Body: {"poleNumbers": [...]} — empty means every pole in the project.
func (r *Router) poleLabels(w http.ResponseWriter, req *http.Request) {
	var body struct {
		PoleNumbers []string `json:"poleNumbers"`
		ProjectID   string   `json:"projectId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	q := r.db.Order("pole_number ASC")
	if len(body.PoleNumbers) > 0 {
		q = q.Where("pole_number IN ?", body.PoleNumbers)
	} else if body.ProjectID != "" {
		q = q.Where("project_id = ?", body.ProjectID)
	} else {
		respondError(w, http.StatusBadRequest, "poleNumbers or projectId is required")
		return
	}

	var poles []models.Pole
	if err := q.Find(&poles).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(poles) == 0 {
		respondError(w, http.StatusNotFound, "No matching poles")
		return
	}

	pdf, err := printer.GeneratePoleLabelsPDF(poles, printer.DefaultLabelConfig())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate labels")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=pole-labels-%d.pdf", len(poles)))
	w.Write(pdf)
}
