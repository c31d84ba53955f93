package handlers

import (
	"net/http"
	"time"

	"github.com/velocityfibre/fibrefield/internal/export"
	"github.com/velocityfibre/fibrefield/internal/models"
)

// listAssignments returns work assignments, optionally by technician
func (r *Router) listAssignments(w http.ResponseWriter, req *http.Request) {
	q := r.db.Order("created_at DESC")
	if tech := req.URL.Query().Get("technicianId"); tech != "" {
		q = q.Where("technician_id = ?", tech)
	}
	if status := req.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var assignments []models.Assignment
	if err := q.Find(&assignments).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, assignments)
}

// importAssignments ingests a QGIS GeoJSON file of poles and assignments
func (r *Router) importAssignments(w http.ResponseWriter, req *http.Request) {
	result, err := export.ImportAssignments(r.db, req.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// exportGeoJSON streams all located captures as a FeatureCollection
func (r *Router) exportGeoJSON(w http.ResponseWriter, req *http.Request) {
	captures, err := r.ops.Captures.List()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out, err := export.GeoJSON(captures)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to render GeoJSON")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", "attachment; filename=captures-"+time.Now().Format("20060102")+".geojson")
	w.Write(out)
}

// exportKML streams all located captures as KML placemarks
func (r *Router) exportKML(w http.ResponseWriter, req *http.Request) {
	captures, err := r.ops.Captures.List()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out, err := export.KML(captures)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to render KML")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", "attachment; filename=captures-"+time.Now().Format("20060102")+".kml")
	w.Write(out)
}
