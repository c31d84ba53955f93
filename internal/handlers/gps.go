package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/velocityfibre/fibrefield/internal/capture"
)

// updateGPS records the device's position fix on a capture
func (r *Router) updateGPS(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var coords capture.Coordinates
	if err := json.NewDecoder(req.Body).Decode(&coords); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	c, err := r.ops.UpdateGPS(id, coords)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// validateGPS runs the location checks without mutating the capture
func (r *Router) validateGPS(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	result, err := r.ops.Captures.ValidateGPS(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// gpsQuality scores the capture's position fix
func (r *Router) gpsQuality(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	quality, err := r.ops.Captures.QualityScore(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quality)
}

// nearbyCaptures lists captures within a radius of a point
func (r *Router) nearbyCaptures(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		respondError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}

	radius := 100.0
	if v := q.Get("radius"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			radius = parsed
		}
	}

	nearby, err := r.ops.Captures.NearbyCaptures(lat, lon, radius)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nearby)
}

// duplicateLocations lists capture pairs closer than the duplicate tolerance
func (r *Router) duplicateLocations(w http.ResponseWriter, req *http.Request) {
	pairs, err := r.ops.Captures.FindDuplicateLocations()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pairs)
}
