// Package export converts captures to and from geospatial interchange
// formats. GeoJSON is the wire format QGIS planning projects use; KML
// covers the older map viewers some contractors still run.
package export

import (
	"encoding/json"

	"github.com/velocityfibre/fibrefield/internal/models"
)

// Feature is a single GeoJSON feature
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry is a GeoJSON point geometry
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

// FeatureCollection is the GeoJSON document root
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// GeoJSON renders captures with coordinates as a FeatureCollection.
// Captures without a location are skipped, not errored.
func GeoJSON(captures []models.Capture) ([]byte, error) {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}

	for _, c := range captures {
		if !c.HasLocation() {
			continue
		}
		props := map[string]interface{}{
			"id":             c.ID,
			"poleNumber":     c.PoleNumber,
			"projectId":      c.ProjectID,
			"technicianId":   c.TechnicianID,
			"status":         c.Status,
			"approvalStatus": c.ApprovalStatus,
			"syncStatus":     c.SyncStatus,
		}
		if c.Accuracy != nil {
			props["accuracy"] = *c.Accuracy
		}
		if c.DistanceFromPole != nil {
			props["distanceFromPole"] = *c.DistanceFromPole
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{*c.Longitude, *c.Latitude},
			},
			Properties: props,
		})
	}

	return json.MarshalIndent(fc, "", "  ")
}
