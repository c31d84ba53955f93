package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
)

func ptr(v float64) *float64 { return &v }

func sampleCaptures() []models.Capture {
	return []models.Capture{
		{
			ID: "HD-1", PoleNumber: "LAW.P.B167",
			Latitude: ptr(-26.2041), Longitude: ptr(28.0473), Accuracy: ptr(8),
			Status: models.CaptureStatusCompleted,
		},
		{
			ID: "HD-2", PoleNumber: "LAW.P.B168",
			// No location: must be skipped, not errored
			Status: models.CaptureStatusAssigned,
		},
	}
}

func TestGeoJSONSkipsUnlocatedCaptures(t *testing.T) {
	out, err := GeoJSON(sampleCaptures())
	if err != nil {
		t.Fatalf("GeoJSON failed: %v", err)
	}

	var fc FeatureCollection
	if err := json.Unmarshal(out, &fc); err != nil {
		t.Fatalf("Output is not valid GeoJSON: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("Expected FeatureCollection, got %q", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("Expected 1 feature, got %d", len(fc.Features))
	}

	f := fc.Features[0]
	if f.Geometry.Type != "Point" {
		t.Errorf("Expected Point geometry, got %q", f.Geometry.Type)
	}
	// GeoJSON is [lon, lat]
	if f.Geometry.Coordinates[0] != 28.0473 || f.Geometry.Coordinates[1] != -26.2041 {
		t.Errorf("Coordinates must be lon,lat: %v", f.Geometry.Coordinates)
	}
	if f.Properties["poleNumber"] != "LAW.P.B167" {
		t.Errorf("Pole number missing from properties: %v", f.Properties)
	}
}

func TestKMLRendersPlacemarks(t *testing.T) {
	out, err := KML(sampleCaptures())
	if err != nil {
		t.Fatalf("KML failed: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, "<kml") || !strings.Contains(s, "Placemark") {
		t.Error("Output should be a KML document with placemarks")
	}
	if strings.Count(s, "<Placemark>") != 1 {
		t.Errorf("Expected exactly one placemark, got %d", strings.Count(s, "<Placemark>"))
	}
	// KML coordinates are lon,lat,alt
	if !strings.Contains(s, "28.047300,-26.204100,0.000000") {
		t.Errorf("Expected lon,lat,alt coordinates in output:\n%s", s)
	}
}

func TestImportAssignmentsUpsert(t *testing.T) {
	db, err := database.OpenTest()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	doc := `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [28.0473, -26.2041]},
				"properties": {"pole_number": "LAW.P.B167", "project_id": "PRJ-1", "technician_id": "tech-1", "zone": "Z3"}
			},
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [28.0480, -26.2050]},
				"properties": {"project_id": "PRJ-1"}
			},
			{
				"type": "Feature",
				"geometry": {"type": "LineString", "coordinates": []},
				"properties": {"pole_number": "LAW.P.B169"}
			}
		]
	}`

	res, err := ImportAssignments(db, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if res.Imported != 1 {
		t.Errorf("Expected 1 imported, got %d", res.Imported)
	}
	if res.Skipped != 2 {
		t.Errorf("Expected 2 skipped (no pole number, bad geometry), got %d", res.Skipped)
	}
	if len(res.Findings) != 3 {
		t.Errorf("Every feature should have a finding, got %d", len(res.Findings))
	}

	var pole models.Pole
	if err := db.Where("pole_number = ?", "LAW.P.B167").First(&pole).Error; err != nil {
		t.Fatalf("Imported pole not found: %v", err)
	}
	if pole.Zone != "Z3" || pole.ProjectID != "PRJ-1" {
		t.Errorf("Pole properties lost: %+v", pole)
	}
	if pole.Latitude == nil || *pole.Latitude != -26.2041 {
		t.Errorf("Pole latitude wrong: %v", pole.Latitude)
	}

	var assignment models.Assignment
	if err := db.Where("pole_number = ? AND technician_id = ?", "LAW.P.B167", "tech-1").First(&assignment).Error; err != nil {
		t.Fatalf("Assignment not created: %v", err)
	}

	// Re-import updates instead of duplicating
	res, err = ImportAssignments(db, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Re-import failed: %v", err)
	}
	if res.Updated != 1 || res.Imported != 0 {
		t.Errorf("Expected 1 updated on re-import, got %d updated / %d imported", res.Updated, res.Imported)
	}
	var poleCount int64
	db.Model(&models.Pole{}).Where("pole_number = ?", "LAW.P.B167").Count(&poleCount)
	if poleCount != 1 {
		t.Errorf("Re-import must not duplicate poles, got %d", poleCount)
	}
}

func TestImportRejectsNonFeatureCollection(t *testing.T) {
	db, err := database.OpenTest()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if _, err := ImportAssignments(db, strings.NewReader(`{"type": "Feature"}`)); err == nil {
		t.Error("A bare Feature should be rejected")
	}
	if _, err := ImportAssignments(db, strings.NewReader(`not json`)); err == nil {
		t.Error("Invalid JSON should be rejected")
	}
}
