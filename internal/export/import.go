package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
)

// ImportFinding records the outcome for one feature of an import file
type ImportFinding struct {
	Index      int    `json:"index"`
	PoleNumber string `json:"poleNumber,omitempty"`
	Status     string `json:"status"` // imported, updated, skipped
	Detail     string `json:"detail,omitempty"`
}

// ImportResult summarizes an assignment import run
type ImportResult struct {
	Imported int             `json:"imported"`
	Updated  int             `json:"updated"`
	Skipped  int             `json:"skipped"`
	Findings []ImportFinding `json:"findings"`
}

// ImportAssignments reads a QGIS GeoJSON FeatureCollection and upserts
// poles and their work assignments. Bad features are skipped with a
// finding rather than aborting the batch.
func ImportAssignments(db *database.DB, r io.Reader) (*ImportResult, error) {
	var fc FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}
	if !strings.EqualFold(fc.Type, "FeatureCollection") {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	res := &ImportResult{Findings: []ImportFinding{}}

	for i, f := range fc.Features {
		finding := ImportFinding{Index: i}

		poleNumber := propString(f.Properties, "pole_number", "poleNumber", "pole")
		if poleNumber == "" {
			finding.Status = "skipped"
			finding.Detail = "feature has no pole number property"
			res.Skipped++
			res.Findings = append(res.Findings, finding)
			continue
		}
		finding.PoleNumber = poleNumber

		if !strings.EqualFold(f.Geometry.Type, "Point") || len(f.Geometry.Coordinates) < 2 {
			finding.Status = "skipped"
			finding.Detail = "feature geometry is not a point"
			res.Skipped++
			res.Findings = append(res.Findings, finding)
			continue
		}

		lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
		projectID := propString(f.Properties, "project_id", "projectId", "project")
		technicianID := propString(f.Properties, "technician_id", "technicianId", "assigned_to")
		zone := propString(f.Properties, "zone", "pon_zone")

		var pole models.Pole
		err := db.Where("pole_number = ?", poleNumber).First(&pole).Error
		if err == nil {
			pole.Latitude = &lat
			pole.Longitude = &lon
			if projectID != "" {
				pole.ProjectID = projectID
			}
			if zone != "" {
				pole.Zone = zone
			}
			if err := db.Save(&pole).Error; err != nil {
				finding.Status = "skipped"
				finding.Detail = err.Error()
				res.Skipped++
				res.Findings = append(res.Findings, finding)
				continue
			}
			finding.Status = "updated"
			res.Updated++
		} else {
			pole = models.Pole{
				PoleNumber: poleNumber,
				ProjectID:  projectID,
				Zone:       zone,
				Latitude:   &lat,
				Longitude:  &lon,
				Status:     "planted",
			}
			if err := db.Create(&pole).Error; err != nil {
				finding.Status = "skipped"
				finding.Detail = err.Error()
				res.Skipped++
				res.Findings = append(res.Findings, finding)
				continue
			}
			finding.Status = "imported"
			res.Imported++
		}

		if technicianID != "" {
			assignment := models.Assignment{
				PoleNumber:   poleNumber,
				ProjectID:    projectID,
				TechnicianID: technicianID,
				Status:       "open",
			}
			if err := db.Where("pole_number = ? AND technician_id = ? AND status = ?",
				poleNumber, technicianID, "open").FirstOrCreate(&assignment).Error; err != nil {
				finding.Detail = "pole saved but assignment failed: " + err.Error()
			}
		}

		res.Findings = append(res.Findings, finding)
	}

	log.Printf("[Import] ✅ %d imported, %d updated, %d skipped", res.Imported, res.Updated, res.Skipped)
	return res, nil
}

func propString(props map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := props[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%v", f)
			}
		}
	}
	return ""
}
