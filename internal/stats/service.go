// Package stats provides read-only aggregation over the capture
// collection for dashboards. Report generation never errors: missing
// data degrades to zero/empty values.
package stats

import (
	"log"
	"math"
	"time"

	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
)

// Service computes dashboard aggregates
type Service struct {
	db  *database.DB
	now func() time.Time
}

// NewService creates a statistics service
func NewService(db *database.DB) *Service {
	return &Service{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Summary is the top-level dashboard aggregate
type Summary struct {
	Total           int64                          `json:"total"`
	ByStatus        map[models.CaptureStatus]int64 `json:"byStatus"`
	BySyncStatus    map[models.SyncState]int64     `json:"bySyncStatus"`
	Today           int                            `json:"today"`
	ThisWeek        int                            `json:"thisWeek"`
	ThisMonth       int                            `json:"thisMonth"`
	MeanHoursToDone float64                        `json:"meanHoursToDone"`
	MeanPhotos      float64                        `json:"meanPhotos"`
	GPSAccuracyMin  float64                        `json:"gpsAccuracyMin"`
	GPSAccuracyAvg  float64                        `json:"gpsAccuracyAvg"`
	GPSAccuracyMax  float64                        `json:"gpsAccuracyMax"`
	CompletionRate  float64                        `json:"completionRatePct"`
}

// Summary computes the full dashboard aggregate
func (s *Service) Summary() *Summary {
	out := &Summary{
		ByStatus:     make(map[models.CaptureStatus]int64),
		BySyncStatus: make(map[models.SyncState]int64),
	}

	captures, err := s.all()
	if err != nil {
		log.Printf("⚠️ [Stats] Summary degraded to zeros: %v", err)
		return out
	}
	out.Total = int64(len(captures))

	now := s.now()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	var (
		doneHours  float64
		doneCount  int
		accuracies []float64
	)

	for _, c := range captures {
		out.ByStatus[c.Status]++
		out.BySyncStatus[c.SyncStatus]++

		if c.CreatedAt.After(dayAgo) {
			out.Today++
		}
		if c.CreatedAt.After(weekAgo) {
			out.ThisWeek++
		}
		if c.CreatedAt.After(monthAgo) {
			out.ThisMonth++
		}

		if c.Status == models.CaptureStatusCompleted {
			doneHours += c.UpdatedAt.Sub(c.CreatedAt).Hours()
			doneCount++
		}
		if c.Accuracy != nil {
			accuracies = append(accuracies, *c.Accuracy)
		}
	}

	if doneCount > 0 {
		out.MeanHoursToDone = doneHours / float64(doneCount)
	}
	if out.Total > 0 {
		out.CompletionRate = 100 * float64(out.ByStatus[models.CaptureStatusCompleted]) / float64(out.Total)
	}

	if len(accuracies) > 0 {
		min, max, sum := accuracies[0], accuracies[0], 0.0
		for _, a := range accuracies {
			sum += a
			min = math.Min(min, a)
			max = math.Max(max, a)
		}
		out.GPSAccuracyMin = min
		out.GPSAccuracyMax = max
		out.GPSAccuracyAvg = sum / float64(len(accuracies))
	}

	var photoCount int64
	if err := s.db.Model(&models.Photo{}).Count(&photoCount).Error; err == nil && out.Total > 0 {
		out.MeanPhotos = float64(photoCount) / float64(out.Total)
	}

	return out
}

// Filter is a multi-predicate capture query applied as sequential
// in-memory filters; dataset sizes per field node stay small enough that
// no indexing is needed.
type Filter struct {
	Status        *models.CaptureStatus
	SyncStatus    *models.SyncState
	ContractorID  string
	ProjectID     string
	TechnicianID  string
	PoleNumber    string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	HasPhotos     *bool
	NeedsApproval *bool
	HasErrors     *bool
}

// Apply runs the filter over the capture collection
func (s *Service) Apply(f Filter) []models.Capture {
	captures, err := s.all()
	if err != nil {
		log.Printf("⚠️ [Stats] Filter degraded to empty: %v", err)
		return nil
	}

	photoCounts := s.photoCounts()

	var out []models.Capture
	for _, c := range captures {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.SyncStatus != nil && c.SyncStatus != *f.SyncStatus {
			continue
		}
		if f.ContractorID != "" && c.ContractorID != f.ContractorID {
			continue
		}
		if f.ProjectID != "" && c.ProjectID != f.ProjectID {
			continue
		}
		if f.TechnicianID != "" && c.TechnicianID != f.TechnicianID {
			continue
		}
		if f.PoleNumber != "" && c.PoleNumber != f.PoleNumber {
			continue
		}
		if f.CreatedAfter != nil && !c.CreatedAt.After(*f.CreatedAfter) {
			continue
		}
		if f.CreatedBefore != nil && !c.CreatedAt.Before(*f.CreatedBefore) {
			continue
		}
		if f.HasPhotos != nil && (photoCounts[c.ID] > 0) != *f.HasPhotos {
			continue
		}
		if f.NeedsApproval != nil && (c.ApprovalStatus == models.ApprovalStatusPending) != *f.NeedsApproval {
			continue
		}
		if f.HasErrors != nil && (c.SyncStatus == models.SyncStateError) != *f.HasErrors {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Service) all() ([]models.Capture, error) {
	var captures []models.Capture
	err := s.db.Order("created_at ASC").Find(&captures).Error
	return captures, err
}

func (s *Service) photoCounts() map[string]int {
	type row struct {
		CaptureID string
		N         int
	}
	var rows []row
	if err := s.db.Model(&models.Photo{}).
		Select("capture_id, count(*) as n").
		Group("capture_id").
		Scan(&rows).Error; err != nil {
		return map[string]int{}
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.CaptureID] = r.N
	}
	return out
}
