package capture

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/velocityfibre/fibrefield/internal/config"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
)

func testGPSConfig() config.GPSConfig {
	return config.GPSConfig{
		AccuracyThresholdM:  20,
		MaxDistanceFromPole: 500,
		DuplicateToleranceM: 10,
	}
}

// newTestService builds a capture service over a private in-memory store.
// The autosave interval is long enough that no heartbeat fires in tests.
func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.OpenTest()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return NewService(db, testGPSConfig(), time.Hour)
}

func seedPole(t *testing.T, s *Service, poleNumber string, lat, lon float64) {
	t.Helper()
	pole := models.Pole{
		PoleNumber: poleNumber,
		ProjectID:  "PRJ-1",
		Latitude:   &lat,
		Longitude:  &lon,
		Status:     "planted",
	}
	if err := s.db.Create(&pole).Error; err != nil {
		t.Fatalf("Failed to seed pole %s: %v", poleNumber, err)
	}
}

func TestCreateRequiresExistingPole(t *testing.T) {
	s := newTestService(t)

	_, err := s.Create(CreateInput{PoleNumber: "LAW.P.B167"})
	if !errors.Is(err, ErrPoleNotFound) {
		t.Fatalf("Expected ErrPoleNotFound, got %v", err)
	}

	_, err = s.Create(CreateInput{})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected validation error for empty pole number, got %v", err)
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := newTestService(t)
	seedPole(t, s, "LAW.P.B167", -26.2041, 28.0473)

	c, err := s.Create(CreateInput{
		PoleNumber:   "LAW.P.B167",
		TechnicianID: "tech-1",
		CustomerName: "J. Mokoena",
		Equipment:    map[string]any{"ont": "HG8145V5"},
	})
	if err != nil {
		t.Fatalf("Failed to create capture: %v", err)
	}

	if !strings.HasPrefix(c.ID, "HD-") {
		t.Errorf("Expected HD- prefixed id, got %s", c.ID)
	}
	if c.Status != models.CaptureStatusAssigned {
		t.Errorf("New capture should be assigned, got %s", c.Status)
	}
	if c.SyncStatus != models.SyncStatePending {
		t.Errorf("New capture should be sync-pending, got %s", c.SyncStatus)
	}
	if c.ApprovalStatus != models.ApprovalStatusNone {
		t.Errorf("New capture should have no approval state, got %s", c.ApprovalStatus)
	}
	if c.CurrentStep != 1 {
		t.Errorf("New capture should start at step 1, got %d", c.CurrentStep)
	}

	got, err := s.Get(c.ID)
	if err != nil {
		t.Fatalf("Failed to fetch capture: %v", err)
	}
	if got.CustomerName != "J. Mokoena" {
		t.Errorf("Customer name lost in round trip: %q", got.CustomerName)
	}
	if got.TechnicianID != "tech-1" {
		t.Errorf("Technician lost in round trip: %q", got.TechnicianID)
	}
}

func TestGetUnknownCapture(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Get("HD-missing"); !errors.Is(err, ErrCaptureNotFound) {
		t.Fatalf("Expected ErrCaptureNotFound, got %v", err)
	}
}

func TestUpdateMergesOnlyProvidedFields(t *testing.T) {
	s := newTestService(t)
	seedPole(t, s, "LAW.P.B167", -26.2041, 28.0473)

	c, err := s.Create(CreateInput{
		PoleNumber:      "LAW.P.B167",
		CustomerName:    "Original Name",
		CustomerAddress: "12 Main Rd",
	})
	if err != nil {
		t.Fatalf("Failed to create capture: %v", err)
	}

	notes := "ONT mounted in hallway"
	power := -19.5
	updated, err := s.Update(c.ID, UpdateInput{
		Notes:           &notes,
		OpticalPowerDBm: &power,
	})
	if err != nil {
		t.Fatalf("Failed to update capture: %v", err)
	}

	if updated.Notes != notes {
		t.Errorf("Notes not updated: %q", updated.Notes)
	}
	if updated.OpticalPowerDBm == nil || *updated.OpticalPowerDBm != power {
		t.Errorf("Optical power not updated: %v", updated.OpticalPowerDBm)
	}
	// Fields not in the patch must survive
	if updated.CustomerName != "Original Name" {
		t.Errorf("Customer name should be untouched, got %q", updated.CustomerName)
	}
	if updated.CustomerAddress != "12 Main Rd" {
		t.Errorf("Customer address should be untouched, got %q", updated.CustomerAddress)
	}
}

func TestDeleteCascadesPhotosAndQueue(t *testing.T) {
	s := newTestService(t)
	seedPole(t, s, "LAW.P.B167", -26.2041, 28.0473)

	c, err := s.Create(CreateInput{PoleNumber: "LAW.P.B167"})
	if err != nil {
		t.Fatalf("Failed to create capture: %v", err)
	}

	photo := models.Photo{ID: "PH-1", CaptureID: c.ID, Type: models.PhotoTypeHouse}
	if err := s.db.Create(&photo).Error; err != nil {
		t.Fatalf("Failed to seed photo: %v", err)
	}
	queued := models.SyncQueueItem{ID: "Q-1", CaptureID: c.ID, Action: models.SyncActionCreate, Status: models.QueueStatusPending}
	if err := s.db.Create(&queued).Error; err != nil {
		t.Fatalf("Failed to seed queue item: %v", err)
	}

	if err := s.Delete(c.ID); err != nil {
		t.Fatalf("Failed to delete capture: %v", err)
	}

	if _, err := s.Get(c.ID); !errors.Is(err, ErrCaptureNotFound) {
		t.Errorf("Capture should be gone, got %v", err)
	}
	var photoCount int64
	s.db.Model(&models.Photo{}).Where("capture_id = ?", c.ID).Count(&photoCount)
	if photoCount != 0 {
		t.Errorf("Photos should cascade on delete, %d left", photoCount)
	}
	var queueCount int64
	s.db.Model(&models.SyncQueueItem{}).Where("capture_id = ?", c.ID).Count(&queueCount)
	if queueCount != 0 {
		t.Errorf("Queue rows should cascade on delete, %d left", queueCount)
	}
}

func TestNewCaptureIDFormat(t *testing.T) {
	now := time.UnixMilli(1717171717171).UTC()
	id := NewCaptureID(now)

	if !strings.HasPrefix(id, "HD-1717171717171-") {
		t.Errorf("Unexpected id format: %s", id)
	}
	suffix := strings.TrimPrefix(id, "HD-1717171717171-")
	if len(suffix) != 6 {
		t.Errorf("Expected 6-character suffix, got %q", suffix)
	}
	if suffix != strings.ToUpper(suffix) {
		t.Errorf("Suffix should be uppercase: %q", suffix)
	}

	if id == NewCaptureID(now) {
		t.Error("IDs generated at the same instant should still differ")
	}
}
