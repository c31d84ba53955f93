package approval

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/velocityfibre/fibrefield/internal/capture"
	"github.com/velocityfibre/fibrefield/internal/config"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
	"github.com/velocityfibre/fibrefield/internal/storage"
)

type fixture struct {
	svc      *Service
	captures *capture.Service
	photos   *capture.PhotoManager
	db       *database.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenTest()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	gpsCfg := config.GPSConfig{AccuracyThresholdM: 20, MaxDistanceFromPole: 500, DuplicateToleranceM: 10}
	captures := capture.NewService(db, gpsCfg, time.Hour)

	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open blob store: %v", err)
	}
	photos := capture.NewPhotoManager(captures, blobs, nil)

	return &fixture{
		svc:      NewService(db, captures, photos, gpsCfg),
		captures: captures,
		photos:   photos,
		db:       db,
	}
}

func ptr(v float64) *float64 { return &v }

// newReadyCapture builds a capture that passes submission validation:
// customer details, a valid GPS fix near its pole, and all required photos.
func (f *fixture) newReadyCapture(t *testing.T) *models.Capture {
	t.Helper()

	pole := models.Pole{PoleNumber: "LAW.P.B167", Latitude: ptr(-26.2041), Longitude: ptr(28.0473), Status: "planted"}
	if err := f.db.Create(&pole).Error; err != nil {
		t.Fatalf("Failed to seed pole: %v", err)
	}

	c, err := f.captures.Create(capture.CreateInput{
		PoleNumber:      "LAW.P.B167",
		TechnicianID:    "tech-1",
		CustomerName:    "J. Mokoena",
		CustomerAddress: "12 Main Rd, Lawley",
	})
	if err != nil {
		t.Fatalf("Failed to create capture: %v", err)
	}

	if _, err := f.captures.UpdateLocation(c.ID, capture.Coordinates{
		Latitude: ptr(-26.2041), Longitude: ptr(28.0473), Accuracy: ptr(8),
	}); err != nil {
		t.Fatalf("Failed to set location: %v", err)
	}

	for _, pt := range models.DefaultRequiredPhotoTypes() {
		data := []byte("x")
		if _, err := f.photos.Attach(context.Background(), c.ID, pt, bytes.NewReader(data), 1, "image/jpeg"); err != nil {
			t.Fatalf("Failed to attach %s: %v", pt, err)
		}
	}
	return c
}

func TestSubmitBlockedOnMissingPhotoNamesIt(t *testing.T) {
	f := newFixture(t)
	c := f.newReadyCapture(t)

	// Knock out the power reading photo
	var photo models.Photo
	if err := f.db.Where("capture_id = ? AND type = ?", c.ID, models.PhotoTypePowerReading).First(&photo).Error; err != nil {
		t.Fatalf("Failed to find photo: %v", err)
	}
	if err := f.photos.Remove(context.Background(), photo.ID); err != nil {
		t.Fatalf("Failed to remove photo: %v", err)
	}

	_, res, err := f.svc.Submit(c.ID)
	if err == nil {
		t.Fatal("Submission with a missing photo type should fail")
	}
	var vErr *capture.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if res == nil || res.Valid {
		t.Fatal("Validation result should report the failure")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, string(models.PhotoTypePowerReading)) {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors should name the missing type, got %v", res.Errors)
	}

	// Status untouched on failed submission
	got, _ := f.captures.Get(c.ID)
	if got.ApprovalStatus != models.ApprovalStatusNone {
		t.Errorf("Approval state should be untouched, got %s", got.ApprovalStatus)
	}
	if got.Status == models.CaptureStatusCompleted {
		t.Error("Capture must not complete on a blocked submission")
	}
}

func TestSubmitHappyPath(t *testing.T) {
	f := newFixture(t)
	c := f.newReadyCapture(t)

	var decisions []string
	f.svc.OnDecision = func(c *models.Capture) {
		decisions = append(decisions, string(c.ApprovalStatus))
	}

	got, res, err := f.svc.Submit(c.ID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !res.Valid {
		t.Errorf("Validation should pass, errors %v", res.Errors)
	}
	// Optical power was never recorded: warning only
	if len(res.Warnings) == 0 {
		t.Error("Expected a missing-optical-power warning")
	}

	if got.Status != models.CaptureStatusCompleted {
		t.Errorf("Submitted capture should be completed, got %s", got.Status)
	}
	if got.ApprovalStatus != models.ApprovalStatusPending {
		t.Errorf("Submitted capture should be approval-pending, got %s", got.ApprovalStatus)
	}
	if got.SubmittedAt == nil {
		t.Error("SubmittedAt should be stamped")
	}
	if len(decisions) != 1 || decisions[0] != "pending" {
		t.Errorf("OnDecision should fire once with pending, got %v", decisions)
	}
}

func TestApproveLifecycle(t *testing.T) {
	f := newFixture(t)
	c := f.newReadyCapture(t)

	// Approving before submission is a state conflict
	if _, err := f.svc.Approve(c.ID, "admin@vf.co.za", ""); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("Expected state conflict for unsubmitted capture, got %v", err)
	}

	if _, _, err := f.svc.Submit(c.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	got, err := f.svc.Approve(c.ID, "admin@vf.co.za", "Clean install")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if got.ApprovalStatus != models.ApprovalStatusApproved {
		t.Errorf("Expected approved, got %s", got.ApprovalStatus)
	}
	if got.ApprovedBy != "admin@vf.co.za" || got.ApprovedAt == nil {
		t.Error("Approval metadata should be recorded")
	}

	// Double approval is a conflict, not a silent overwrite
	if _, err := f.svc.Approve(c.ID, "other@vf.co.za", ""); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("Expected state conflict on double approval, got %v", err)
	}
	got, _ = f.captures.Get(c.ID)
	if got.ApprovedBy != "admin@vf.co.za" {
		t.Error("Original approver must survive the conflicting call")
	}
}

func TestRejectReopensForRework(t *testing.T) {
	f := newFixture(t)
	c := f.newReadyCapture(t)

	if _, _, err := f.svc.Submit(c.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Reason is mandatory
	if _, err := f.svc.Reject(c.ID, "admin@vf.co.za", "", nil); err == nil {
		t.Fatal("Rejection without a reason should fail")
	}

	got, err := f.svc.Reject(c.ID, "admin@vf.co.za", "ONT photo is blurred", []string{"Retake ont_location photo"})
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if got.ApprovalStatus != models.ApprovalStatusRejected {
		t.Errorf("Expected rejected, got %s", got.ApprovalStatus)
	}
	if got.Status != models.CaptureStatusInProgress {
		t.Errorf("Rejected capture should reopen as in_progress, got %s", got.Status)
	}
	if got.RejectionReason != "ONT photo is blurred" {
		t.Errorf("Reason lost: %q", got.RejectionReason)
	}
	if len(got.RequiredActions) == 0 {
		t.Error("Required actions should be recorded")
	}

	// Approval directly from rejected is legal (rework verified off-system)
	approved, err := f.svc.Approve(c.ID, "admin@vf.co.za", "Fixed on site")
	if err != nil {
		t.Fatalf("Approve from rejected failed: %v", err)
	}
	if approved.ApprovalStatus != models.ApprovalStatusApproved {
		t.Errorf("Expected approved, got %s", approved.ApprovalStatus)
	}

	f.captures.Autosaver().StopAll()
}

func TestResubmitAfterRejection(t *testing.T) {
	f := newFixture(t)
	c := f.newReadyCapture(t)

	if _, _, err := f.svc.Submit(c.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := f.svc.Reject(c.ID, "admin@vf.co.za", "Bad cable run photo", nil); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	got, _, err := f.svc.Submit(c.ID)
	if err != nil {
		t.Fatalf("Resubmission failed: %v", err)
	}
	if got.ApprovalStatus != models.ApprovalStatusPending {
		t.Errorf("Resubmitted capture should be pending again, got %s", got.ApprovalStatus)
	}
	if got.Status != models.CaptureStatusCompleted {
		t.Errorf("Resubmitted capture should be completed, got %s", got.Status)
	}
}

func TestPendingOrderedBySubmission(t *testing.T) {
	f := newFixture(t)

	pole := models.Pole{PoleNumber: "LAW.P.B200", Status: "planted"}
	if err := f.db.Create(&pole).Error; err != nil {
		t.Fatalf("Failed to seed pole: %v", err)
	}

	earlier := time.Now().UTC().Add(-2 * time.Hour)
	later := time.Now().UTC().Add(-time.Hour)
	rows := []models.Capture{
		{ID: "HD-late", PoleNumber: "LAW.P.B200", ApprovalStatus: models.ApprovalStatusPending, SubmittedAt: &later},
		{ID: "HD-early", PoleNumber: "LAW.P.B200", ApprovalStatus: models.ApprovalStatusPending, SubmittedAt: &earlier},
		{ID: "HD-none", PoleNumber: "LAW.P.B200", ApprovalStatus: models.ApprovalStatusNone},
	}
	for i := range rows {
		if err := f.db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("Failed to seed capture: %v", err)
		}
	}

	pending, err := f.svc.Pending()
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending captures, got %d", len(pending))
	}
	if pending[0].ID != "HD-early" {
		t.Error("Pending list should be oldest submission first")
	}
}

func TestQualityReportFullCapture(t *testing.T) {
	f := newFixture(t)
	c := f.newReadyCapture(t)

	// Fill the remaining scored fields
	contact := "082 000 0000"
	power := -18.0
	activation := "active"
	if _, err := f.captures.Update(c.ID, capture.UpdateInput{
		CustomerContact:  &contact,
		OpticalPowerDBm:  &power,
		ActivationStatus: &activation,
		Equipment:        map[string]any{"ont": "HG8145V5"},
	}); err != nil {
		t.Fatalf("Failed to update capture: %v", err)
	}

	report, err := f.svc.QualityReport(c.ID)
	if err != nil {
		t.Fatalf("QualityReport failed: %v", err)
	}
	if report.Score != 100 {
		t.Errorf("A complete capture should score 100, got %d (%+v)", report.Score, report)
	}
}

func TestApprovalStats(t *testing.T) {
	f := newFixture(t)

	now := time.Now().UTC()
	sub := now.Add(-4 * time.Hour)
	app := now.Add(-2 * time.Hour)
	rows := []models.Capture{
		{ID: "HD-a", PoleNumber: "P", ApprovalStatus: models.ApprovalStatusApproved, SubmittedAt: &sub, ApprovedAt: &app},
		{ID: "HD-b", PoleNumber: "P", ApprovalStatus: models.ApprovalStatusPending, SubmittedAt: &sub},
		{ID: "HD-c", PoleNumber: "P", ApprovalStatus: models.ApprovalStatusRejected, SubmittedAt: &sub},
	}
	for i := range rows {
		if err := f.db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("Failed to seed capture: %v", err)
		}
	}

	stats, err := f.svc.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Pending != 1 || stats.Approved != 1 || stats.Rejected != 1 {
		t.Errorf("Unexpected counts: %+v", stats)
	}
	if stats.MeanApprovalHours < 1.9 || stats.MeanApprovalHours > 2.1 {
		t.Errorf("Expected ~2h mean approval latency, got %.2f", stats.MeanApprovalHours)
	}
}
