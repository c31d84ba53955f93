// Package approval implements submission validation and the admin
// approve/reject gate for completed captures.
package approval

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/velocityfibre/fibrefield/internal/capture"
	"github.com/velocityfibre/fibrefield/internal/config"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
	"gorm.io/datatypes"
)

// ErrStateConflict is returned when an approval action is applied to a
// capture whose approval state does not admit it (e.g. approving an
// already-approved capture).
var ErrStateConflict = errors.New("approval state conflict")

// PowerBand is the acceptable optical receive power window in dBm
type PowerBand struct {
	MinDBm float64
	MaxDBm float64
}

// DefaultPowerBand is the GPON receive window used when none is configured
var DefaultPowerBand = PowerBand{MinDBm: -30, MaxDBm: -8}

// Service validates submissions and applies admin decisions
type Service struct {
	db       *database.DB
	captures *capture.Service
	photos   *capture.PhotoManager
	gps      config.GPSConfig
	power    PowerBand
	now      func() time.Time

	// OnDecision, when set, is called after a successful submit, approve
	// or reject with the updated capture
	OnDecision func(*models.Capture)
}

// NewService creates the approval service
func NewService(db *database.DB, captures *capture.Service, photos *capture.PhotoManager, gpsCfg config.GPSConfig) *Service {
	return &Service{
		db:       db,
		captures: captures,
		photos:   photos,
		gps:      gpsCfg,
		power:    DefaultPowerBand,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Validate runs the full submission check for a capture. Errors block
// submission; warnings (optical power, activation status) do not.
func (s *Service) Validate(c *models.Capture, missingPhotos []models.PhotoType) *capture.ValidationResult {
	res := &capture.ValidationResult{Valid: true}

	if c.PoleNumber == "" {
		res.Errors = append(res.Errors, "capture has no pole reference")
	}
	if c.CustomerName == "" {
		res.Errors = append(res.Errors, "customer name is required")
	}
	if c.CustomerAddress == "" {
		res.Errors = append(res.Errors, "customer address is required")
	}
	if !c.HasLocation() {
		res.Errors = append(res.Errors, "GPS location has not been captured")
	}
	for _, t := range missingPhotos {
		res.Errors = append(res.Errors, fmt.Sprintf("required photo missing: %s", t))
	}
	if c.DistanceFromPole != nil && *c.DistanceFromPole > s.gps.MaxDistanceFromPole {
		res.Errors = append(res.Errors,
			fmt.Sprintf("capture is %.0fm from pole %s, maximum is %.0fm",
				*c.DistanceFromPole, c.PoleNumber, s.gps.MaxDistanceFromPole))
	}

	if c.OpticalPowerDBm == nil {
		res.Warnings = append(res.Warnings, "optical power reading is missing")
	} else if *c.OpticalPowerDBm < s.power.MinDBm || *c.OpticalPowerDBm > s.power.MaxDBm {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("optical power %.1fdBm is outside the %.0f..%.0fdBm band",
				*c.OpticalPowerDBm, s.power.MinDBm, s.power.MaxDBm))
	}
	if c.ActivationStatus == "" {
		res.Warnings = append(res.Warnings, "activation status is not recorded")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// Submit runs validation and, if clean, moves the capture to completed
// with approval pending. The capture status is untouched on failure.
func (s *Service) Submit(id string) (*models.Capture, *capture.ValidationResult, error) {
	c, err := s.captures.Get(id)
	if err != nil {
		return nil, nil, err
	}

	missing, err := s.photos.MissingTypes(id)
	if err != nil {
		return nil, nil, err
	}

	res := s.Validate(c, missing)
	if !res.Valid {
		return nil, res, capture.NewValidationError(res.Errors...)
	}

	now := s.now()
	s.captures.CompleteForSubmission(c)
	c.ApprovalStatus = models.ApprovalStatusPending
	c.SubmittedAt = &now
	c.UpdatedAt = now

	if err := s.db.Save(c).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to submit capture %s: %w", id, err)
	}

	log.Printf("📨 [Approval] %s submitted for review", id)
	s.notify(c)
	return c, res, nil
}

// Approve records an admin approval. Approval is legal from pending and
// from rejected (re-approval after rework); approving an already-approved
// capture is a state conflict rather than a silent second approval.
func (s *Service) Approve(id, approvedBy, notes string) (*models.Capture, error) {
	c, err := s.captures.Get(id)
	if err != nil {
		return nil, err
	}

	if c.ApprovalStatus == models.ApprovalStatusApproved {
		return nil, fmt.Errorf("%w: capture %s is already approved", ErrStateConflict, id)
	}
	if c.ApprovalStatus == models.ApprovalStatusNone {
		return nil, fmt.Errorf("%w: capture %s has not been submitted", ErrStateConflict, id)
	}

	now := s.now()
	c.ApprovalStatus = models.ApprovalStatusApproved
	c.ApprovedAt = &now
	c.ApprovedBy = approvedBy
	c.ApprovalNotes = notes
	c.UpdatedAt = now

	if err := s.db.Save(c).Error; err != nil {
		return nil, fmt.Errorf("failed to approve capture %s: %w", id, err)
	}

	log.Printf("✅ [Approval] %s approved by %s", id, approvedBy)
	s.notify(c)
	return c, nil
}

// Reject records an admin rejection and reopens the capture for rework:
// approval state stays rejected while the lifecycle returns to
// in_progress so the technician can re-enter the workflow.
func (s *Service) Reject(id, rejectedBy, reason string, requiredActions []string) (*models.Capture, error) {
	if reason == "" {
		return nil, capture.NewValidationError("a rejection reason is required")
	}

	c, err := s.captures.Get(id)
	if err != nil {
		return nil, err
	}

	if c.ApprovalStatus == models.ApprovalStatusApproved {
		return nil, fmt.Errorf("%w: capture %s is already approved", ErrStateConflict, id)
	}
	if c.ApprovalStatus == models.ApprovalStatusNone {
		return nil, fmt.Errorf("%w: capture %s has not been submitted", ErrStateConflict, id)
	}

	now := s.now()
	c.ApprovalStatus = models.ApprovalStatusRejected
	c.RejectedAt = &now
	c.RejectedBy = rejectedBy
	c.RejectionReason = reason
	if len(requiredActions) > 0 {
		raw, err := json.Marshal(requiredActions)
		if err == nil {
			c.RequiredActions = datatypes.JSON(raw)
		}
	}
	s.captures.ReopenForRework(c)
	c.UpdatedAt = now

	if err := s.db.Save(c).Error; err != nil {
		return nil, fmt.Errorf("failed to reject capture %s: %w", id, err)
	}

	log.Printf("❌ [Approval] %s rejected by %s: %s", id, rejectedBy, reason)
	s.notify(c)
	return c, nil
}

// Pending lists captures awaiting review, oldest submission first
func (s *Service) Pending() ([]models.Capture, error) {
	var captures []models.Capture
	err := s.db.Where("approval_status = ?", models.ApprovalStatusPending).
		Order("submitted_at ASC").
		Find(&captures).Error
	return captures, err
}

func (s *Service) notify(c *models.Capture) {
	if s.OnDecision != nil {
		s.OnDecision(c)
	}
}
