package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/velocityfibre/fibrefield/internal/config"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service owns capture CRUD and the 4-step workflow state machine.
// Storage is constructor-injected so tests run against isolated stores.
type Service struct {
	db       *database.DB
	gps      config.GPSConfig
	autosave *Autosave
	now      func() time.Time
}

// NewService creates a capture service
func NewService(db *database.DB, gpsCfg config.GPSConfig, autosaveInterval time.Duration) *Service {
	s := &Service{
		db:  db,
		gps: gpsCfg,
		now: func() time.Time { return time.Now().UTC() },
	}
	s.autosave = NewAutosave(db, autosaveInterval)
	return s
}

// Autosaver exposes the autosave manager for shutdown handling
func (s *Service) Autosaver() *Autosave {
	return s.autosave
}

// CreateInput holds the fields a technician supplies when opening a capture
type CreateInput struct {
	PoleNumber      string         `json:"poleNumber"`
	ProjectID       string         `json:"projectId"`
	ContractorID    string         `json:"contractorId"`
	TechnicianID    string         `json:"technicianId"`
	CustomerName    string         `json:"customerName"`
	CustomerAddress string         `json:"customerAddress"`
	CustomerContact string         `json:"customerContact"`
	Notes           string         `json:"notes"`
	Equipment       map[string]any `json:"equipment"`
}

// NewCaptureID generates a home-drop capture id, e.g. HD-1717171717171-4F2A9C
func NewCaptureID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("HD-%d-%s", now.UnixMilli(), suffix)
}

// Create opens a new capture against an existing pole.
// Returns ErrPoleNotFound if the pole reference cannot be resolved.
func (s *Service) Create(input CreateInput) (*models.Capture, error) {
	if input.PoleNumber == "" {
		return nil, NewValidationError("poleNumber is required")
	}

	var pole models.Pole
	if err := s.db.Where("pole_number = ?", input.PoleNumber).First(&pole).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPoleNotFound, input.PoleNumber)
		}
		return nil, fmt.Errorf("failed to resolve pole %s: %w", input.PoleNumber, err)
	}

	now := s.now()
	c := &models.Capture{
		ID:              NewCaptureID(now),
		PoleNumber:      pole.PoleNumber,
		ProjectID:       input.ProjectID,
		ContractorID:    input.ContractorID,
		TechnicianID:    input.TechnicianID,
		CustomerName:    input.CustomerName,
		CustomerAddress: input.CustomerAddress,
		CustomerContact: input.CustomerContact,
		Notes:           input.Notes,
		CurrentStep:     1,
		Status:          models.CaptureStatusAssigned,
		SyncStatus:      models.SyncStatePending,
		ApprovalStatus:  models.ApprovalStatusNone,
	}
	if input.Equipment != nil {
		raw, err := json.Marshal(input.Equipment)
		if err != nil {
			return nil, fmt.Errorf("failed to encode equipment: %w", err)
		}
		c.Equipment = datatypes.JSON(raw)
	}

	if err := s.db.Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create capture: %w", err)
	}

	log.Printf("📋 [Capture] Created %s for pole %s", c.ID, c.PoleNumber)
	return c, nil
}

// Get fetches a capture by id with its photos preloaded
func (s *Service) Get(id string) (*models.Capture, error) {
	var c models.Capture
	err := s.db.Preload("Photos").Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
		}
		return nil, err
	}
	return &c, nil
}

// List returns all captures, newest first
func (s *Service) List() ([]models.Capture, error) {
	var captures []models.Capture
	if err := s.db.Order("created_at DESC").Find(&captures).Error; err != nil {
		return nil, err
	}
	return captures, nil
}

// UpdateInput holds the merge-patch fields an update may carry
type UpdateInput struct {
	CustomerName     *string        `json:"customerName,omitempty"`
	CustomerAddress  *string        `json:"customerAddress,omitempty"`
	CustomerContact  *string        `json:"customerContact,omitempty"`
	Notes            *string        `json:"notes,omitempty"`
	OpticalPowerDBm  *float64       `json:"opticalPowerDbm,omitempty"`
	ActivationStatus *string        `json:"activationStatus,omitempty"`
	Equipment        map[string]any `json:"equipment,omitempty"`
	ServiceConfig    map[string]any `json:"serviceConfig,omitempty"`
}

// Update merges the supplied fields into the capture and stamps UpdatedAt
func (s *Service) Update(id string, input UpdateInput) (*models.Capture, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.CustomerName != nil {
		c.CustomerName = *input.CustomerName
	}
	if input.CustomerAddress != nil {
		c.CustomerAddress = *input.CustomerAddress
	}
	if input.CustomerContact != nil {
		c.CustomerContact = *input.CustomerContact
	}
	if input.Notes != nil {
		c.Notes = *input.Notes
	}
	if input.OpticalPowerDBm != nil {
		c.OpticalPowerDBm = input.OpticalPowerDBm
	}
	if input.ActivationStatus != nil {
		c.ActivationStatus = *input.ActivationStatus
	}
	if input.Equipment != nil {
		raw, err := json.Marshal(input.Equipment)
		if err != nil {
			return nil, fmt.Errorf("failed to encode equipment: %w", err)
		}
		c.Equipment = datatypes.JSON(raw)
	}
	if input.ServiceConfig != nil {
		raw, err := json.Marshal(input.ServiceConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to encode service config: %w", err)
		}
		c.ServiceConfig = datatypes.JSON(raw)
	}

	c.UpdatedAt = s.now()
	if err := s.db.Save(c).Error; err != nil {
		return nil, fmt.Errorf("failed to update capture %s: %w", id, err)
	}
	return c, nil
}

// Delete removes a capture and cascades its photos and queued sync items.
// The autosave task, if any, is cancelled first.
func (s *Service) Delete(id string) error {
	c, err := s.Get(id)
	if err != nil {
		return err
	}

	s.autosave.Stop(id)

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("capture_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return fmt.Errorf("failed to delete photos for %s: %w", id, err)
		}
		if err := tx.Where("capture_id = ?", id).Delete(&models.SyncQueueItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete sync queue rows for %s: %w", id, err)
		}
		if err := tx.Delete(c).Error; err != nil {
			return fmt.Errorf("failed to delete capture %s: %w", id, err)
		}
		log.Printf("🗑️ [Capture] Deleted %s (photos and sync queue cascaded)", id)
		return nil
	})
}

// Pole fetches the pole a capture references
func (s *Service) Pole(poleNumber string) (*models.Pole, error) {
	var pole models.Pole
	if err := s.db.Where("pole_number = ?", poleNumber).First(&pole).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPoleNotFound, poleNumber)
		}
		return nil, err
	}
	return &pole, nil
}

// Snapshot serializes the current capture state for an outbox payload
func (s *Service) Snapshot(id string) (datatypes.JSON, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot capture %s: %w", id, err)
	}
	return datatypes.JSON(raw), nil
}
