package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/velocityfibre/fibrefield/internal/models"
	"github.com/velocityfibre/fibrefield/internal/storage"
	"gorm.io/gorm"
)

// ErrPhotoNotFound is returned when the referenced photo is absent
var ErrPhotoNotFound = errors.New("photo not found")

// PhotoManager attaches typed photos to captures and tracks completion
// against the required set. Binary payloads live in the blob store; rows
// in the photos table.
type PhotoManager struct {
	svc      *Service
	blobs    storage.BlobStore
	required []models.PhotoType
}

// NewPhotoManager creates a photo manager. A nil required set selects the
// standard home-drop set.
func NewPhotoManager(svc *Service, blobs storage.BlobStore, required []models.PhotoType) *PhotoManager {
	if len(required) == 0 {
		required = models.DefaultRequiredPhotoTypes()
	}
	return &PhotoManager{svc: svc, blobs: blobs, required: required}
}

// RequiredTypes returns the required photo type set
func (pm *PhotoManager) RequiredTypes() []models.PhotoType {
	return pm.required
}

// Attach stores a photo blob and records it against the capture
func (pm *PhotoManager) Attach(ctx context.Context, captureID string, photoType models.PhotoType, r io.Reader, size int64, contentType string) (*models.Photo, error) {
	if !pm.knownType(photoType) {
		return nil, NewValidationError(fmt.Sprintf("unknown photo type %q", photoType))
	}

	c, err := pm.svc.Get(captureID)
	if err != nil {
		return nil, err
	}

	photo := &models.Photo{
		ID:          "PH-" + uuid.NewString(),
		CaptureID:   c.ID,
		Type:        photoType,
		ContentType: contentType,
		SizeBytes:   size,
		TakenAt:     time.Now().UTC(),
	}
	photo.ObjectKey = fmt.Sprintf("%s/%s", c.ID, photo.ID)

	if pm.blobs != nil && r != nil {
		if err := pm.blobs.Put(ctx, photo.ObjectKey, r, size, contentType); err != nil {
			return nil, fmt.Errorf("failed to store photo blob: %w", err)
		}
	}

	if err := pm.svc.db.Create(photo).Error; err != nil {
		if pm.blobs != nil {
			_ = pm.blobs.Delete(ctx, photo.ObjectKey)
		}
		return nil, fmt.Errorf("failed to record photo: %w", err)
	}

	log.Printf("📷 [Photos] Attached %s (%s) to %s", photo.ID, photoType, captureID)
	return photo, nil
}

// Remove deletes a photo row and its blob
func (pm *PhotoManager) Remove(ctx context.Context, photoID string) error {
	var photo models.Photo
	if err := pm.svc.db.Where("id = ?", photoID).First(&photo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrPhotoNotFound, photoID)
		}
		return err
	}

	if err := pm.svc.db.Delete(&photo).Error; err != nil {
		return fmt.Errorf("failed to delete photo %s: %w", photoID, err)
	}
	if pm.blobs != nil {
		if err := pm.blobs.Delete(ctx, photo.ObjectKey); err != nil {
			log.Printf("⚠️ [Photos] Orphaned blob %s: %v", photo.ObjectKey, err)
		}
	}
	return nil
}

// Completion describes a capture's photo progress against the required set
type Completion struct {
	Required  []models.PhotoType `json:"required"`
	Completed []models.PhotoType `json:"completed"`
	Missing   []models.PhotoType `json:"missing"`
	Complete  bool               `json:"complete"`
}

// Completion reports which required photo types are present on a capture
func (pm *PhotoManager) Completion(captureID string) (*Completion, error) {
	if _, err := pm.svc.Get(captureID); err != nil {
		return nil, err
	}

	var photos []models.Photo
	if err := pm.svc.db.Where("capture_id = ?", captureID).Find(&photos).Error; err != nil {
		return nil, err
	}

	have := make(map[models.PhotoType]bool, len(photos))
	for _, p := range photos {
		have[p.Type] = true
	}

	comp := &Completion{Required: pm.required}
	for _, t := range pm.required {
		if have[t] {
			comp.Completed = append(comp.Completed, t)
		} else {
			comp.Missing = append(comp.Missing, t)
		}
	}
	comp.Complete = len(comp.Missing) == 0
	return comp, nil
}

// MissingTypes is the validation helper used at submission time
func (pm *PhotoManager) MissingTypes(captureID string) ([]models.PhotoType, error) {
	comp, err := pm.Completion(captureID)
	if err != nil {
		return nil, err
	}
	return comp.Missing, nil
}

func (pm *PhotoManager) knownType(t models.PhotoType) bool {
	for _, r := range pm.required {
		if r == t {
			return true
		}
	}
	return false
}
