// Package fieldops is the orchestrator façade: the single API surface the
// HTTP handlers consume. It composes the capture, photo, approval, sync
// and statistics services, and owns the rule that every mutating capture
// call lands a matching outbox entry.
package fieldops

import (
	"context"
	"io"
	"log"

	"github.com/velocityfibre/fibrefield/internal/approval"
	"github.com/velocityfibre/fibrefield/internal/capture"
	"github.com/velocityfibre/fibrefield/internal/models"
	"github.com/velocityfibre/fibrefield/internal/stats"
	"github.com/velocityfibre/fibrefield/internal/sync"
)

// Notifier receives live events for admin dashboards
type Notifier interface {
	Broadcast(event string, payload interface{})
}

// Service is the orchestrator façade
type Service struct {
	Captures *capture.Service
	Photos   *capture.PhotoManager
	Approval *approval.Service
	Stats    *stats.Service
	Queue    *sync.Queue

	notifier Notifier
}

// New assembles the façade. notifier may be nil.
func New(captures *capture.Service, photos *capture.PhotoManager, appr *approval.Service, st *stats.Service, queue *sync.Queue, notifier Notifier) *Service {
	s := &Service{
		Captures: captures,
		Photos:   photos,
		Approval: appr,
		Stats:    st,
		Queue:    queue,
		notifier: notifier,
	}
	appr.OnDecision = func(c *models.Capture) {
		s.enqueue(c.ID, models.SyncActionUpdate)
		s.broadcast("capture.approval", c)
	}
	return s
}

// CreateCapture opens a capture and enqueues its create mutation
func (s *Service) CreateCapture(input capture.CreateInput) (*models.Capture, error) {
	c, err := s.Captures.Create(input)
	if err != nil {
		return nil, err
	}
	s.enqueue(c.ID, models.SyncActionCreate)
	s.broadcast("capture.created", c)
	return c, nil
}

// UpdateCapture merges fields and enqueues an update mutation
func (s *Service) UpdateCapture(id string, input capture.UpdateInput) (*models.Capture, error) {
	c, err := s.Captures.Update(id, input)
	if err != nil {
		return nil, err
	}
	s.enqueue(id, models.SyncActionUpdate)
	return c, nil
}

// DeleteCapture removes a capture (cascading photos and stale queue rows)
// and enqueues the delete mutation for the upstream server
func (s *Service) DeleteCapture(id string) error {
	if err := s.Captures.Delete(id); err != nil {
		return err
	}
	// Cascade already dropped pending rows for this capture; the delete
	// itself still has to reach upstream
	if _, err := s.Queue.Enqueue(id, models.SyncActionDelete, nil); err != nil {
		log.Printf("⚠️ [FieldOps] Failed to enqueue delete for %s: %v", id, err)
	}
	s.broadcast("capture.deleted", map[string]string{"id": id})
	return nil
}

// ProgressWorkflow advances a workflow step and enqueues an update
func (s *Service) ProgressWorkflow(id string, step models.WorkflowStep) (*models.Capture, error) {
	c, err := s.Captures.ProgressWorkflow(id, step)
	if err != nil {
		return nil, err
	}
	s.enqueue(id, models.SyncActionUpdate)
	s.broadcast("capture.workflow", c)
	return c, nil
}

// UpdateGPS stores a GPS fix and enqueues an update
func (s *Service) UpdateGPS(id string, coords capture.Coordinates) (*models.Capture, error) {
	c, err := s.Captures.UpdateLocation(id, coords)
	if err != nil {
		return nil, err
	}
	s.enqueue(id, models.SyncActionUpdate)
	return c, nil
}

// AttachPhoto stores a photo and enqueues an update
func (s *Service) AttachPhoto(ctx context.Context, captureID string, photoType models.PhotoType, r io.Reader, size int64, contentType string) (*models.Photo, error) {
	p, err := s.Photos.Attach(ctx, captureID, photoType, r, size, contentType)
	if err != nil {
		return nil, err
	}
	s.enqueue(captureID, models.SyncActionUpdate)
	return p, nil
}

// RemovePhoto deletes a photo and enqueues an update
func (s *Service) RemovePhoto(ctx context.Context, captureID, photoID string) error {
	if err := s.Photos.Remove(ctx, photoID); err != nil {
		return err
	}
	s.enqueue(captureID, models.SyncActionUpdate)
	return nil
}

// Submit runs submission validation; on success the approval service's
// decision hook enqueues the update
func (s *Service) Submit(id string) (*models.Capture, *capture.ValidationResult, error) {
	return s.Approval.Submit(id)
}

// enqueue snapshots the capture and appends the outbox entry. Outbox
// failures are logged, not surfaced: the local mutation already
// succeeded and the capture stays sync-pending.
func (s *Service) enqueue(captureID string, action models.SyncAction) {
	payload, err := s.Captures.Snapshot(captureID)
	if err != nil {
		log.Printf("⚠️ [FieldOps] Failed to snapshot %s for outbox: %v", captureID, err)
		return
	}
	if _, err := s.Queue.Enqueue(captureID, action, payload); err != nil {
		log.Printf("⚠️ [FieldOps] Failed to enqueue %s for %s: %v", action, captureID, err)
	}
}

func (s *Service) broadcast(event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(event, payload)
	}
}
