package capture

import (
	"fmt"
	"log"

	"github.com/velocityfibre/fibrefield/internal/models"
)

// ProgressWorkflow marks a workflow step done. Step flags are monotonic:
// setting an already-set flag is a no-op. Entering the assignments step
// moves the capture to in_progress and starts autosave; finishing review
// with all four flags set completes the capture and stops autosave.
func (s *Service) ProgressWorkflow(id string, step models.WorkflowStep) (*models.Capture, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	idx := models.StepIndex(step)
	if idx == 0 {
		return nil, NewValidationError(fmt.Sprintf("unknown workflow step %q", step))
	}

	switch step {
	case models.StepAssignments:
		c.AssignmentsConfirmed = true
		if c.Status == models.CaptureStatusAssigned {
			s.transition(c, models.CaptureStatusInProgress)
		}
	case models.StepGPS:
		c.GPSCaptured = true
	case models.StepPhotos:
		c.PhotosCaptured = true
	case models.StepReview:
		c.Reviewed = true
		if c.WorkflowComplete() {
			s.transition(c, models.CaptureStatusCompleted)
		}
	}

	if idx > c.CurrentStep {
		c.CurrentStep = idx
	}
	c.UpdatedAt = s.now()

	if err := s.db.Save(c).Error; err != nil {
		return nil, fmt.Errorf("failed to progress workflow for %s: %w", id, err)
	}

	log.Printf("▶️ [Workflow] %s step %d/%d (%s) -> status=%s", c.ID, idx, 4, step, c.Status)
	return c, nil
}

// transition applies a lifecycle status change and runs the single
// entry/exit hook for autosave ownership. Autosave runs exactly while a
// capture is in_progress; every exit path cancels the task here, so no
// scattered stop calls can be forgotten.
func (s *Service) transition(c *models.Capture, to models.CaptureStatus) {
	from := c.Status
	if from == to {
		return
	}
	c.Status = to

	switch to {
	case models.CaptureStatusInProgress:
		s.autosave.Start(c.ID)
	default:
		s.autosave.Stop(c.ID)
	}

	log.Printf("🔀 [Workflow] %s status %s -> %s", c.ID, from, to)
}

// ReopenForRework is invoked when an admin rejects a submitted capture:
// lifecycle returns to in_progress so the technician can re-enter the
// workflow. Approval state is managed by the caller.
func (s *Service) ReopenForRework(c *models.Capture) {
	s.transition(c, models.CaptureStatusInProgress)
}

// CompleteForSubmission moves a validated capture to completed as part of
// submission. Runs the same exit hook as the review step.
func (s *Service) CompleteForSubmission(c *models.Capture) {
	s.transition(c, models.CaptureStatusCompleted)
}
