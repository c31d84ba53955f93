// Package sync implements the durable outbox: pending capture mutations
// queued locally and drained in batches to the upstream FibreFlow server.
package sync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/models"
	"gorm.io/datatypes"
)

// Queue is the outbox table access layer
type Queue struct {
	db         *database.DB
	maxRetries int
	now        func() time.Time
}

// NewQueue creates a queue over the injected store
func NewQueue(db *database.DB, maxRetries int) *Queue {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Queue{
		db:         db,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue appends a mutation for a capture with attempts=0
func (q *Queue) Enqueue(captureID string, action models.SyncAction, payload datatypes.JSON) (*models.SyncQueueItem, error) {
	item := &models.SyncQueueItem{
		ID:         uuid.NewString(),
		CaptureID:  captureID,
		Action:     action,
		Payload:    payload,
		Status:     models.QueueStatusPending,
		MaxRetries: q.maxRetries,
	}
	if err := q.db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue %s for %s: %w", action, captureID, err)
	}
	return item, nil
}

// Due returns pending items plus retrying items whose retry time has
// arrived, in queue (creation) order
func (q *Queue) Due() ([]models.SyncQueueItem, error) {
	var items []models.SyncQueueItem
	err := q.db.
		Where("status = ? OR (status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?))",
			models.QueueStatusPending, models.QueueStatusRetrying, q.now()).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load due queue items: %w", err)
	}
	return items, nil
}

// Get fetches a single queue item
func (q *Queue) Get(id string) (*models.SyncQueueItem, error) {
	var item models.SyncQueueItem
	if err := q.db.Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// CountByStatus returns a histogram of queue item states
func (q *Queue) CountByStatus() (map[models.QueueStatus]int64, error) {
	type row struct {
		Status models.QueueStatus
		N      int64
	}
	var rows []row
	err := q.db.Model(&models.SyncQueueItem{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.QueueStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// PruneCompleted deletes all completed items and reports how many
func (q *Queue) PruneCompleted() (int64, error) {
	res := q.db.Where("status = ?", models.QueueStatusCompleted).Delete(&models.SyncQueueItem{})
	return res.RowsAffected, res.Error
}
