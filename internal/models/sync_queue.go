package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncAction is the remote mutation an outbox item carries
type SyncAction string

const (
	SyncActionCreate SyncAction = "create"
	SyncActionUpdate SyncAction = "update"
	SyncActionDelete SyncAction = "delete"
)

// QueueStatus is the processing state of an outbox item.
// Terminal states are exactly completed and failed.
type QueueStatus string

const (
	QueueStatusPending   QueueStatus = "pending"
	QueueStatusSyncing   QueueStatus = "syncing"
	QueueStatusRetrying  QueueStatus = "retrying"
	QueueStatusCompleted QueueStatus = "completed"
	QueueStatusFailed    QueueStatus = "failed"
)

// SyncQueueItem is a durable outbox row: a pending mutation awaiting
// delivery to the upstream FibreFlow server.
type SyncQueueItem struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CaptureID   string         `gorm:"not null;index" json:"captureId"`
	Action      SyncAction     `gorm:"type:varchar(20);not null" json:"action"`
	Payload     datatypes.JSON `json:"payload"`
	Status      QueueStatus    `gorm:"type:varchar(32);default:'pending';index:idx_queue_pending" json:"status"`
	Attempts    int            `gorm:"default:0" json:"attempts"`
	MaxRetries  int            `gorm:"default:3" json:"maxRetries"`
	NextRetryAt *time.Time     `json:"nextRetryAt,omitempty"`
	ProcessedAt *time.Time     `json:"processedAt,omitempty"`
	LastError   *string        `gorm:"type:text" json:"lastError,omitempty"`
	CreatedAt   time.Time      `gorm:"index:idx_queue_pending" json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// TableName specifies the table name
func (SyncQueueItem) TableName() string {
	return "sync_queue"
}

// Terminal reports whether the item has reached a terminal state
func (i *SyncQueueItem) Terminal() bool {
	return i.Status == QueueStatusCompleted || i.Status == QueueStatusFailed
}
