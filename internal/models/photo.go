package models

import (
	"time"

	"gorm.io/gorm"
)

// PhotoType names one of the fixed required photo categories for a home drop
type PhotoType string

const (
	PhotoTypeHouse        PhotoType = "house_front"
	PhotoTypeCableRun     PhotoType = "cable_run"
	PhotoTypeEntryPoint   PhotoType = "entry_point"
	PhotoTypeONTLocation  PhotoType = "ont_location"
	PhotoTypePowerReading PhotoType = "power_reading"
	PhotoTypeCompleted    PhotoType = "completed_install"
)

// DefaultRequiredPhotoTypes is the standard required set for submission
func DefaultRequiredPhotoTypes() []PhotoType {
	return []PhotoType{
		PhotoTypeHouse,
		PhotoTypeCableRun,
		PhotoTypeEntryPoint,
		PhotoTypeONTLocation,
		PhotoTypePowerReading,
		PhotoTypeCompleted,
	}
}

// Photo represents a typed photo attached to a capture.
// Owned exclusively by its capture; deleted with it.
type Photo struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CaptureID   string    `gorm:"not null;index" json:"captureId"`
	Type        PhotoType `gorm:"type:varchar(32);not null" json:"type"`
	ObjectKey   string    `gorm:"not null" json:"objectKey"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	TakenAt     time.Time `json:"takenAt"`
	Quality     JSONB     `gorm:"type:jsonb;default:'{}'" json:"quality"`

	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Photo model
func (Photo) TableName() string {
	return "photos"
}
