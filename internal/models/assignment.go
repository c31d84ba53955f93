package models

import (
	"time"

	"gorm.io/gorm"
)

// Assignment represents a work assignment imported from a QGIS project,
// linking a technician to a pole awaiting home-drop capture.
type Assignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PoleNumber   string     `gorm:"not null;index" json:"poleNumber"`
	ProjectID    string     `gorm:"index" json:"projectId"`
	TechnicianID string     `gorm:"index" json:"technicianId"`
	Status       string     `gorm:"type:varchar(32);default:'open'" json:"status"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	Notes        string     `gorm:"type:text" json:"notes"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Assignment model
func (Assignment) TableName() string {
	return "assignments"
}
