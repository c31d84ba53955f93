package models

import (
	"time"

	"gorm.io/gorm"
)

// Pole represents a planted fibre pole that captures reference
type Pole struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	PoleNumber string   `gorm:"unique;not null" json:"poleNumber"`
	ProjectID  string   `gorm:"index" json:"projectId"`
	Zone       string   `json:"zone"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Status     string   `gorm:"type:varchar(32);default:'planted'" json:"status"`
	MaxDrops   int      `gorm:"default:12" json:"maxDrops"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Pole model
func (Pole) TableName() string {
	return "poles"
}

// HasLocation reports whether the pole has surveyed GPS coordinates
func (p *Pole) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}
