package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaptureStatus defines the lifecycle state of a capture
type CaptureStatus string

const (
	CaptureStatusAssigned   CaptureStatus = "assigned"
	CaptureStatusInProgress CaptureStatus = "in_progress"
	CaptureStatusCompleted  CaptureStatus = "completed"
)

// SyncState defines the sync state of a capture relative to the upstream server
type SyncState string

const (
	SyncStatePending SyncState = "pending"
	SyncStateSynced  SyncState = "synced"
	SyncStateError   SyncState = "error"
)

// ApprovalStatus defines the admin review state of a submitted capture
type ApprovalStatus string

const (
	ApprovalStatusNone     ApprovalStatus = "none"
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// WorkflowStep names one of the four fixed capture stages
type WorkflowStep string

const (
	StepAssignments WorkflowStep = "assignments"
	StepGPS         WorkflowStep = "gps"
	StepPhotos      WorkflowStep = "photos"
	StepReview      WorkflowStep = "review"
)

// StepIndex maps a workflow step to its fixed 1-based index
func StepIndex(step WorkflowStep) int {
	switch step {
	case StepAssignments:
		return 1
	case StepGPS:
		return 2
	case StepPhotos:
		return 3
	case StepReview:
		return 4
	}
	return 0
}

// Capture represents a home-drop installation record captured in the field.
// Convention: Go PascalCase -> DB snake_case (GORM auto) -> JSON camelCase
type Capture struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	PoleNumber   string `gorm:"not null;index" json:"poleNumber"`
	ProjectID    string `gorm:"index" json:"projectId"`
	ContractorID string `gorm:"index" json:"contractorId"`
	TechnicianID string `gorm:"index" json:"technicianId"`

	// Customer sub-record
	CustomerName    string `json:"customerName"`
	CustomerAddress string `json:"customerAddress"`
	CustomerContact string `json:"customerContact"`

	// GPS location of the drop
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	Altitude         *float64   `json:"altitude,omitempty"`
	Accuracy         *float64   `json:"accuracy,omitempty"`
	GPSTimestamp     *time.Time `json:"gpsTimestamp,omitempty"`
	DistanceFromPole *float64   `json:"distanceFromPole,omitempty"`

	GPSValidated       bool `gorm:"default:false" json:"gpsValidated"`
	ProximityValidated bool `gorm:"default:false" json:"proximityValidated"`

	// Installation sub-record
	Equipment        datatypes.JSON `json:"equipment"`
	OpticalPowerDBm  *float64       `json:"opticalPowerDbm,omitempty"`
	ServiceConfig    datatypes.JSON `json:"serviceConfig"`
	ActivationStatus string         `json:"activationStatus"`

	// Workflow state: step flags are monotonic during normal progression
	CurrentStep          int  `gorm:"default:1" json:"currentStep"`
	AssignmentsConfirmed bool `gorm:"default:false" json:"assignmentsConfirmed"`
	GPSCaptured          bool `gorm:"default:false" json:"gpsCaptured"`
	PhotosCaptured       bool `gorm:"default:false" json:"photosCaptured"`
	Reviewed             bool `gorm:"default:false" json:"reviewed"`

	Status         CaptureStatus  `gorm:"type:varchar(32);default:'assigned';index" json:"status"`
	SyncStatus     SyncState      `gorm:"type:varchar(32);default:'pending';index" json:"syncStatus"`
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(32);default:'none';index" json:"approvalStatus"`

	// Approval metadata
	SubmittedAt     *time.Time     `json:"submittedAt,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	ApprovedBy      string         `json:"approvedBy,omitempty"`
	ApprovalNotes   string         `gorm:"type:text" json:"approvalNotes,omitempty"`
	RejectedAt      *time.Time     `json:"rejectedAt,omitempty"`
	RejectedBy      string         `json:"rejectedBy,omitempty"`
	RejectionReason string         `gorm:"type:text" json:"rejectionReason,omitempty"`
	RequiredActions datatypes.JSON `json:"requiredActions,omitempty"`

	Notes       string     `gorm:"type:text" json:"notes"`
	LastSavedAt *time.Time `json:"lastSavedAt,omitempty"`
	SyncedAt    *time.Time `json:"syncedAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Photos []Photo `gorm:"foreignKey:CaptureID" json:"photos,omitempty"`
}

// TableName specifies the table name for Capture model
func (Capture) TableName() string {
	return "captures"
}

// HasLocation reports whether the capture carries usable GPS coordinates
func (c *Capture) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// WorkflowComplete reports whether all four step flags are set
func (c *Capture) WorkflowComplete() bool {
	return c.AssignmentsConfirmed && c.GPSCaptured && c.PhotosCaptured && c.Reviewed
}
