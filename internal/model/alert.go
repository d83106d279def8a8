package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities for display, most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// SystemAlert is a persisted health alert. A nil MachineID marks a system-wide
// alert. At most one unresolved alert exists per (MachineID, Title).
type SystemAlert struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MachineID  *uuid.UUID `gorm:"type:uuid;index"`
	Title      string     `gorm:"size:200;not null"`
	Message    string     `gorm:"size:500;not null"`
	Severity   Severity   `gorm:"size:20;not null"`
	Resolved   bool       `gorm:"index;not null"`
	ResolvedAt *time.Time
	ResolvedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time  `gorm:"index;not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
}

func (a *SystemAlert) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
