package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type HistoryType string

const (
	HistoryCreate HistoryType = "create"
	HistoryUpdate HistoryType = "update"
	HistoryDelete HistoryType = "delete"
	HistoryStatus HistoryType = "status"
)

// CatalogHistory records a change to a machine's service catalog.
// Changes maps a field name to {"old": ..., "new": ...}.
type CatalogHistory struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	MachineID uuid.UUID         `gorm:"type:uuid;index;not null"`
	ServiceID *uuid.UUID        `gorm:"type:uuid"`
	Action    string            `gorm:"size:255;not null"`
	Details   string            `gorm:"type:text"`
	UserName  string            `gorm:"size:100"`
	Type      HistoryType       `gorm:"size:20;not null"`
	Changes   datatypes.JSONMap
	CreatedAt time.Time         `gorm:"index;not null"`
}

func (h *CatalogHistory) BeforeCreate(tx *gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
