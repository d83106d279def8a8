package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LogType string

const (
	LogLogin   LogType = "login"
	LogClient  LogType = "client"
	LogConfig  LogType = "config"
	LogManager LogType = "manager"
	LogSystem  LogType = "system"
)

// Valid reports whether t is a known log type.
func (t LogType) Valid() bool {
	switch t {
	case LogLogin, LogClient, LogConfig, LogManager, LogSystem:
		return true
	}
	return false
}

// Log is an append-only audit entry for a machine.
type Log struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	MachineID uuid.UUID `gorm:"type:uuid;index;not null"`
	Action    string    `gorm:"size:255;not null"`
	Details   *string   `gorm:"type:text"`
	Type      LogType   `gorm:"size:20;index;not null"`
	CreatedAt time.Time `gorm:"index;not null"`
}

func (l *Log) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
