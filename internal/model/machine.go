package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MachineStatus is the reported health of a billing machine.
type MachineStatus string

const (
	MachineOnline      MachineStatus = "online"
	MachineOffline     MachineStatus = "offline"
	MachineMaintenance MachineStatus = "maintenance"
)

// Valid reports whether s is a known status.
func (s MachineStatus) Valid() bool {
	switch s {
	case MachineOnline, MachineOffline, MachineMaintenance:
		return true
	}
	return false
}

// Machine represents a billing terminal. It logs in with its own credentials,
// independent of the owning user.
type Machine struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name              string          `gorm:"size:255;not null"`
	Location          string          `gorm:"size:255;not null"`
	Username          string          `gorm:"uniqueIndex;size:100;not null"`
	HashedPassword    string          `gorm:"size:255;not null"`
	Status            MachineStatus   `gorm:"size:20;index;not null"`
	LastSync          *time.Time
	OnlineCollection  decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	OfflineCollection decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

func (m *Machine) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	if m.Status == "" {
		m.Status = MachineOffline
	}
	return nil
}
