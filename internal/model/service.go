package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ServiceStatus string

const (
	ServiceActive   ServiceStatus = "active"
	ServiceInactive ServiceStatus = "inactive"
)

// Service is a catalog item sellable at a machine.
type Service struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	MachineID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name      string          `gorm:"size:255;not null"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Status    ServiceStatus   `gorm:"size:20;not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	if s.Status == "" {
		s.Status = ServiceActive
	}
	return nil
}
