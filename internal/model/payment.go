package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	MethodUPI  PaymentMethod = "UPI"
	MethodCard PaymentMethod = "Card"
	MethodCash PaymentMethod = "Cash"
)

// PaymentMethods lists the methods in display order.
var PaymentMethods = []PaymentMethod{MethodUPI, MethodCard, MethodCash}

type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is a single bill settled at a machine. BillNumber is unique across
// the whole system and is used as the sync idempotency key.
type Payment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	MachineID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	BillNumber string          `gorm:"uniqueIndex;size:100;not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Method     PaymentMethod   `gorm:"size:10;not null"`
	Status     PaymentStatus   `gorm:"size:10;index;not null"`
	CreatedAt  time.Time       `gorm:"index;not null"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	if p.Status == "" {
		p.Status = PaymentSuccess
	}
	return nil
}
