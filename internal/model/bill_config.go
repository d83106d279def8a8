package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultFooterMessage is printed on a bill when no footer is configured.
const DefaultFooterMessage = "Thank you. Visit again"

// BillConfig holds receipt branding and tax settings. One per machine.
type BillConfig struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	MachineID     uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	OrgName       string          `gorm:"size:255;not null"`
	Tagline       *string         `gorm:"size:255"`
	LogoURL       *string         `gorm:"size:500"`
	UnitName      *string         `gorm:"size:255"`
	Territory     *string         `gorm:"size:255"`
	GSTNumber     *string         `gorm:"size:50"`
	POSID         *string         `gorm:"column:pos_id;size:50"`
	CGSTPercent   decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	SGSTPercent   decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	FooterMessage *string         `gorm:"size:500"`
	Website       *string         `gorm:"size:255"`
	TollFree      *string         `gorm:"size:50"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

func (b *BillConfig) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	if b.FooterMessage == nil {
		footer := DefaultFooterMessage
		b.FooterMessage = &footer
	}
	return nil
}
