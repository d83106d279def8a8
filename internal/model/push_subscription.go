package model

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription holds the information for a browser push subscription
// belonging to an administrative user.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
