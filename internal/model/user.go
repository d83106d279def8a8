package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the administrative role of a User.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
)

// User is an administrative account. A user owns zero or more machines.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username       string    `gorm:"uniqueIndex;size:50;not null"`
	Email          string    `gorm:"uniqueIndex;size:255;not null"`
	HashedPassword string    `gorm:"size:255;not null"`
	Role           Role      `gorm:"size:20;not null"`
	IsActive       bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = RoleOperator
	}
	return nil
}
