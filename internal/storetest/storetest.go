// Package storetest provides in-memory sqlite databases and fixtures for
// tests across packages.
package storetest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"billing-admin-backend/config"
	"billing-admin-backend/internal/db"
	"billing-admin-backend/internal/model"
)

var seq atomic.Int64

// DB opens a migrated in-memory sqlite database private to t.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("sqlite:file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	gormDB, err := db.Init(&config.DatabaseConfig{DSN: dsn}, zap.NewNop(), false)
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return gormDB
}

// User inserts an active user with the given role.
func User(t *testing.T, gormDB *gorm.DB, username string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Username:       username,
		Email:          username + "@example.test",
		HashedPassword: "x",
		Role:           role,
		IsActive:       true,
	}
	require.NoError(t, gormDB.Create(u).Error)
	return u
}

// Machine inserts a machine owned by owner.
func Machine(t *testing.T, gormDB *gorm.DB, owner *model.User, username string, status model.MachineStatus, lastSync *time.Time) *model.Machine {
	t.Helper()
	m := &model.Machine{
		UserID:            owner.ID,
		Name:              "Machine " + username,
		Location:          "Gate 1",
		Username:          username,
		HashedPassword:    "x",
		Status:            status,
		LastSync:          lastSync,
		OnlineCollection:  decimal.Zero,
		OfflineCollection: decimal.Zero,
	}
	require.NoError(t, gormDB.Create(m).Error)
	return m
}

// Payment inserts a payment for m.
func Payment(t *testing.T, gormDB *gorm.DB, m *model.Machine, bill string, amount string, method model.PaymentMethod, status model.PaymentStatus, at time.Time) *model.Payment {
	t.Helper()
	p := &model.Payment{
		MachineID:  m.ID,
		BillNumber: bill,
		Amount:     decimal.RequireFromString(amount),
		Method:     method,
		Status:     status,
		CreatedAt:  at.UTC(),
	}
	require.NoError(t, gormDB.Create(p).Error)
	return p
}
