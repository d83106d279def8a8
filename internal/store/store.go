package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
)

// Store defines the interface for all database operations.
type Store interface {
	// DB exposes the underlying handle for health checks.
	DB() *gorm.DB
	// WithTx runs fn inside a single transaction. The Store handed to fn is
	// bound to that transaction; any error returned rolls everything back.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	UserStore
	MachineStore
	ServiceStore
	PaymentStore
	LogStore
	AlertStore
	BillConfigStore
	SubscriptionStore
}

// UserStore covers administrative accounts.
type UserStore interface {
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
}

// MachineStore covers billing machines. Owner-scoped lookups return
// gorm.ErrRecordNotFound for machines outside the owner's fleet.
type MachineStore interface {
	MachineByUsername(ctx context.Context, username string) (*model.Machine, error)
	MachineByID(ctx context.Context, id uuid.UUID) (*model.Machine, error)
	OwnedMachine(ctx context.Context, ownerID, id uuid.UUID) (*model.Machine, error)
	OwnedMachines(ctx context.Context, ownerID uuid.UUID) ([]model.Machine, error)
	ListMachines(ctx context.Context, f MachineFilter) (Page[model.Machine], error)
	CountMachinesByStatus(ctx context.Context, ownerID uuid.UUID) (map[model.MachineStatus]int64, error)
	MachineNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	CreateMachine(ctx context.Context, m *model.Machine, usernamePrefix string) error
	UpdateMachine(ctx context.Context, m *model.Machine, fields map[string]any) error
	DeleteMachine(ctx context.Context, id uuid.UUID) error
	TouchLastSync(ctx context.Context, id uuid.UUID, status model.MachineStatus, at time.Time) error
}

// ServiceStore covers catalog items and their change history.
type ServiceStore interface {
	ListServices(ctx context.Context, machineID uuid.UUID, status model.ServiceStatus) ([]model.Service, error)
	ServiceByID(ctx context.Context, id uuid.UUID) (*model.Service, error)
	CreateService(ctx context.Context, svc *model.Service, history *model.CatalogHistory) error
	UpdateService(ctx context.Context, svc *model.Service, fields map[string]any, history *model.CatalogHistory) error
	DeleteService(ctx context.Context, svc *model.Service, history *model.CatalogHistory) error
	ListCatalogHistory(ctx context.Context, machineID uuid.UUID, page parse.Page) (Page[model.CatalogHistory], error)
}

// PaymentStore covers settled bills.
type PaymentStore interface {
	ListPayments(ctx context.Context, f PaymentFilter) (Page[PaymentRow], PaymentSummary, error)
	PaymentByID(ctx context.Context, ownerID, id uuid.UUID) (*PaymentRow, error)
	CreatePayment(ctx context.Context, p *model.Payment) error
	BillNumberExists(ctx context.Context, billNumber string) (bool, error)
	PaymentTotals(ctx context.Context, ownerID uuid.UUID, since time.Time) (PaymentTotal, error)
	SuccessfulPayments(ctx context.Context, w PaymentWindow) ([]model.Payment, error)
	ExportPayments(ctx context.Context, w PaymentWindow) ([]model.Payment, error)
}

// LogStore covers the machine audit trail.
type LogStore interface {
	ListLogs(ctx context.Context, machineID uuid.UUID, logType model.LogType, page parse.Page) (Page[model.Log], error)
	RecentLogs(ctx context.Context, ownerID uuid.UUID, logType model.LogType, limit int) ([]LogRow, error)
	CreateLog(ctx context.Context, l *model.Log) error
}

// AlertStore covers persisted health alerts.
type AlertStore interface {
	CreateAlertIfNotExists(ctx context.Context, a *model.SystemAlert) (*model.SystemAlert, bool, error)
	ResolveMachineAlerts(ctx context.Context, machineID uuid.UUID, resolvedBy *uuid.UUID, at time.Time) (int64, error)
	ResolveAlert(ctx context.Context, a *model.SystemAlert, resolvedBy uuid.UUID, at time.Time) error
	ListAlerts(ctx context.Context, f AlertFilter) (Page[AlertRow], error)
	UnresolvedAlerts(ctx context.Context, ownerID uuid.UUID, severity model.Severity) ([]AlertRow, error)
	CountUnresolvedAlerts(ctx context.Context, ownerID uuid.UUID) (int64, error)
	AlertByID(ctx context.Context, ownerID, id uuid.UUID) (*AlertRow, error)
	DeleteAlert(ctx context.Context, id uuid.UUID) error
}

// BillConfigStore covers per-machine receipt settings.
type BillConfigStore interface {
	BillConfig(ctx context.Context, machineID uuid.UUID) (*model.BillConfig, error)
	UpsertBillConfig(ctx context.Context, machineID uuid.UUID, patch BillConfigPatch) (*model.BillConfig, error)
}

// SubscriptionStore covers browser push subscriptions.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, userID uuid.UUID, endpoint string) error
	SubscriptionsForUser(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}
