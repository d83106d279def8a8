// Package offline reconciles machines that bill while disconnected: they
// push queued payments and pull their active catalog.
package offline

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"billing-admin-backend/internal/metrics"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/observe"
	"billing-admin-backend/internal/store"
)

// Record is a payment taken while offline. MachineID, when set, must match
// the pushing machine.
type Record struct {
	MachineID  *uuid.UUID
	BillNumber string
	Amount     decimal.Decimal
	Method     model.PaymentMethod
	Status     model.PaymentStatus
	CreatedAt  *time.Time
}

// PushResult counts the outcome of a push. Failed includes records whose
// bill number was already known.
type PushResult struct {
	Synced        int
	Failed        int
	SyncTimestamp time.Time
}

// PullResult is the catalog a machine should bill from.
type PullResult struct {
	Services      []model.Service
	MachineStatus model.MachineStatus
	SyncTimestamp time.Time
}

// Status describes a machine's sync state. PendingUploads is always zero;
// the machine tracks its own queue.
type Status struct {
	MachineID      uuid.UUID
	LastSync       *time.Time
	Status         model.MachineStatus
	PendingUploads int
}

// Coordinator applies pushes and pulls.
type Coordinator struct {
	store    store.Store
	recorder observe.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(s store.Store, recorder observe.Recorder, logger *zap.Logger) *Coordinator {
	if recorder == nil {
		recorder = observe.Nop
	}
	return &Coordinator{store: s, recorder: recorder, logger: logger.Named("sync"), now: time.Now}
}

// Push stores every record whose bill number is new and stamps the machine's
// last sync, all in one transaction. A storage failure rolls back the whole
// batch.
func (c *Coordinator) Push(ctx context.Context, machine *model.Machine, records []Record) (PushResult, error) {
	now := c.now().UTC()
	result := PushResult{SyncTimestamp: now}

	err := c.store.WithTx(ctx, func(tx store.Store) error {
		result.Synced, result.Failed = 0, 0
		seen := make(map[string]struct{}, len(records))

		for _, r := range records {
			if r.MachineID != nil && *r.MachineID != machine.ID {
				result.Failed++
				continue
			}
			if _, dup := seen[r.BillNumber]; dup {
				result.Failed++
				continue
			}
			seen[r.BillNumber] = struct{}{}

			p := &model.Payment{
				MachineID:  machine.ID,
				BillNumber: r.BillNumber,
				Amount:     r.Amount,
				Method:     r.Method,
				Status:     r.Status,
				CreatedAt:  now,
			}
			if r.CreatedAt != nil {
				p.CreatedAt = r.CreatedAt.UTC()
			}
			if err := tx.CreatePayment(ctx, p); err != nil {
				if stderrors.Is(err, gorm.ErrDuplicatedKey) {
					result.Failed++
					continue
				}
				return err
			}
			result.Synced++
		}

		return tx.TouchLastSync(ctx, machine.ID, "", now)
	})
	if err != nil {
		return PushResult{}, err
	}

	metrics.RecordSyncPayments(result.Synced, result.Failed)
	c.recorder.RecordEvent(observe.EventSyncPush, map[string]any{
		"machine_id": machine.ID.String(),
		"synced":     result.Synced,
		"failed":     result.Failed,
	})
	return result, nil
}

// Pull returns the machine's active services. Stamping last sync is best
// effort and never fails the pull.
func (c *Coordinator) Pull(ctx context.Context, machine *model.Machine) (PullResult, error) {
	services, err := c.store.ListServices(ctx, machine.ID, model.ServiceActive)
	if err != nil {
		return PullResult{}, err
	}

	now := c.now().UTC()
	if err := c.store.TouchLastSync(ctx, machine.ID, "", now); err != nil {
		c.logger.Warn("failed to stamp last sync on pull", zap.String("machine_id", machine.ID.String()), zap.Error(err))
	}

	c.recorder.RecordEvent(observe.EventSyncPull, map[string]any{
		"machine_id": machine.ID.String(),
		"services":   len(services),
	})
	return PullResult{Services: services, MachineStatus: machine.Status, SyncTimestamp: now}, nil
}

// Status reports the machine's last sync.
func (c *Coordinator) Status(machine *model.Machine) Status {
	return Status{MachineID: machine.ID, LastSync: machine.LastSync, Status: machine.Status}
}
