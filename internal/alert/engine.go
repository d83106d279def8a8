package alert

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"billing-admin-backend/internal/metrics"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/observe"
	"billing-admin-backend/internal/store"
)

// AllOKID identifies the synthetic entry shown when nothing is wrong.
const AllOKID = "info-all-ok"

// Notifier is told about every newly persisted alert.
type Notifier interface {
	NotifyAlert(ownerID uuid.UUID, a *model.SystemAlert, machineName string)
}

// Entry is an alert as presented on the dashboard. Synthetic entries have no
// machine and are never stored.
type Entry struct {
	ID          string
	MachineID   *uuid.UUID
	MachineName string
	Title       string
	Message     string
	Severity    model.Severity
	Resolved    bool
	ResolvedAt  *time.Time
	CreatedAt   time.Time
}

// Engine derives, persists and resolves machine health alerts.
type Engine struct {
	store      store.Store
	thresholds Thresholds
	recorder   observe.Recorder
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine creates an Engine. notifier may be nil.
func NewEngine(s store.Store, th Thresholds, recorder observe.Recorder, notifier Notifier, logger *zap.Logger) *Engine {
	if recorder == nil {
		recorder = observe.Nop
	}
	return &Engine{
		store:      s,
		thresholds: th,
		recorder:   recorder,
		notifier:   notifier,
		logger:     logger.Named("alert"),
		now:        time.Now,
	}
}

// Refresh derives the condition of every machine owned by ownerID and
// persists those that have no open alert yet. It returns the number of new
// alerts.
func (e *Engine) Refresh(ctx context.Context, ownerID uuid.UUID) (int, error) {
	machines, err := e.store.OwnedMachines(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	now := e.now().UTC()
	created := 0
	for i := range machines {
		m := &machines[i]
		cond, ok := Derive(m, now, e.thresholds)
		if !ok {
			continue
		}

		machineID := m.ID
		a, isNew, err := e.store.CreateAlertIfNotExists(ctx, &model.SystemAlert{
			MachineID: &machineID,
			Title:     cond.Title,
			Message:   cond.Message,
			Severity:  cond.Severity,
		})
		if err != nil {
			return created, err
		}
		if !isNew {
			continue
		}

		created++
		metrics.RecordAlertCreated(string(a.Severity))
		e.recorder.RecordEvent(observe.EventAlertCreated, map[string]any{
			"alert_id":   a.ID.String(),
			"machine_id": m.ID.String(),
			"title":      a.Title,
			"severity":   string(a.Severity),
		})
		if e.notifier != nil {
			e.notifier.NotifyAlert(ownerID, a, m.Name)
		}
	}
	return created, nil
}

// Dashboard refreshes the owner's alerts and returns the open ones, most
// severe first, at most limit. With nothing open and no severity filter other
// than info, a single synthetic all-clear entry is returned.
func (e *Engine) Dashboard(ctx context.Context, ownerID uuid.UUID, severity model.Severity, limit int) ([]Entry, error) {
	if _, err := e.Refresh(ctx, ownerID); err != nil {
		return nil, err
	}

	rows, err := e.store.UnresolvedAlerts(ctx, ownerID, severity)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, EntryFromRow(&rows[i]))
	}
	SortBySeverity(entries)

	if len(entries) == 0 && (severity == "" || severity == model.SeverityInfo) {
		return []Entry{e.allOK()}, nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (e *Engine) allOK() Entry {
	return Entry{
		ID:          AllOKID,
		MachineName: "System",
		Message:     "All systems operational",
		Severity:    model.SeverityInfo,
		CreatedAt:   e.now().UTC(),
	}
}

// RecoverMachine resolves every open alert of a machine that just came back
// online. Recovery has no resolver.
func (e *Engine) RecoverMachine(ctx context.Context, machineID uuid.UUID) (int64, error) {
	n, err := e.store.ResolveMachineAlerts(ctx, machineID, nil, e.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.RecordAlertsResolved(int(n))
		e.recorder.RecordEvent(observe.EventAlertResolved, map[string]any{
			"machine_id": machineID.String(),
			"count":      n,
			"reason":     "recovery",
		})
	}
	return n, nil
}

// Resolve marks one of the owner's alerts resolved by resolver. An alert that
// is already resolved is returned unchanged.
func (e *Engine) Resolve(ctx context.Context, ownerID, alertID, resolver uuid.UUID) (*store.AlertRow, error) {
	row, err := e.store.AlertByID(ctx, ownerID, alertID)
	if err != nil {
		return nil, err
	}
	if row.Resolved {
		return row, nil
	}
	if err := e.store.ResolveAlert(ctx, &row.SystemAlert, resolver, e.now()); err != nil {
		return nil, err
	}

	metrics.RecordAlertsResolved(1)
	e.recorder.RecordEvent(observe.EventAlertResolved, map[string]any{
		"alert_id":    row.ID.String(),
		"resolved_by": resolver.String(),
		"reason":      "manual",
	})
	return row, nil
}

// EntryFromRow converts a stored alert.
func EntryFromRow(row *store.AlertRow) Entry {
	entry := Entry{
		ID:         row.ID.String(),
		MachineID:  row.MachineID,
		Title:      row.Title,
		Message:    row.Message,
		Severity:   row.Severity,
		Resolved:   row.Resolved,
		ResolvedAt: row.ResolvedAt,
		CreatedAt:  row.CreatedAt,
	}
	if row.MachineName != nil {
		entry.MachineName = *row.MachineName
	}
	return entry
}

// SortBySeverity orders entries critical, warning, info. Entries of equal
// severity keep their relative order.
func SortBySeverity(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Severity.Rank() < entries[j].Severity.Rank()
	})
}
