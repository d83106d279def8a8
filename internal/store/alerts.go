package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"billing-admin-backend/internal/model"
)

func (s *gormStore) openAlert(ctx context.Context, machineID *uuid.UUID, title string) (*model.SystemAlert, error) {
	var alerts []model.SystemAlert
	q := s.conn(ctx).Where("title = ? AND resolved = ?", title, false)
	if machineID == nil {
		q = q.Where("machine_id IS NULL")
	} else {
		q = q.Where("machine_id = ?", *machineID)
	}
	if err := q.Order("created_at").Limit(1).Find(&alerts).Error; err != nil {
		return nil, errors.Wrap(err, "find open alert")
	}
	if len(alerts) == 0 {
		return nil, nil
	}
	return &alerts[0], nil
}

// CreateAlertIfNotExists inserts a unless an unresolved alert with the same
// machine and title exists, in which case that alert is returned unchanged.
// The bool reports whether a new row was written.
func (s *gormStore) CreateAlertIfNotExists(ctx context.Context, a *model.SystemAlert) (*model.SystemAlert, bool, error) {
	existing, err := s.openAlert(ctx, a.MachineID, a.Title)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	a.Resolved = false
	if err := s.conn(ctx).Create(a).Error; err != nil {
		// The partial unique index rejected a concurrent duplicate.
		if existing, findErr := s.openAlert(ctx, a.MachineID, a.Title); findErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, errors.Wrap(err, "create alert")
	}
	return a, true, nil
}

func (s *gormStore) ResolveMachineAlerts(ctx context.Context, machineID uuid.UUID, resolvedBy *uuid.UUID, at time.Time) (int64, error) {
	fields := map[string]any{"resolved": true, "resolved_at": at.UTC()}
	if resolvedBy != nil {
		fields["resolved_by"] = *resolvedBy
	}
	res := s.conn(ctx).
		Model(&model.SystemAlert{}).
		Where("machine_id = ? AND resolved = ?", machineID, false).
		Updates(fields)
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "resolve alerts of machine %s", machineID)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) ResolveAlert(ctx context.Context, a *model.SystemAlert, resolvedBy uuid.UUID, at time.Time) error {
	at = at.UTC()
	if err := s.conn(ctx).Model(a).Updates(map[string]any{
		"resolved":    true,
		"resolved_at": at,
		"resolved_by": resolvedBy,
	}).Error; err != nil {
		return errors.Wrapf(err, "resolve alert %s", a.ID)
	}
	a.Resolved = true
	a.ResolvedAt = &at
	a.ResolvedBy = &resolvedBy
	return nil
}

func (s *gormStore) ownedAlerts(ctx context.Context, ownerID uuid.UUID) *gorm.DB {
	return s.conn(ctx).
		Model(&model.SystemAlert{}).
		Joins("JOIN machines ON machines.id = system_alerts.machine_id").
		Where("machines.user_id = ?", ownerID)
}

const alertColumns = "system_alerts.*, machines.name AS machine_name"

func (s *gormStore) ListAlerts(ctx context.Context, f AlertFilter) (Page[AlertRow], error) {
	q := s.ownedAlerts(ctx, f.OwnerID)
	if f.Severity != "" {
		q = q.Where("system_alerts.severity = ?", f.Severity)
	}
	if f.Resolved != nil {
		q = q.Where("system_alerts.resolved = ?", *f.Resolved)
	}
	if f.MachineID != nil {
		q = q.Where("system_alerts.machine_id = ?", *f.MachineID)
	}
	if f.Since != nil {
		q = q.Where("system_alerts.created_at >= ?", f.Since.UTC())
	}
	if f.Until != nil {
		q = q.Where("system_alerts.created_at <= ?", f.Until.UTC())
	}

	page := Page[AlertRow]{Page: f.Page}
	if err := q.Count(&page.Total).Error; err != nil {
		return page, errors.Wrap(err, "count alerts")
	}
	if err := q.Select(alertColumns).
		Order("system_alerts.created_at DESC, system_alerts.id").
		Offset(f.Page.Offset()).
		Limit(f.Page.Limit).
		Scan(&page.Items).Error; err != nil {
		return page, errors.Wrap(err, "list alerts")
	}
	return page, nil
}

func (s *gormStore) UnresolvedAlerts(ctx context.Context, ownerID uuid.UUID, severity model.Severity) ([]AlertRow, error) {
	q := s.ownedAlerts(ctx, ownerID).Where("system_alerts.resolved = ?", false)
	if severity != "" {
		q = q.Where("system_alerts.severity = ?", severity)
	}
	var rows []AlertRow
	if err := q.Select(alertColumns).Order("system_alerts.created_at DESC, system_alerts.id").Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list unresolved alerts")
	}
	return rows, nil
}

func (s *gormStore) CountUnresolvedAlerts(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var n int64
	if err := s.ownedAlerts(ctx, ownerID).Where("system_alerts.resolved = ?", false).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "count unresolved alerts")
	}
	return n, nil
}

func (s *gormStore) AlertByID(ctx context.Context, ownerID, id uuid.UUID) (*AlertRow, error) {
	var rows []AlertRow
	if err := s.ownedAlerts(ctx, ownerID).
		Select(alertColumns).
		Where("system_alerts.id = ?", id).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "find alert %s", id)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(gorm.ErrRecordNotFound, "find alert %s", id)
	}
	return &rows[0], nil
}

func (s *gormStore) DeleteAlert(ctx context.Context, id uuid.UUID) error {
	res := s.conn(ctx).Delete(&model.SystemAlert{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete alert %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "delete alert %s", id)
	}
	return nil
}
