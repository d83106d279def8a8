package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
)

func (s *gormStore) MachineByUsername(ctx context.Context, username string) (*model.Machine, error) {
	var m model.Machine
	if err := s.conn(ctx).Where("username = ?", username).First(&m).Error; err != nil {
		return nil, errors.Wrapf(err, "find machine %q", username)
	}
	return &m, nil
}

func (s *gormStore) MachineByID(ctx context.Context, id uuid.UUID) (*model.Machine, error) {
	var m model.Machine
	if err := s.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, errors.Wrapf(err, "find machine %s", id)
	}
	return &m, nil
}

func (s *gormStore) OwnedMachine(ctx context.Context, ownerID, id uuid.UUID) (*model.Machine, error) {
	var m model.Machine
	if err := s.conn(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&m).Error; err != nil {
		return nil, errors.Wrapf(err, "find machine %s", id)
	}
	return &m, nil
}

func (s *gormStore) OwnedMachines(ctx context.Context, ownerID uuid.UUID) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.conn(ctx).Where("user_id = ?", ownerID).Order("created_at, id").Find(&machines).Error; err != nil {
		return nil, errors.Wrap(err, "list owned machines")
	}
	return machines, nil
}

func (s *gormStore) ListMachines(ctx context.Context, f MachineFilter) (Page[model.Machine], error) {
	q := s.conn(ctx).Model(&model.Machine{}).Where("user_id = ?", f.OwnerID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(location) LIKE ? OR LOWER(username) LIKE ?", like, like, like)
	}

	page := Page[model.Machine]{Page: f.Page}
	if err := q.Count(&page.Total).Error; err != nil {
		return page, errors.Wrap(err, "count machines")
	}
	if err := q.Order("created_at DESC, id").Offset(f.Page.Offset()).Limit(f.Page.Limit).Find(&page.Items).Error; err != nil {
		return page, errors.Wrap(err, "list machines")
	}
	return page, nil
}

func (s *gormStore) CountMachinesByStatus(ctx context.Context, ownerID uuid.UUID) (map[model.MachineStatus]int64, error) {
	type aggRow struct {
		Status model.MachineStatus
		Count  int64
	}
	var rows []aggRow
	if err := s.conn(ctx).
		Model(&model.Machine{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", ownerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "count machines by status")
	}

	counts := make(map[model.MachineStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *gormStore) MachineNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var machines []model.Machine
	if err := s.conn(ctx).Select("id", "name").Where("id IN ?", ids).Find(&machines).Error; err != nil {
		return nil, errors.Wrap(err, "load machine names")
	}
	for _, m := range machines {
		names[m.ID] = m.Name
	}
	return names, nil
}

// CreateMachine assigns the next free username for usernamePrefix and inserts
// m in the same transaction.
func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine, usernamePrefix string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		// LIKE may over-match on wildcard characters in the prefix;
		// NextMachineUsername only counts exact prefix matches.
		var taken []string
		if err := tx.Model(&model.Machine{}).
			Where("username LIKE ?", usernamePrefix+"%").
			Pluck("username", &taken).Error; err != nil {
			return errors.Wrap(err, "load taken usernames")
		}
		m.Username = parse.NextMachineUsername(usernamePrefix, taken)
		return errors.Wrap(tx.Create(m).Error, "create machine")
	})
}

// UpdateMachine applies fields to m and reloads it.
func (s *gormStore) UpdateMachine(ctx context.Context, m *model.Machine, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.conn(ctx).Model(&model.Machine{}).Where("id = ?", m.ID).Updates(fields).Error; err != nil {
		return errors.Wrapf(err, "update machine %s", m.ID)
	}
	return errors.Wrapf(s.conn(ctx).First(m, "id = ?", m.ID).Error, "reload machine %s", m.ID)
}

// DeleteMachine removes a machine together with every row that references it.
func (s *gormStore) DeleteMachine(ctx context.Context, id uuid.UUID) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		dependents := []any{
			&model.Service{},
			&model.Payment{},
			&model.Log{},
			&model.SystemAlert{},
			&model.BillConfig{},
			&model.CatalogHistory{},
		}
		for _, dep := range dependents {
			if err := tx.Where("machine_id = ?", id).Delete(dep).Error; err != nil {
				return errors.Wrapf(err, "delete %T rows of machine %s", dep, id)
			}
		}
		res := tx.Delete(&model.Machine{}, "id = ?", id)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete machine %s", id)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(gorm.ErrRecordNotFound, "delete machine %s", id)
		}
		return nil
	})
}

// TouchLastSync sets last_sync, and status when non-empty.
func (s *gormStore) TouchLastSync(ctx context.Context, id uuid.UUID, status model.MachineStatus, at time.Time) error {
	fields := map[string]any{"last_sync": at.UTC()}
	if status != "" {
		fields["status"] = status
	}
	res := s.conn(ctx).Model(&model.Machine{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "touch machine %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "touch machine %s", id)
	}
	return nil
}
