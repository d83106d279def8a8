package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
)

func (s *gormStore) ListServices(ctx context.Context, machineID uuid.UUID, status model.ServiceStatus) ([]model.Service, error) {
	q := s.conn(ctx).Where("machine_id = ?", machineID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var services []model.Service
	if err := q.Order("created_at DESC, id").Find(&services).Error; err != nil {
		return nil, errors.Wrapf(err, "list services of machine %s", machineID)
	}
	return services, nil
}

func (s *gormStore) ServiceByID(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var svc model.Service
	if err := s.conn(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, errors.Wrapf(err, "find service %s", id)
	}
	return &svc, nil
}

func (s *gormStore) CreateService(ctx context.Context, svc *model.Service, history *model.CatalogHistory) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(svc).Error; err != nil {
			return errors.Wrap(err, "create service")
		}
		return appendHistory(tx, svc, history)
	})
}

func (s *gormStore) UpdateService(ctx context.Context, svc *model.Service, fields map[string]any, history *model.CatalogHistory) error {
	if len(fields) == 0 {
		return nil
	}
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Service{}).Where("id = ?", svc.ID).Updates(fields).Error; err != nil {
			return errors.Wrapf(err, "update service %s", svc.ID)
		}
		if err := tx.First(svc, "id = ?", svc.ID).Error; err != nil {
			return errors.Wrapf(err, "reload service %s", svc.ID)
		}
		return appendHistory(tx, svc, history)
	})
}

func (s *gormStore) DeleteService(ctx context.Context, svc *model.Service, history *model.CatalogHistory) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Service{}, "id = ?", svc.ID)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete service %s", svc.ID)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(gorm.ErrRecordNotFound, "delete service %s", svc.ID)
		}
		return appendHistory(tx, svc, history)
	})
}

func (s *gormStore) ListCatalogHistory(ctx context.Context, machineID uuid.UUID, page parse.Page) (Page[model.CatalogHistory], error) {
	q := s.conn(ctx).Model(&model.CatalogHistory{}).Where("machine_id = ?", machineID)

	result := Page[model.CatalogHistory]{Page: page}
	if err := q.Count(&result.Total).Error; err != nil {
		return result, errors.Wrap(err, "count catalog history")
	}
	if err := q.Order("created_at DESC, id").Offset(page.Offset()).Limit(page.Limit).Find(&result.Items).Error; err != nil {
		return result, errors.Wrap(err, "list catalog history")
	}
	return result, nil
}

func appendHistory(tx *gorm.DB, svc *model.Service, history *model.CatalogHistory) error {
	if history == nil {
		return nil
	}
	history.MachineID = svc.MachineID
	id := svc.ID
	history.ServiceID = &id
	return errors.Wrap(tx.Create(history).Error, "append catalog history")
}

// ServicePatch carries the fields supplied to a service update.
type ServicePatch struct {
	Name   *string
	Price  *decimal.Decimal
	Status *model.ServiceStatus
}

// Diff compares the patch against svc. It returns the columns to update and
// the {"old","new"} change map for catalog history; both are empty when
// nothing differs.
func (p ServicePatch) Diff(svc *model.Service) (map[string]any, datatypes.JSONMap) {
	fields := map[string]any{}
	changes := datatypes.JSONMap{}

	if p.Name != nil && *p.Name != svc.Name {
		fields["name"] = *p.Name
		changes["name"] = map[string]any{"old": svc.Name, "new": *p.Name}
	}
	if p.Price != nil && !p.Price.Equal(svc.Price) {
		fields["price"] = *p.Price
		changes["price"] = map[string]any{"old": svc.Price.StringFixed(2), "new": p.Price.StringFixed(2)}
	}
	if p.Status != nil && *p.Status != svc.Status {
		fields["status"] = *p.Status
		changes["status"] = map[string]any{"old": string(svc.Status), "new": string(*p.Status)}
	}
	return fields, changes
}
