package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"billing-admin-backend/internal/model"
)

// BillConfig returns the machine's config, or nil when none is set.
func (s *gormStore) BillConfig(ctx context.Context, machineID uuid.UUID) (*model.BillConfig, error) {
	var cfg model.BillConfig
	err := s.conn(ctx).Where("machine_id = ?", machineID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find bill config of machine %s", machineID)
	}
	return &cfg, nil
}

var billConfigColumns = []string{
	"org_name", "tagline", "logo_url", "unit_name", "territory", "gst_number", "pos_id",
	"cgst_percent", "sgst_percent", "footer_message", "website", "toll_free", "updated_at",
}

// UpsertBillConfig applies patch over the existing config, or over the
// defaults when the machine has none yet.
func (s *gormStore) UpsertBillConfig(ctx context.Context, machineID uuid.UUID, patch BillConfigPatch) (*model.BillConfig, error) {
	var out *model.BillConfig
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := &gormStore{db: tx}
		cfg, err := txStore.BillConfig(ctx, machineID)
		if err != nil {
			return err
		}
		if cfg != nil {
			patch.Apply(cfg)
			if err := tx.Model(cfg).Select(billConfigColumns).Updates(cfg).Error; err != nil {
				return pkgerrors.Wrapf(err, "update bill config of machine %s", machineID)
			}
		} else {
			footer := model.DefaultFooterMessage
			cfg = &model.BillConfig{
				MachineID:     machineID,
				CGSTPercent:   decimal.Zero,
				SGSTPercent:   decimal.Zero,
				FooterMessage: &footer,
			}
			patch.Apply(cfg)
			// A concurrent first write for the same machine becomes an update.
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "machine_id"}},
				DoUpdates: clause.AssignmentColumns(billConfigColumns),
			}).Create(cfg).Error; err != nil {
				return pkgerrors.Wrapf(err, "create bill config of machine %s", machineID)
			}
		}

		out, err = txStore.BillConfig(ctx, machineID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
