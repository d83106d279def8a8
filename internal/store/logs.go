package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
)

func (s *gormStore) ListLogs(ctx context.Context, machineID uuid.UUID, logType model.LogType, page parse.Page) (Page[model.Log], error) {
	q := s.conn(ctx).Model(&model.Log{}).Where("machine_id = ?", machineID)
	if logType != "" {
		q = q.Where("type = ?", logType)
	}

	result := Page[model.Log]{Page: page}
	if err := q.Count(&result.Total).Error; err != nil {
		return result, errors.Wrap(err, "count logs")
	}
	if err := q.Order("created_at DESC, id").Offset(page.Offset()).Limit(page.Limit).Find(&result.Items).Error; err != nil {
		return result, errors.Wrap(err, "list logs")
	}
	return result, nil
}

func (s *gormStore) RecentLogs(ctx context.Context, ownerID uuid.UUID, logType model.LogType, limit int) ([]LogRow, error) {
	q := s.conn(ctx).
		Model(&model.Log{}).
		Select("logs.*, machines.name AS machine_name").
		Joins("JOIN machines ON machines.id = logs.machine_id").
		Where("machines.user_id = ?", ownerID)
	if logType != "" {
		q = q.Where("logs.type = ?", logType)
	}

	var rows []LogRow
	if err := q.Order("logs.created_at DESC, logs.id").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list recent logs")
	}
	return rows, nil
}

func (s *gormStore) CreateLog(ctx context.Context, l *model.Log) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return errors.Wrap(s.conn(ctx).Create(l).Error, "create log")
}
