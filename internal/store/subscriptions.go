package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"billing-admin-backend/internal/model"
)

// UpsertSubscription creates or replaces the subscription for its endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return errors.Wrap(s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
	}).Create(sub).Error, "upsert subscription")
}

func (s *gormStore) DeleteSubscription(ctx context.Context, userID uuid.UUID, endpoint string) error {
	res := s.conn(ctx).Where("endpoint = ? AND user_id = ?", endpoint, userID).Delete(&model.PushSubscription{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete subscription")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(gorm.ErrRecordNotFound, "delete subscription")
	}
	return nil
}

func (s *gormStore) SubscriptionsForUser(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.conn(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, errors.Wrapf(err, "list subscriptions of user %s", userID)
	}
	return subs, nil
}

func (s *gormStore) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	return errors.Wrap(s.conn(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error, "delete expired subscription")
}
