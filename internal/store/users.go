package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"billing-admin-backend/internal/model"
)

func (s *gormStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.conn(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, errors.Wrapf(err, "find user %q", username)
	}
	return &u, nil
}

func (s *gormStore) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := s.conn(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, errors.Wrapf(err, "find user %s", id)
	}
	return &u, nil
}

func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	return errors.Wrap(s.conn(ctx).Create(u).Error, "create user")
}
