package store

import (
	"context"

	"gorm.io/gorm"

	"eventhub/internal/model"
	"eventhub/prometheus"
)

// UserStore reads users
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user store
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByID returns the user with the given id
func (s *UserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")()

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrap("find user by id", err)
	}
	return &user, nil
}

// FindByEmail returns the user with the given email
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")()

	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrap("find user by email", err)
	}
	return &user, nil
}
