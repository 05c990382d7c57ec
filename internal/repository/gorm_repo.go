package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/onairlive/onair/internal/domain"
)

// GormFollowRepository implements FollowRepository using GORM.
type GormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new GORM-backed follow repository.
func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

// ListFollowerIDs returns the ids of every user following userID.
func (r *GormFollowRepository) ListFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domain.FollowModel{}).
		Where("following_id = ?", userID).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var _ FollowRepository = (*GormFollowRepository)(nil)

// GormNotificationRepository implements NotificationRepository using GORM.
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GORM-backed notification repository.
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create inserts a notification row.
func (r *GormNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	model := domain.NotificationModel{
		UserID: n.UserID,
		Kind:   n.Kind,
		Body:   n.Body,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

var _ NotificationRepository = (*GormNotificationRepository)(nil)
