package repository

import (
	"context"

	"github.com/onairlive/onair/internal/domain"
)

// FollowRepository reads follow relationships maintained by the surrounding
// system. The fan-out worker only needs the follower side.
type FollowRepository interface {
	ListFollowerIDs(ctx context.Context, userID string) ([]string, error)
}

// NotificationRepository persists notifications delivered (or attempted)
// over the push channel.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
}
