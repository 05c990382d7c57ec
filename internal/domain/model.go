package domain

import (
	"time"

	"gorm.io/gorm"
)

// FollowModel is the GORM model for the follows table, maintained by the
// surrounding system. This service only reads it for notification fan-out.
type FollowModel struct {
	ID          uint           `gorm:"primaryKey;autoIncrement"`
	FollowerID  string         `gorm:"column:follower_id;type:varchar(36);not null;index"`
	FollowingID string         `gorm:"column:following_id;type:varchar(36);not null;index"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (FollowModel) TableName() string { return "follows" }

// NotificationModel is the GORM model for persisted notifications. Rows are
// written best-effort during fan-out; live delivery happens over the push
// channel and is independent of persistence.
type NotificationModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;index"`
	Kind      string    `gorm:"column:kind;type:varchar(32);not null"`
	Body      string    `gorm:"column:body;type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (NotificationModel) TableName() string { return "notifications" }

// Notification is the domain representation of a persisted notification.
type Notification struct {
	UserID string
	Kind   string
	Body   string
}
