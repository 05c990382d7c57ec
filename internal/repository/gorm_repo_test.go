package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onairlive/onair/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.FollowModel{}, &domain.NotificationModel{}))
	return db
}

func TestGormFollowRepository_ListFollowerIDs(t *testing.T) {
	db := testDB(t)
	repo := NewGormFollowRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.FollowModel{FollowerID: "f1", FollowingID: "star"}).Error)
	require.NoError(t, db.Create(&domain.FollowModel{FollowerID: "f2", FollowingID: "star"}).Error)
	require.NoError(t, db.Create(&domain.FollowModel{FollowerID: "f1", FollowingID: "other"}).Error)

	ids, err := repo.ListFollowerIDs(ctx, "star")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"f1", "f2"}, ids)

	ids, err = repo.ListFollowerIDs(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGormFollowRepository_IgnoresSoftDeleted(t *testing.T) {
	db := testDB(t)
	repo := NewGormFollowRepository(db)
	ctx := context.Background()

	follow := domain.FollowModel{FollowerID: "f1", FollowingID: "star"}
	require.NoError(t, db.Create(&follow).Error)
	require.NoError(t, db.Delete(&follow).Error)

	ids, err := repo.ListFollowerIDs(ctx, "star")
	require.NoError(t, err)
	assert.Empty(t, ids, "unfollowed users must not receive fan-out")
}

func TestGormNotificationRepository_Create(t *testing.T) {
	db := testDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &domain.Notification{
		UserID: "u1",
		Kind:   "broadcast_live",
		Body:   "someone you follow is live",
	})
	require.NoError(t, err)

	var rows []domain.NotificationModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].UserID)
	assert.Equal(t, "broadcast_live", rows[0].Kind)
	assert.False(t, rows[0].CreatedAt.IsZero())
}
