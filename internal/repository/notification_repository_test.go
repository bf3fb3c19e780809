package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskflow/internal/database"
	"taskflow/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func deadlineNotification(userID, taskID uuid.UUID) *domain.Notification {
	return &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationTaskDeadline,
		BoardID: uuid.New(),
		TaskID:  &taskID,
		Message: "Task is due soon",
	}
}

func TestDeadlineUniqueIndexRejectsDuplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	taskID := uuid.New()

	require.NoError(t, repo.Create(ctx, deadlineNotification(userID, taskID)))

	err := repo.Create(ctx, deadlineNotification(userID, taskID))
	require.Error(t, err)
	assert.True(t, strings.Contains(strings.ToLower(err.Error()), "unique"))
}

func TestDeadlineUniqueIndexScopedToType(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	taskID := uuid.New()

	require.NoError(t, repo.Create(ctx, deadlineNotification(userID, taskID)))

	// Other notification types about the same task are not deduplicated
	other := &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationCommentAdded,
		BoardID: uuid.New(),
		TaskID:  &taskID,
		Message: "New comment",
	}
	require.NoError(t, repo.Create(ctx, other))
	require.NoError(t, repo.Create(ctx, &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationCommentAdded,
		BoardID: other.BoardID,
		TaskID:  &taskID,
		Message: "Another comment",
	}))
}

func TestHasDeadlineNotification(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	taskID := uuid.New()

	exists, err := repo.HasDeadlineNotification(ctx, userID, taskID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Create(ctx, deadlineNotification(userID, taskID)))

	exists, err = repo.HasDeadlineNotification(ctx, userID, taskID)
	require.NoError(t, err)
	assert.True(t, exists)

	// Same task, different user is a separate pair
	exists, err = repo.HasDeadlineNotification(ctx, uuid.New(), taskID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMarkAsReadScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	notification := deadlineNotification(userID, uuid.New())
	require.NoError(t, repo.Create(ctx, notification))

	_, err := repo.MarkAsRead(ctx, notification.ID, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	updated, err := repo.MarkAsRead(ctx, notification.ID, userID)
	require.NoError(t, err)
	assert.True(t, updated.Read)
}

func TestFindByUserIDUnreadFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	first := deadlineNotification(userID, uuid.New())
	second := deadlineNotification(userID, uuid.New())
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	_, err := repo.MarkAsRead(ctx, first.ID, userID)
	require.NoError(t, err)

	unread, total, err := repo.FindByUserID(ctx, userID, 1, 10, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)

	all, total, err := repo.FindByUserID(ctx, userID, 1, 10, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)
}
