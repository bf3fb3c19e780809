package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskflow/internal/domain"
	"taskflow/internal/realtime"
)

func deadlineNotification(userID, taskID uuid.UUID) *domain.Notification {
	return &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationTaskDeadline,
		BoardID: uuid.New(),
		TaskID:  &taskID,
		Message: "Task is due soon",
	}
}

func TestCreateAndPushEmitsToUserRoom(t *testing.T) {
	repo := &mockNotificationRepo{}
	broadcaster := &mockBroadcaster{}
	svc := NewNotificationService(repo, broadcaster, nil, zap.NewNop())

	userID := uuid.New()
	created, err := svc.CreateAndPush(context.Background(), &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationCommentAdded,
		BoardID: uuid.New(),
		Message: "New comment",
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	emits := broadcaster.eventsOfType(realtime.EventNewNotification)
	require.Len(t, emits, 1)
	assert.Equal(t, "user:"+userID.String(), emits[0].Room)
}

func TestCreateAndPushDeadlineSkipsWhenAlreadyNotified(t *testing.T) {
	repo := &mockNotificationRepo{
		HasDeadlineNotificationFunc: func(ctx context.Context, userID, taskID uuid.UUID) (bool, error) {
			return true, nil
		},
		CreateFunc: func(ctx context.Context, notification *domain.Notification) error {
			t.Fatal("create must not be called when the pair was already notified")
			return nil
		},
	}
	broadcaster := &mockBroadcaster{}
	svc := NewNotificationService(repo, broadcaster, nil, zap.NewNop())

	created, err := svc.CreateAndPush(context.Background(), deadlineNotification(uuid.New(), uuid.New()))
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Empty(t, broadcaster.Events)
}

func TestCreateAndPushSwallowsDedupeRace(t *testing.T) {
	// The existence check passed but another instance inserted first
	repo := &mockNotificationRepo{
		CreateFunc: func(ctx context.Context, notification *domain.Notification) error {
			return errors.New("UNIQUE constraint failed: notifications.user_id, notifications.task_id")
		},
	}
	broadcaster := &mockBroadcaster{}
	svc := NewNotificationService(repo, broadcaster, nil, zap.NewNop())

	created, err := svc.CreateAndPush(context.Background(), deadlineNotification(uuid.New(), uuid.New()))
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Empty(t, broadcaster.Events)
}

func TestCreateAndPushPropagatesOtherErrors(t *testing.T) {
	repo := &mockNotificationRepo{
		CreateFunc: func(ctx context.Context, notification *domain.Notification) error {
			return errors.New("connection reset")
		},
	}
	broadcaster := &mockBroadcaster{}
	svc := NewNotificationService(repo, broadcaster, nil, zap.NewNop())

	_, err := svc.CreateAndPush(context.Background(), deadlineNotification(uuid.New(), uuid.New()))
	require.Error(t, err)
	assert.Empty(t, broadcaster.Events)
}
