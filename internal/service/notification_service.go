package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskflow/internal/domain"
	"taskflow/internal/metrics"
	"taskflow/internal/realtime"
	"taskflow/internal/repository"
	"taskflow/internal/response"
)

// NotificationService defines notification business logic. CreateAndPush is
// the single path through which both mutation handlers and the deadline scan
// create notifications, so the dedupe check always runs before the insert.
type NotificationService interface {
	CreateAndPush(ctx context.Context, notification *domain.Notification) (*domain.Notification, error)
	List(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) ([]*domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type notificationServiceImpl struct {
	notificationRepo repository.NotificationRepository
	broadcaster      realtime.Broadcaster
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	broadcaster realtime.Broadcaster,
	m *metrics.Metrics,
	logger *zap.Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		broadcaster:      broadcaster,
		metrics:          m,
		logger:           logger,
	}
}

// CreateAndPush persists the notification, then emits new_notification to the
// recipient's user room. For task_deadline, the existence check runs first
// and a duplicate-key insert is treated as already-notified: the store-level
// unique constraint is the correctness guarantee, the check only narrows the
// window.
func (s *notificationServiceImpl) CreateAndPush(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	if notification.Type == domain.NotificationTaskDeadline && notification.TaskID != nil {
		exists, err := s.notificationRepo.HasDeadlineNotification(ctx, notification.UserID, *notification.TaskID)
		if err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to check deadline notification", err.Error())
		}
		if exists {
			return nil, nil
		}
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		if isDuplicateKeyError(err) {
			s.logger.Debug("Notification lost the dedupe race, skipping",
				zap.String("type", string(notification.Type)),
				zap.String("userId", notification.UserID.String()))
			return nil, nil
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create notification", err.Error())
	}

	s.metrics.IncrementNotificationCreated(string(notification.Type))
	s.broadcaster.EmitToUser(notification.UserID, realtime.EventNewNotification, notification)

	return notification, nil
}

func (s *notificationServiceImpl) List(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) ([]*domain.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.notificationRepo.FindByUserID(ctx, userID, page, limit, unreadOnly)
}

func (s *notificationServiceImpl) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	notification, err := s.notificationRepo.MarkAsRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Notification not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to mark notification as read", err.Error())
	}
	return notification, nil
}

func (s *notificationServiceImpl) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notificationRepo.MarkAllAsRead(ctx, userID)
}

func (s *notificationServiceImpl) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.notificationRepo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeNotFound, "Notification not found", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Failed to delete notification", err.Error())
	}
	return nil
}

// isDuplicateKeyError matches unique constraint violations across drivers
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
