package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
	"taskflow/internal/realtime"
	"taskflow/internal/repository"
	"taskflow/internal/response"
)

var mentionPattern = regexp.MustCompile(`@([\p{L}\p{N}_.-]+)`)

// CommentService defines task discussion business logic
type CommentService interface {
	CreateComment(ctx context.Context, userID, taskID uuid.UUID, req *dto.CreateCommentRequest) (*domain.Comment, error)
	ListComments(ctx context.Context, userID, taskID uuid.UUID) ([]*domain.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error
}

type commentServiceImpl struct {
	commentRepo         repository.CommentRepository
	taskRepo            repository.TaskRepository
	memberRepo          repository.MemberRepository
	boardRepo           repository.BoardRepository
	notificationService NotificationService
	broadcaster         realtime.Broadcaster
	logger              *zap.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(
	commentRepo repository.CommentRepository,
	taskRepo repository.TaskRepository,
	memberRepo repository.MemberRepository,
	boardRepo repository.BoardRepository,
	notificationService NotificationService,
	broadcaster realtime.Broadcaster,
	logger *zap.Logger,
) CommentService {
	return &commentServiceImpl{
		commentRepo:         commentRepo,
		taskRepo:            taskRepo,
		memberRepo:          memberRepo,
		boardRepo:           boardRepo,
		notificationService: notificationService,
		broadcaster:         broadcaster,
		logger:              logger,
	}
}

// CreateComment appends a comment to a task. A completion comment also closes
// the task, which is broadcast as a task_updated alongside the new_comment.
// Nesting is limited to one level: replying to a reply is rejected.
func (s *commentServiceImpl) CreateComment(ctx context.Context, userID, taskID uuid.UUID, req *dto.CreateCommentRequest) (*domain.Comment, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, response.NewAppError(response.ErrCodeValidation, "Comment text cannot be empty", "")
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Task not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load task", err.Error())
	}

	ok, err := s.memberRepo.IsActiveMember(ctx, task.BoardID, userID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to check board membership", err.Error())
	}
	if !ok {
		return nil, response.NewAppError(response.ErrCodeForbidden, "Not a member of this board", "")
	}

	if req.ParentID != nil {
		parent, err := s.commentRepo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, response.NewAppError(response.ErrCodeNotFound, "Parent comment not found", "")
			}
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load parent comment", err.Error())
		}
		if parent.TaskID != taskID {
			return nil, response.NewAppError(response.ErrCodeValidation, "Parent comment belongs to another task", "")
		}
		if parent.ParentID != nil {
			return nil, response.NewAppError(response.ErrCodeValidation, "Replies cannot be nested further", "")
		}
	}

	commentType := req.Type
	if commentType == "" {
		commentType = domain.CommentTypeComment
	}

	comment := &domain.Comment{
		TaskID:        taskID,
		UserID:        userID,
		ParentID:      req.ParentID,
		Text:          req.Text,
		AttachmentURL: req.AttachmentURL,
		Type:          commentType,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create comment", err.Error())
	}

	if err := s.taskRepo.IncrementCommentsCount(ctx, taskID, 1); err != nil {
		s.logger.Warn("Failed to increment comment counter",
			zap.String("taskId", taskID.String()),
			zap.Error(err))
	}

	if commentType == domain.CommentTypeCompletion && task.Status != domain.TaskStatusDone {
		task.Status = domain.TaskStatusDone
		if err := s.taskRepo.Update(ctx, task); err != nil {
			s.logger.Error("Failed to mark task done",
				zap.String("taskId", taskID.String()),
				zap.Error(err))
		} else {
			s.broadcaster.Emit(realtime.BoardRoom(task.BoardID), realtime.EventTaskUpdated, task)
		}
	}

	s.broadcaster.Emit(realtime.BoardRoom(task.BoardID), realtime.EventNewComment, comment)
	s.notifyAboutComment(ctx, task, comment, userID)

	return comment, nil
}

func (s *commentServiceImpl) ListComments(ctx context.Context, userID, taskID uuid.UUID) ([]*domain.Comment, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Task not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load task", err.Error())
	}
	ok, err := s.memberRepo.IsActiveMember(ctx, task.BoardID, userID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to check board membership", err.Error())
	}
	if !ok {
		return nil, response.NewAppError(response.ErrCodeForbidden, "Not a member of this board", "")
	}
	return s.commentRepo.FindByTaskID(ctx, taskID)
}

// DeleteComment removes a comment; only its author may delete it
func (s *commentServiceImpl) DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeNotFound, "Comment not found", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Failed to load comment", err.Error())
	}
	if comment.UserID != userID {
		return response.NewAppError(response.ErrCodeForbidden, "Only the author can delete a comment", "")
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to delete comment", err.Error())
	}

	if err := s.taskRepo.IncrementCommentsCount(ctx, comment.TaskID, -1); err != nil {
		s.logger.Warn("Failed to decrement comment counter",
			zap.String("taskId", comment.TaskID.String()),
			zap.Error(err))
	}
	return nil
}

// notifyAboutComment notifies the task creator about new activity, and any
// members mentioned by @name in the comment text. Each recipient gets at most
// one notification per comment; the author gets none.
func (s *commentServiceImpl) notifyAboutComment(ctx context.Context, task *domain.Task, comment *domain.Comment, actorID uuid.UUID) {
	recipients := make(map[uuid.UUID]domain.NotificationType)
	if task.CreatorID != actorID {
		recipients[task.CreatorID] = domain.NotificationCommentAdded
	}

	mentioned := mentionPattern.FindAllStringSubmatch(comment.Text, -1)
	if len(mentioned) > 0 {
		members, err := s.memberRepo.FindByBoardID(ctx, task.BoardID)
		if err != nil {
			s.logger.Warn("Failed to load members for mention scan",
				zap.String("boardId", task.BoardID.String()),
				zap.Error(err))
			members = nil
		}
		for _, match := range mentioned {
			name := match[1]
			for _, member := range members {
				if member.UserID == nil || *member.UserID == actorID {
					continue
				}
				if strings.EqualFold(member.Name, name) {
					// Mention takes precedence over plain comment activity
					recipients[*member.UserID] = domain.NotificationMention
				}
			}
		}
	}

	for recipient, notificationType := range recipients {
		message := fmt.Sprintf("New comment on %q", task.Title)
		if notificationType == domain.NotificationMention {
			message = fmt.Sprintf("You were mentioned on %q", task.Title)
		}
		notification := &domain.Notification{
			UserID:  recipient,
			Type:    notificationType,
			BoardID: task.BoardID,
			TaskID:  &task.ID,
			Message: message,
		}
		if _, err := s.notificationService.CreateAndPush(ctx, notification); err != nil {
			s.logger.Warn("Failed to push comment notification",
				zap.String("userId", recipient.String()),
				zap.Error(err))
		}
	}
}
