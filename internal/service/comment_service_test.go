package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
	"taskflow/internal/realtime"
	"taskflow/internal/response"
)

type commentServiceFixture struct {
	svc         CommentService
	commentRepo *mockCommentRepo
	taskRepo    *mockTaskRepo
	memberRepo  *mockMemberRepo
	broadcaster *mockBroadcaster

	actorID   uuid.UUID
	creatorID uuid.UUID
	boardID   uuid.UUID
	task      *domain.Task
}

func newCommentServiceFixture(t *testing.T) *commentServiceFixture {
	t.Helper()
	f := &commentServiceFixture{
		commentRepo: &mockCommentRepo{},
		taskRepo:    &mockTaskRepo{},
		memberRepo:  &mockMemberRepo{},
		broadcaster: &mockBroadcaster{},
		actorID:     uuid.New(),
		creatorID:   uuid.New(),
		boardID:     uuid.New(),
	}
	f.task = &domain.Task{
		BaseModel: domain.BaseModel{ID: uuid.New()},
		BoardID:   f.boardID,
		ColumnID:  uuid.New(),
		CreatorID: f.creatorID,
		Title:     "Ship release",
		Status:    domain.TaskStatusOpen,
	}
	f.taskRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
		if id == f.task.ID {
			copied := *f.task
			return &copied, nil
		}
		return nil, gorm.ErrRecordNotFound
	}

	notificationService := NewNotificationService(&mockNotificationRepo{}, f.broadcaster, nil, zap.NewNop())
	f.svc = NewCommentService(f.commentRepo, f.taskRepo, f.memberRepo, &mockBoardRepo{}, notificationService, f.broadcaster, zap.NewNop())
	return f
}

func TestCreateCommentNotifiesTaskCreator(t *testing.T) {
	f := newCommentServiceFixture(t)

	comment, err := f.svc.CreateComment(context.Background(), f.actorID, f.task.ID, &dto.CreateCommentRequest{
		Text: "Looks good to me",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CommentTypeComment, comment.Type)

	require.Len(t, f.broadcaster.eventsOfType(realtime.EventNewComment), 1)

	notifications := f.broadcaster.eventsOfType(realtime.EventNewNotification)
	require.Len(t, notifications, 1)
	assert.Equal(t, "user:"+f.creatorID.String(), notifications[0].Room)
	pushed := notifications[0].Payload.(*domain.Notification)
	assert.Equal(t, domain.NotificationCommentAdded, pushed.Type)
}

func TestCreateCommentByCreatorSkipsSelfNotification(t *testing.T) {
	f := newCommentServiceFixture(t)

	_, err := f.svc.CreateComment(context.Background(), f.creatorID, f.task.ID, &dto.CreateCommentRequest{
		Text: "Note to self",
	})
	require.NoError(t, err)
	assert.Empty(t, f.broadcaster.eventsOfType(realtime.EventNewNotification))
}

func TestCreateCommentMentionOverridesActivity(t *testing.T) {
	f := newCommentServiceFixture(t)
	f.memberRepo.FindByBoardIDFunc = func(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardMember, error) {
		return []*domain.BoardMember{
			{BoardID: f.boardID, UserID: &f.creatorID, Name: "Dana", Status: domain.MemberStatusActive},
		}, nil
	}

	_, err := f.svc.CreateComment(context.Background(), f.actorID, f.task.ID, &dto.CreateCommentRequest{
		Text: "@Dana can you review this?",
	})
	require.NoError(t, err)

	notifications := f.broadcaster.eventsOfType(realtime.EventNewNotification)
	require.Len(t, notifications, 1)
	pushed := notifications[0].Payload.(*domain.Notification)
	assert.Equal(t, domain.NotificationMention, pushed.Type)
}

func TestCompletionCommentClosesTask(t *testing.T) {
	f := newCommentServiceFixture(t)

	var updated *domain.Task
	f.taskRepo.UpdateFunc = func(ctx context.Context, task *domain.Task) error {
		updated = task
		return nil
	}

	_, err := f.svc.CreateComment(context.Background(), f.actorID, f.task.ID, &dto.CreateCommentRequest{
		Text: "Done and deployed",
		Type: domain.CommentTypeCompletion,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, domain.TaskStatusDone, updated.Status)
	assert.Len(t, f.broadcaster.eventsOfType(realtime.EventTaskUpdated), 1)
}

func TestCreateCommentRejectsNestedReply(t *testing.T) {
	f := newCommentServiceFixture(t)

	parentOfParent := uuid.New()
	reply := &domain.Comment{
		BaseModel: domain.BaseModel{ID: uuid.New()},
		TaskID:    f.task.ID,
		UserID:    f.creatorID,
		ParentID:  &parentOfParent,
		Text:      "First reply",
		Type:      domain.CommentTypeComment,
	}
	f.commentRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
		return reply, nil
	}

	_, err := f.svc.CreateComment(context.Background(), f.actorID, f.task.ID, &dto.CreateCommentRequest{
		Text:     "Reply to a reply",
		ParentID: &reply.ID,
	})
	require.Error(t, err)
	assert.Equal(t, response.ErrCodeValidation, err.(*response.AppError).Code)
}

func TestCreateCommentRejectsEmptyText(t *testing.T) {
	f := newCommentServiceFixture(t)

	_, err := f.svc.CreateComment(context.Background(), f.actorID, f.task.ID, &dto.CreateCommentRequest{
		Text: "   ",
	})
	require.Error(t, err)
	assert.Equal(t, response.ErrCodeValidation, err.(*response.AppError).Code)
	assert.Empty(t, f.broadcaster.Events)
}

func TestDeleteCommentAuthorOnly(t *testing.T) {
	f := newCommentServiceFixture(t)
	comment := &domain.Comment{
		BaseModel: domain.BaseModel{ID: uuid.New()},
		TaskID:    f.task.ID,
		UserID:    f.actorID,
		Text:      "Obsolete",
		Type:      domain.CommentTypeComment,
	}
	f.commentRepo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
		return comment, nil
	}

	var decremented int
	f.taskRepo.IncrementCommentsCountFunc = func(ctx context.Context, id uuid.UUID, delta int) error {
		decremented = delta
		return nil
	}

	err := f.svc.DeleteComment(context.Background(), f.creatorID, comment.ID)
	require.Error(t, err)
	assert.Equal(t, response.ErrCodeForbidden, err.(*response.AppError).Code)

	require.NoError(t, f.svc.DeleteComment(context.Background(), f.actorID, comment.ID))
	assert.Equal(t, -1, decremented)
}
