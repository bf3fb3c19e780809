package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
	"taskflow/internal/metrics"
	"taskflow/internal/realtime"
	"taskflow/internal/repository"
	"taskflow/internal/response"
)

// TaskService defines task business logic. Every mutation persists first and
// emits to the board room only after the write succeeded.
type TaskService interface {
	CreateTask(ctx context.Context, userID uuid.UUID, req *dto.CreateTaskRequest) (*domain.Task, error)
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req *dto.UpdateTaskRequest) (*domain.Task, error)
	MoveTask(ctx context.Context, userID, taskID uuid.UUID, req *dto.MoveTaskRequest) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
}

type taskServiceImpl struct {
	taskRepo            repository.TaskRepository
	boardRepo           repository.BoardRepository
	memberRepo          repository.MemberRepository
	notificationService NotificationService
	broadcaster         realtime.Broadcaster
	metrics             *metrics.Metrics
	logger              *zap.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	boardRepo repository.BoardRepository,
	memberRepo repository.MemberRepository,
	notificationService NotificationService,
	broadcaster realtime.Broadcaster,
	m *metrics.Metrics,
	logger *zap.Logger,
) TaskService {
	return &taskServiceImpl{
		taskRepo:            taskRepo,
		boardRepo:           boardRepo,
		memberRepo:          memberRepo,
		notificationService: notificationService,
		broadcaster:         broadcaster,
		metrics:             m,
		logger:              logger,
	}
}

// CreateTask appends a task to the tail of the requested column, then emits
// task_created and notifies the other active members.
func (s *taskServiceImpl) CreateTask(ctx context.Context, userID uuid.UUID, req *dto.CreateTaskRequest) (*domain.Task, error) {
	if err := s.requireActiveMember(ctx, req.BoardID, userID); err != nil {
		return nil, err
	}

	column, err := s.boardRepo.FindColumnByID(ctx, req.ColumnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Column not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load column", err.Error())
	}
	if column.BoardID != req.BoardID {
		return nil, response.NewAppError(response.ErrCodeValidation, "Column does not belong to board", "")
	}

	taskIDs, err := column.TaskIDList()
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to decode column order", err.Error())
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	labels, err := json.Marshal(req.Labels)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeValidation, "Invalid labels", err.Error())
	}

	task := &domain.Task{
		BoardID:     req.BoardID,
		ColumnID:    req.ColumnID,
		CreatorID:   userID,
		AssigneeID:  req.AssigneeID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Labels:      labels,
		DueDate:     req.DueDate,
		Position:    len(taskIDs),
		Status:      domain.TaskStatusOpen,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create task", err.Error())
	}

	taskIDs = append(taskIDs, task.ID)
	if err := column.SetTaskIDList(taskIDs); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to encode column order", err.Error())
	}
	if err := s.boardRepo.UpdateColumn(ctx, column); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update column order", err.Error())
	}

	s.metrics.IncrementTaskCreated()
	s.broadcaster.Emit(realtime.BoardRoom(task.BoardID), realtime.EventTaskCreated, task)
	s.notifyBoardMembers(ctx, task.BoardID, userID, &domain.Notification{
		Type:    domain.NotificationTaskCreated,
		BoardID: task.BoardID,
		TaskID:  &task.ID,
		Message: fmt.Sprintf("Task %q was created", task.Title),
	})

	return task, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Task not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load task", err.Error())
	}
	if err := s.requireActiveMember(ctx, task.BoardID, userID); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask applies the non-nil fields and emits task_updated with the full
// task so receivers can overwrite field-by-field.
func (s *taskServiceImpl) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req *dto.UpdateTaskRequest) (*domain.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Task not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load task", err.Error())
	}
	if err := s.requireActiveMember(ctx, task.BoardID, userID); err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, response.NewAppError(response.ErrCodeValidation, "Title cannot be empty", "")
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Labels != nil {
		labels, err := json.Marshal(*req.Labels)
		if err != nil {
			return nil, response.NewAppError(response.ErrCodeValidation, "Invalid labels", err.Error())
		}
		task.Labels = labels
	}
	if req.ClearDue {
		task.DueDate = nil
	} else if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.AssigneeID != nil {
		task.AssigneeID = req.AssigneeID
	}
	if req.Status != nil {
		task.Status = *req.Status
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update task", err.Error())
	}

	s.broadcaster.Emit(realtime.BoardRoom(task.BoardID), realtime.EventTaskUpdated, task)
	return task, nil
}

// MoveTask removes the task id from the source column list, inserts it into
// the destination list at the requested index, and updates ColumnID and
// Position. Moving a task already at the destination is a no-op rebuild, so
// replaying the same move is idempotent.
func (s *taskServiceImpl) MoveTask(ctx context.Context, userID, taskID uuid.UUID, req *dto.MoveTaskRequest) (*domain.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Task not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load task", err.Error())
	}
	if err := s.requireActiveMember(ctx, task.BoardID, userID); err != nil {
		return nil, err
	}

	source, err := s.boardRepo.FindColumnByID(ctx, req.SourceColumnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Source column not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load source column", err.Error())
	}
	dest := source
	if req.DestColumnID != req.SourceColumnID {
		dest, err = s.boardRepo.FindColumnByID(ctx, req.DestColumnID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, response.NewAppError(response.ErrCodeNotFound, "Destination column not found", "")
			}
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load destination column", err.Error())
		}
	}
	if source.BoardID != task.BoardID || dest.BoardID != task.BoardID {
		return nil, response.NewAppError(response.ErrCodeValidation, "Columns do not belong to the task's board", "")
	}

	sourceIDs, err := source.TaskIDList()
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to decode source order", err.Error())
	}
	destIDs := sourceIDs
	if dest != source {
		destIDs, err = dest.TaskIDList()
		if err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to decode destination order", err.Error())
		}
	}

	sourceIDs = removeID(sourceIDs, taskID)
	if dest == source {
		destIDs = sourceIDs
	} else {
		destIDs = removeID(destIDs, taskID)
	}
	destIDs = insertID(destIDs, taskID, req.DestIndex)

	if dest == source {
		if err := source.SetTaskIDList(destIDs); err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to encode column order", err.Error())
		}
		if err := s.boardRepo.UpdateColumn(ctx, source); err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update column order", err.Error())
		}
	} else {
		if err := source.SetTaskIDList(sourceIDs); err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to encode source order", err.Error())
		}
		if err := dest.SetTaskIDList(destIDs); err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to encode destination order", err.Error())
		}
		if err := s.boardRepo.UpdateColumn(ctx, source); err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update source order", err.Error())
		}
		if err := s.boardRepo.UpdateColumn(ctx, dest); err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update destination order", err.Error())
		}
	}

	task.ColumnID = dest.ID
	task.Position = indexOf(destIDs, taskID)
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update task", err.Error())
	}

	s.metrics.IncrementTaskMoved()
	s.broadcaster.Emit(realtime.BoardRoom(task.BoardID), realtime.EventTaskUpdated, task)
	s.emitBoardUpdated(ctx, task.BoardID)

	return task, nil
}

// DeleteTask removes the task and prunes its id from every column of the
// board, not just the one it claims to be in. A crashed move can leave the id
// in an unexpected column; pruning all of them restores the invariant.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeNotFound, "Task not found", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Failed to load task", err.Error())
	}
	if err := s.requireActiveMember(ctx, task.BoardID, userID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to delete task", err.Error())
	}

	columns, err := s.boardRepo.FindColumnsByBoardID(ctx, task.BoardID)
	if err != nil {
		s.logger.Error("Failed to load columns for prune",
			zap.String("boardId", task.BoardID.String()),
			zap.Error(err))
	} else {
		for _, column := range columns {
			ids, err := column.TaskIDList()
			if err != nil {
				s.logger.Warn("Skipping column with bad order list",
					zap.String("columnId", column.ID.String()),
					zap.Error(err))
				continue
			}
			pruned := removeID(ids, taskID)
			if len(pruned) == len(ids) {
				continue
			}
			if err := column.SetTaskIDList(pruned); err != nil {
				continue
			}
			if err := s.boardRepo.UpdateColumn(ctx, column); err != nil {
				s.logger.Error("Failed to prune task from column",
					zap.String("columnId", column.ID.String()),
					zap.Error(err))
			}
		}
	}

	s.broadcaster.Emit(realtime.BoardRoom(task.BoardID), realtime.EventTaskDeleted, realtime.DeletedPayload{
		TaskID:  taskID,
		BoardID: task.BoardID,
	})
	return nil
}

func (s *taskServiceImpl) requireActiveMember(ctx context.Context, boardID, userID uuid.UUID) error {
	ok, err := s.memberRepo.IsActiveMember(ctx, boardID, userID)
	if err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to check board membership", err.Error())
	}
	if !ok {
		return response.NewAppError(response.ErrCodeForbidden, "Not a member of this board", "")
	}
	return nil
}

// emitBoardUpdated broadcasts the refreshed board (columns preloaded) so
// clients can rebuild column order after a structural change.
func (s *taskServiceImpl) emitBoardUpdated(ctx context.Context, boardID uuid.UUID) {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		s.logger.Error("Failed to load board for broadcast",
			zap.String("boardId", boardID.String()),
			zap.Error(err))
		return
	}
	s.broadcaster.Emit(realtime.BoardRoom(boardID), realtime.EventBoardUpdated, board)
}

// notifyBoardMembers pushes a copy of the notification to every active member
// and the owner, except the actor. Failures are logged and do not fail the
// mutation that triggered them.
func (s *taskServiceImpl) notifyBoardMembers(ctx context.Context, boardID, actorID uuid.UUID, template *domain.Notification) {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		s.logger.Error("Failed to load board for notifications",
			zap.String("boardId", boardID.String()),
			zap.Error(err))
		return
	}

	recipients := make(map[uuid.UUID]struct{})
	if board.OwnerID != actorID {
		recipients[board.OwnerID] = struct{}{}
	}
	for _, member := range board.Members {
		if member.Status != domain.MemberStatusActive || member.UserID == nil || *member.UserID == actorID {
			continue
		}
		recipients[*member.UserID] = struct{}{}
	}

	for recipient := range recipients {
		notification := &domain.Notification{
			UserID:  recipient,
			Type:    template.Type,
			BoardID: template.BoardID,
			TaskID:  template.TaskID,
			Message: template.Message,
		}
		if _, err := s.notificationService.CreateAndPush(ctx, notification); err != nil {
			s.logger.Warn("Failed to push notification",
				zap.String("userId", recipient.String()),
				zap.Error(err))
		}
	}
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insertID(ids []uuid.UUID, id uuid.UUID, index int) []uuid.UUID {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]uuid.UUID, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	out = append(out, ids[index:]...)
	return out
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return 0
}
