package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
)

// tempIDPrefix marks locally created tasks that have no server id yet
const tempIDPrefix = "temp-"

func newTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id is a local placeholder id
func IsTempID(id string) bool {
	return len(id) > len(tempIDPrefix) && id[:len(tempIDPrefix)] == tempIDPrefix
}

// CreateTask inserts an optimistic task with a temp id at the tail of the
// column and sends the create in the background. When the server record
// arrives, the temp id is swapped for the real one in place, preserving
// whatever position the task has at that moment. On failure the temp task is
// removed entirely.
func (s *Store) CreateTask(req *dto.CreateTaskRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", &APIError{Kind: ErrKindValidation, Message: "title cannot be empty"}
	}

	s.mu.Lock()
	if s.board == nil || s.board.ID != req.BoardID.String() {
		s.mu.Unlock()
		return "", &APIError{Kind: ErrKindValidation, Message: "board is not open"}
	}
	column := s.board.column(req.ColumnID.String())
	if column == nil {
		s.mu.Unlock()
		return "", &APIError{Kind: ErrKindValidation, Message: "unknown column"}
	}

	tempID := newTempID()
	task := &TaskState{
		ID:          tempID,
		BoardID:     req.BoardID.String(),
		ColumnID:    req.ColumnID.String(),
		Title:       req.Title,
		Description: req.Description,
		Priority:    string(req.Priority),
		Labels:      append([]string(nil), req.Labels...),
		DueDate:     req.DueDate,
		Status:      string(domain.TaskStatusOpen),
	}
	if task.Priority == "" {
		task.Priority = string(domain.TaskPriorityMedium)
	}
	if req.AssigneeID != nil {
		task.AssigneeID = req.AssigneeID.String()
	}

	s.board.Tasks[tempID] = task
	column.TaskIDs = append(column.TaskIDs, tempID)
	s.addPending(tempID)
	s.mu.Unlock()
	s.notifyChange()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		created, err := s.api.CreateTask(ctx, req)
		if err != nil {
			s.rollbackTempTask(tempID)
			s.reportFailure("create_task", err)
			s.handleDriftFailure(err)
			return
		}
		s.reconcileTempTask(tempID, created)
	}()

	return tempID, nil
}

// reconcileTempTask swaps the temp id for the server id without disturbing
// the task's current position: moves applied while the create was in flight
// survive the swap.
func (s *Store) reconcileTempTask(tempID string, created *domain.Task) {
	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.notifyChange()
	}()

	s.releasePendingLocked(tempID)
	if s.board == nil {
		return
	}
	task, ok := s.board.Tasks[tempID]
	if !ok {
		return
	}

	realID := created.ID.String()
	delete(s.board.Tasks, tempID)

	if _, merged := s.board.Tasks[realID]; merged {
		// The server broadcast beat the response; drop the temp copy
		s.board.removeTaskID(tempID)
		return
	}

	reconciled := taskStateFromDomain(created)
	reconciled.ColumnID = task.ColumnID
	s.board.Tasks[realID] = reconciled

	for i := range s.board.Columns {
		ids := s.board.Columns[i].TaskIDs
		if idx := indexOfString(ids, tempID); idx >= 0 {
			ids[idx] = realID
		}
	}
}

func (s *Store) rollbackTempTask(tempID string) {
	s.mu.Lock()
	s.releasePendingLocked(tempID)
	if s.board != nil {
		delete(s.board.Tasks, tempID)
		s.board.removeTaskID(tempID)
	}
	s.mu.Unlock()
	s.notifyChange()
}

// UpdateTask applies the change locally and sends it in the background. On
// failure the previous task value is restored.
func (s *Store) UpdateTask(taskID string, req *dto.UpdateTaskRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return &APIError{Kind: ErrKindValidation, Message: "title cannot be empty"}
	}

	s.mu.Lock()
	if s.board == nil {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindValidation, Message: "no board open"}
	}
	task, ok := s.board.Tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindNotFound, Message: "unknown task"}
	}
	if IsTempID(taskID) {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindValidation, Message: "task is not created yet"}
	}

	previous := *task
	previous.Labels = append([]string(nil), task.Labels...)

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = string(*req.Priority)
	}
	if req.Labels != nil {
		task.Labels = append([]string(nil), (*req.Labels)...)
	}
	if req.ClearDue {
		task.DueDate = nil
	} else if req.DueDate != nil {
		due := *req.DueDate
		task.DueDate = &due
	}
	if req.AssigneeID != nil {
		task.AssigneeID = req.AssigneeID.String()
	}
	if req.Status != nil {
		task.Status = string(*req.Status)
	}

	s.addPending(taskID)
	s.mu.Unlock()
	s.notifyChange()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		updated, err := s.api.UpdateTask(ctx, taskID, req)
		if err != nil {
			s.mu.Lock()
			s.releasePendingLocked(taskID)
			if s.board != nil {
				if _, still := s.board.Tasks[taskID]; still {
					restored := previous
					s.board.Tasks[taskID] = &restored
				}
			}
			s.mu.Unlock()
			s.notifyChange()
			s.reportFailure("update_task", err)
			s.handleDriftFailure(err)
			return
		}

		s.mu.Lock()
		s.releasePendingLocked(taskID)
		if s.board != nil {
			if current, still := s.board.Tasks[taskID]; still {
				reconciled := taskStateFromDomain(updated)
				reconciled.ColumnID = current.ColumnID
				s.board.Tasks[taskID] = reconciled
			}
		}
		s.mu.Unlock()
		s.notifyChange()
	}()

	return nil
}

// MoveTask rebuilds the affected column lists in one step, then sends the
// move in the background. Any failed write that is not an authorization or
// not-found drift restores the exact pre-move snapshot; drift failures
// trigger a full refetch.
func (s *Store) MoveTask(taskID, destColumnID string, destIndex int) error {
	s.mu.Lock()
	if s.board == nil {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindValidation, Message: "no board open"}
	}
	task, ok := s.board.Tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindNotFound, Message: "unknown task"}
	}
	dest := s.board.column(destColumnID)
	if dest == nil {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindValidation, Message: "unknown column"}
	}

	temp := IsTempID(taskID)
	var req *dto.MoveTaskRequest
	if !temp {
		sourceUUID, err := uuid.Parse(task.ColumnID)
		if err != nil {
			s.mu.Unlock()
			return &APIError{Kind: ErrKindValidation, Message: fmt.Sprintf("bad source column id: %v", err)}
		}
		destUUID, err := uuid.Parse(destColumnID)
		if err != nil {
			s.mu.Unlock()
			return &APIError{Kind: ErrKindValidation, Message: fmt.Sprintf("bad column id: %v", err)}
		}
		req = &dto.MoveTaskRequest{
			SourceColumnID: sourceUUID,
			DestColumnID:   destUUID,
			DestIndex:      destIndex,
		}
	}

	snapshot := s.board.clone()

	s.board.removeTaskID(taskID)
	dest.TaskIDs = insertString(dest.TaskIDs, taskID, destIndex)
	task.ColumnID = destColumnID

	// Moves of a not-yet-created task stay local; the reconcile of the create
	// picks up the current column and position.
	if temp {
		s.mu.Unlock()
		s.notifyChange()
		return nil
	}

	s.addPending(taskID)
	s.mu.Unlock()
	s.notifyChange()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if _, err := s.api.MoveTask(ctx, taskID, req); err != nil {
			s.mu.Lock()
			s.releasePendingLocked(taskID)
			if needsRollback(err) && s.board != nil && s.board.ID == snapshot.ID {
				s.board = snapshot
			}
			s.mu.Unlock()
			s.notifyChange()
			s.reportFailure("move_task", err)
			s.handleDriftFailure(err)
			return
		}
		s.releasePending(taskID)
		s.notifyChange()
	}()

	return nil
}

// DeleteTask removes the task locally and sends the delete in the background.
// Failure restores the pre-delete snapshot.
func (s *Store) DeleteTask(taskID string) error {
	s.mu.Lock()
	if s.board == nil {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindValidation, Message: "no board open"}
	}
	if _, ok := s.board.Tasks[taskID]; !ok {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindNotFound, Message: "unknown task"}
	}

	snapshot := s.board.clone()
	delete(s.board.Tasks, taskID)
	s.board.removeTaskID(taskID)

	if IsTempID(taskID) {
		// The create is still in flight; reconcile will find the task gone
		s.mu.Unlock()
		s.notifyChange()
		return nil
	}

	s.addPending(taskID)
	s.mu.Unlock()
	s.notifyChange()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := s.api.DeleteTask(ctx, taskID); err != nil && KindOf(err) != ErrKindNotFound {
			s.mu.Lock()
			s.releasePendingLocked(taskID)
			if needsRollback(err) && s.board != nil && s.board.ID == snapshot.ID {
				s.board = snapshot
			}
			s.mu.Unlock()
			s.notifyChange()
			s.reportFailure("delete_task", err)
			s.handleDriftFailure(err)
			return
		}
		s.releasePending(taskID)
	}()

	return nil
}

// UpdateBoard applies board metadata changes locally and sends them in the
// background, restoring the previous values on failure.
func (s *Store) UpdateBoard(req *dto.UpdateBoardRequest) error {
	s.mu.Lock()
	if s.board == nil {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindValidation, Message: "no board open"}
	}
	boardID := s.board.ID
	prevTitle, prevDescription, prevVisibility := s.board.Title, s.board.Description, s.board.Visibility

	if req.Title != nil {
		s.board.Title = *req.Title
	}
	if req.Description != nil {
		s.board.Description = *req.Description
	}
	if req.Visibility != nil {
		s.board.Visibility = string(*req.Visibility)
	}

	s.addPending(boardID)
	s.mu.Unlock()
	s.notifyChange()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if _, err := s.api.UpdateBoard(ctx, boardID, req); err != nil {
			s.mu.Lock()
			s.releasePendingLocked(boardID)
			if s.board != nil && s.board.ID == boardID {
				s.board.Title = prevTitle
				s.board.Description = prevDescription
				s.board.Visibility = prevVisibility
			}
			s.mu.Unlock()
			s.notifyChange()
			s.reportFailure("update_board", err)
			s.handleDriftFailure(err)
			return
		}
		s.releasePending(boardID)
	}()

	return nil
}

// AddComment sends a comment and bumps the local counter optimistically
func (s *Store) AddComment(taskID string, req *dto.CreateCommentRequest) error {
	s.mu.Lock()
	if s.board == nil {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindValidation, Message: "no board open"}
	}
	task, ok := s.board.Tasks[taskID]
	if !ok || IsTempID(taskID) {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindNotFound, Message: "unknown task"}
	}
	task.CommentsCount++
	s.addPending(taskID)
	s.mu.Unlock()
	s.notifyChange()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if _, err := s.api.CreateComment(ctx, taskID, req); err != nil {
			s.mu.Lock()
			s.releasePendingLocked(taskID)
			if s.board != nil {
				if current, still := s.board.Tasks[taskID]; still && current.CommentsCount > 0 {
					current.CommentsCount--
				}
			}
			s.mu.Unlock()
			s.notifyChange()
			s.reportFailure("add_comment", err)
			s.handleDriftFailure(err)
			return
		}
		s.releasePending(taskID)
	}()

	return nil
}

// MarkNotificationRead flips the local flag and confirms with the server,
// restoring the unread state on failure.
func (s *Store) MarkNotificationRead(notificationID string) error {
	s.mu.Lock()
	var target *domain.Notification
	for _, n := range s.notifications {
		if n.ID.String() == notificationID {
			target = n
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return &APIError{Kind: ErrKindNotFound, Message: "unknown notification"}
	}
	wasRead := target.Read
	target.Read = true
	s.mu.Unlock()
	s.notifyChange()

	if wasRead {
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if _, err := s.api.MarkNotificationRead(ctx, notificationID); err != nil {
			s.mu.Lock()
			for _, n := range s.notifications {
				if n.ID.String() == notificationID {
					n.Read = false
					break
				}
			}
			s.mu.Unlock()
			s.notifyChange()
			s.reportFailure("mark_notification_read", err)
		}
	}()

	return nil
}
