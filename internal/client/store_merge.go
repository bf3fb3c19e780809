package client

import (
	"encoding/json"

	"go.uber.org/zap"

	"taskflow/internal/domain"
	"taskflow/internal/realtime"
)

// ApplyRemoteEvent merges one server event into the local projection. Events
// for entities with a pending local mutation are ignored: the durable
// response of that mutation is the authority, not the broadcast that raced
// it. Events for boards other than the open one are dropped.
func (s *Store) ApplyRemoteEvent(event *realtime.Event) {
	switch event.Type {
	case realtime.EventTaskCreated:
		s.mergeTaskCreated(event.Payload)
	case realtime.EventTaskUpdated:
		s.mergeTaskUpdated(event.Payload)
	case realtime.EventTaskDeleted:
		s.mergeTaskDeleted(event.Payload)
	case realtime.EventBoardUpdated:
		s.mergeBoardUpdated(event.Payload)
	case realtime.EventNewComment:
		s.mergeNewComment(event.Payload)
	case realtime.EventNewNotification:
		s.mergeNewNotification(event.Payload)
	case realtime.EventYouWereRemoved:
		s.mergeRemoved(event.Payload)
	default:
		s.logger.Debug("Ignoring unknown event type", zap.String("type", event.Type))
	}
}

func (s *Store) mergeTaskCreated(payload json.RawMessage) {
	var task domain.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		s.logger.Warn("Bad task_created payload", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.notifyChange()
	}()

	if s.board == nil || s.board.ID != task.BoardID.String() {
		return
	}
	id := task.ID.String()
	if s.isPendingLocked(id) {
		return
	}
	if _, exists := s.board.Tasks[id]; exists {
		return
	}

	state := taskStateFromDomain(&task)
	s.board.Tasks[id] = state
	if column := s.board.column(state.ColumnID); column != nil {
		if indexOfString(column.TaskIDs, id) < 0 {
			column.TaskIDs = insertString(column.TaskIDs, id, task.Position)
		}
	}
}

// mergeTaskUpdated overwrites the local task field-by-field. A column change
// also rebuilds the order lists.
func (s *Store) mergeTaskUpdated(payload json.RawMessage) {
	var task domain.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		s.logger.Warn("Bad task_updated payload", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.notifyChange()
	}()

	if s.board == nil || s.board.ID != task.BoardID.String() {
		return
	}
	id := task.ID.String()
	if s.isPendingLocked(id) {
		return
	}
	existing, ok := s.board.Tasks[id]
	if !ok {
		// Task unknown locally (created before we joined); adopt it
		state := taskStateFromDomain(&task)
		s.board.Tasks[id] = state
		if column := s.board.column(state.ColumnID); column != nil && indexOfString(column.TaskIDs, id) < 0 {
			column.TaskIDs = insertString(column.TaskIDs, id, task.Position)
		}
		return
	}

	columnChanged := existing.ColumnID != task.ColumnID.String()
	s.board.Tasks[id] = taskStateFromDomain(&task)
	if columnChanged {
		s.board.removeTaskID(id)
		if column := s.board.column(task.ColumnID.String()); column != nil {
			column.TaskIDs = insertString(column.TaskIDs, id, task.Position)
		}
	}
}

// mergeTaskDeleted removes the task and prunes its id from every column, not
// only the one it was believed to be in.
func (s *Store) mergeTaskDeleted(payload json.RawMessage) {
	var deleted realtime.DeletedPayload
	if err := json.Unmarshal(payload, &deleted); err != nil {
		s.logger.Warn("Bad task_deleted payload", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.notifyChange()
	}()

	if s.board == nil || s.board.ID != deleted.BoardID.String() {
		return
	}
	id := deleted.TaskID.String()
	delete(s.board.Tasks, id)
	s.board.removeTaskID(id)
}

// mergeBoardUpdated replaces board metadata and column structure. Tasks with
// pending local mutations and optimistic temp tasks are re-placed into the
// rebuilt columns so the remote snapshot cannot erase them.
func (s *Store) mergeBoardUpdated(payload json.RawMessage) {
	var board domain.Board
	if err := json.Unmarshal(payload, &board); err != nil {
		s.logger.Warn("Bad board_updated payload", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.notifyChange()
	}()

	boardID := board.ID.String()
	if s.board == nil || s.board.ID != boardID {
		return
	}
	if s.isPendingLocked(boardID) {
		return
	}

	s.board.Title = board.Title
	s.board.Description = board.Description
	s.board.Visibility = string(board.Visibility)

	if len(board.Columns) == 0 {
		return
	}

	columns := make([]ColumnState, 0, len(board.Columns))
	for i := range board.Columns {
		columns = append(columns, columnStateFromDomain(&board.Columns[i]))
	}
	s.board.Columns = columns

	// Re-place tasks the remote snapshot cannot know about or must not move
	for id, task := range s.board.Tasks {
		if !IsTempID(id) && !s.isPendingLocked(id) {
			continue
		}
		s.board.removeTaskID(id)
		column := s.board.column(task.ColumnID)
		if column == nil && len(s.board.Columns) > 0 {
			column = &s.board.Columns[0]
			task.ColumnID = column.ID
		}
		if column != nil {
			column.TaskIDs = append(column.TaskIDs, id)
		}
	}

	// Drop order entries for tasks that no longer exist locally
	for i := range s.board.Columns {
		kept := s.board.Columns[i].TaskIDs[:0]
		for _, id := range s.board.Columns[i].TaskIDs {
			if _, ok := s.board.Tasks[id]; ok {
				kept = append(kept, id)
			}
		}
		s.board.Columns[i].TaskIDs = kept
	}
}

// mergeNewComment bumps the discussion counter. The author already counted
// their own comment optimistically, so their broadcast copy is skipped.
func (s *Store) mergeNewComment(payload json.RawMessage) {
	var comment domain.Comment
	if err := json.Unmarshal(payload, &comment); err != nil {
		s.logger.Warn("Bad new_comment payload", zap.Error(err))
		return
	}
	if comment.UserID.String() == s.userID {
		return
	}

	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.notifyChange()
	}()

	if s.board == nil {
		return
	}
	if task, ok := s.board.Tasks[comment.TaskID.String()]; ok {
		task.CommentsCount++
	}
}

func (s *Store) mergeNewNotification(payload json.RawMessage) {
	var notification domain.Notification
	if err := json.Unmarshal(payload, &notification); err != nil {
		s.logger.Warn("Bad new_notification payload", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.notifications = append([]*domain.Notification{&notification}, s.notifications...)
	s.mu.Unlock()
	s.notifyChange()
}

// mergeRemoved drops the open board when this user was evicted from it
func (s *Store) mergeRemoved(payload json.RawMessage) {
	var removed realtime.RemovedPayload
	if err := json.Unmarshal(payload, &removed); err != nil {
		s.logger.Warn("Bad you_were_removed payload", zap.Error(err))
		return
	}

	boardID := removed.BoardID.String()
	s.mu.Lock()
	open := s.board != nil && s.board.ID == boardID
	if open {
		s.board = nil
	}
	s.mu.Unlock()

	if open {
		s.notifyChange()
	}
	if s.callbacks.OnRemovedFromBoard != nil {
		s.callbacks.OnRemovedFromBoard(boardID, removed.BoardName)
	}
}
