package dto

import (
	"time"

	"github.com/google/uuid"

	"taskflow/internal/domain"
)

// CreateTaskRequest creates a task at the tail of a column
type CreateTaskRequest struct {
	BoardID     uuid.UUID           `json:"boardId" binding:"required"`
	ColumnID    uuid.UUID           `json:"columnId" binding:"required"`
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	Priority    domain.TaskPriority `json:"priority"`
	Labels      []string            `json:"labels"`
	DueDate     *time.Time          `json:"dueDate"`
	AssigneeID  *uuid.UUID          `json:"assigneeId"`
}

// UpdateTaskRequest updates task attributes; nil fields are left unchanged
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *domain.TaskPriority `json:"priority"`
	Labels      *[]string            `json:"labels"`
	DueDate     *time.Time           `json:"dueDate"`
	ClearDue    bool                 `json:"clearDue"`
	AssigneeID  *uuid.UUID           `json:"assigneeId"`
	Status      *domain.TaskStatus   `json:"status"`
}

// MoveTaskRequest moves a task between (or within) columns
type MoveTaskRequest struct {
	SourceColumnID uuid.UUID `json:"sourceColumnId" binding:"required"`
	DestColumnID   uuid.UUID `json:"destColumnId" binding:"required"`
	DestIndex      int       `json:"destIndex"`
}

// CreateCommentRequest appends a comment to a task discussion
type CreateCommentRequest struct {
	Text          string             `json:"text" binding:"required"`
	ParentID      *uuid.UUID         `json:"parentId"`
	AttachmentURL *string            `json:"attachmentUrl"`
	Type          domain.CommentType `json:"type"`
}
