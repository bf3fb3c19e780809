package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TaskPriority levels
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// TaskStatus values
type TaskStatus string

const (
	TaskStatusOpen TaskStatus = "open"
	TaskStatusDone TaskStatus = "done"
)

// Task belongs to exactly one column of its board. ColumnID must converge
// with the column whose TaskIDs contains the task id after reconciliation;
// the two may transiently disagree during an in-flight move.
type Task struct {
	BaseModel
	BoardID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_tasks_board_id" json:"boardId"`
	ColumnID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_tasks_column_id" json:"columnId"`
	CreatorID     uuid.UUID      `gorm:"type:uuid;not null" json:"creatorId"`
	AssigneeID    *uuid.UUID     `gorm:"type:uuid;index:idx_tasks_assignee_id" json:"assigneeId"`
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	Priority      TaskPriority   `gorm:"type:varchar(16);not null;default:'medium'" json:"priority"`
	Labels        datatypes.JSON `gorm:"type:jsonb" json:"labels"`
	DueDate       *time.Time     `gorm:"type:timestamp;index:idx_tasks_due_date" json:"dueDate"`
	Position      int            `gorm:"not null" json:"position"`
	Status        TaskStatus     `gorm:"type:varchar(16);not null;default:'open'" json:"status"`
	CommentsCount int            `gorm:"not null;default:0" json:"commentsCount"`
}

// TableName specifies the table name for Task
func (Task) TableName() string {
	return "tasks"
}
