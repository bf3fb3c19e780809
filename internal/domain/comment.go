package domain

import (
	"github.com/google/uuid"
)

// CommentType distinguishes plain comments from completion records
type CommentType string

const (
	CommentTypeComment    CommentType = "comment"
	CommentTypeCompletion CommentType = "completion"
)

// Comment on a task. ParentID allows one level of nesting.
type Comment struct {
	BaseModel
	TaskID        uuid.UUID   `gorm:"type:uuid;not null;index:idx_comments_task_id" json:"taskId"`
	UserID        uuid.UUID   `gorm:"type:uuid;not null" json:"userId"`
	ParentID      *uuid.UUID  `gorm:"type:uuid;index:idx_comments_parent_id" json:"parentId"`
	Text          string      `gorm:"type:text;not null" json:"text"`
	AttachmentURL *string     `gorm:"type:varchar(512)" json:"attachmentUrl"`
	Type          CommentType `gorm:"type:varchar(16);not null;default:'comment'" json:"type"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}
