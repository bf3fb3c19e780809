package domain

import (
	"github.com/google/uuid"
)

// NotificationType is the closed set of notification triggers
type NotificationType string

const (
	NotificationTaskCreated   NotificationType = "task_created"
	NotificationTaskMoved     NotificationType = "task_moved"
	NotificationTaskDeadline  NotificationType = "task_deadline"
	NotificationMemberRemoved NotificationType = "member_removed"
	NotificationMemberInvited NotificationType = "member_invited"
	NotificationMention       NotificationType = "mention"
	NotificationCommentAdded  NotificationType = "comment_added"
)

// Notification targets a single recipient. The partial unique index on
// (user_id, task_id) for type='task_deadline' is the dedupe guarantee for the
// deadline scan; the application-level check before insert only narrows the
// duplicate window.
type Notification struct {
	BaseModel
	UserID  uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_user_id;uniqueIndex:idx_notifications_deadline_dedupe,where:type = 'task_deadline'" json:"userId"`
	Type    NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	BoardID uuid.UUID        `gorm:"type:uuid;not null" json:"boardId"`
	TaskID  *uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_notifications_deadline_dedupe,where:type = 'task_deadline'" json:"taskId"`
	Message string           `gorm:"type:text;not null" json:"message"`
	Read    bool             `gorm:"not null;default:false" json:"read"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
