package domain

import (
	"github.com/google/uuid"
)

// MemberRole on a board
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// MemberStatus state machine: pending -> active (accept) or
// pending -> rejected (decline).
type MemberStatus string

const (
	MemberStatusPending  MemberStatus = "pending"
	MemberStatusActive   MemberStatus = "active"
	MemberStatusRejected MemberStatus = "rejected"
)

// BoardMember is a board membership record. UserID stays nil until the
// invited email registers.
type BoardMember struct {
	BaseModel
	BoardID uuid.UUID    `gorm:"type:uuid;not null;index:idx_members_board_id" json:"boardId"`
	UserID  *uuid.UUID   `gorm:"type:uuid;index:idx_members_user_id" json:"userId"`
	Name    string       `gorm:"type:varchar(255)" json:"name"`
	Email   string       `gorm:"type:varchar(255);not null" json:"email"`
	Role    MemberRole   `gorm:"type:varchar(16);not null;default:'member'" json:"role"`
	Status  MemberStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
}

// TableName specifies the table name for BoardMember
func (BoardMember) TableName() string {
	return "board_members"
}
