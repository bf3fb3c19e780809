package dto

import (
	"github.com/google/uuid"

	"taskflow/internal/domain"
)

// CreateBoardRequest creates a board with the default column set
type CreateBoardRequest struct {
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	Visibility  domain.BoardVisibility `json:"visibility"`
}

// UpdateBoardRequest updates board attributes; nil fields are left unchanged
type UpdateBoardRequest struct {
	Title       *string                 `json:"title"`
	Description *string                 `json:"description"`
	Visibility  *domain.BoardVisibility `json:"visibility"`
}

// CreateColumnRequest appends a column to a board
type CreateColumnRequest struct {
	Title string `json:"title" binding:"required"`
}

// UpdateColumnRequest renames or repositions a column
type UpdateColumnRequest struct {
	Title    *string `json:"title"`
	Position *int    `json:"position"`
}

// BoardDetailResponse is a board projection with its tasks, the payload a
// client needs to (re)build its local state for one open board.
type BoardDetailResponse struct {
	Board *domain.Board  `json:"board"`
	Tasks []*domain.Task `json:"tasks"`
}

// InviteMemberRequest invites a user to a board. UserID may be empty when the
// invitee has not registered yet.
type InviteMemberRequest struct {
	UserID *uuid.UUID        `json:"userId"`
	Name   string            `json:"name"`
	Email  string            `json:"email" binding:"required,email"`
	Role   domain.MemberRole `json:"role"`
}

// RespondInviteRequest accepts or declines a pending membership
type RespondInviteRequest struct {
	Accept bool `json:"accept"`
}

// UpdateMemberRoleRequest promotes or demotes an active member
type UpdateMemberRoleRequest struct {
	Role domain.MemberRole `json:"role" binding:"required"`
}
