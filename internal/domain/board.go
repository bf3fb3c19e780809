package domain

import (
	"github.com/google/uuid"
)

// BoardVisibility controls who can discover a board
type BoardVisibility string

const (
	BoardVisibilityPublic  BoardVisibility = "public"
	BoardVisibilityPrivate BoardVisibility = "private"
)

// Board is a shared task board. The owner is tracked on the board itself and
// is never duplicated in the members list.
type Board struct {
	BaseModel
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Visibility  BoardVisibility `gorm:"type:varchar(16);not null;default:'private'" json:"visibility"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_boards_owner_id" json:"ownerId"`
	Columns     []Column        `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"columns,omitempty"`
	Members     []BoardMember   `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

// TableName specifies the table name for Board
func (Board) TableName() string {
	return "boards"
}
