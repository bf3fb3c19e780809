package domain

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Column is an ordered lane on a board. TaskIDs defines intra-column task
// order; a task id appears in at most one column's list at any instant.
type Column struct {
	BaseModel
	BoardID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_columns_board_id" json:"boardId"`
	Title    string         `gorm:"type:varchar(255);not null" json:"title"`
	Position int            `gorm:"not null" json:"position"`
	TaskIDs  datatypes.JSON `gorm:"type:jsonb" json:"taskIds"`
}

// TableName specifies the table name for Column
func (Column) TableName() string {
	return "columns"
}

// TaskIDList decodes the ordered task id list
func (c *Column) TaskIDList() ([]uuid.UUID, error) {
	if len(c.TaskIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(c.TaskIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetTaskIDList encodes the ordered task id list
func (c *Column) SetTaskIDList(ids []uuid.UUID) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	c.TaskIDs = raw
	return nil
}
