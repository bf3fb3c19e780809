package client

import (
	"encoding/json"
	"time"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
)

// The store keeps its own projection types keyed by string ids so that
// optimistic tasks with temp ids fit the same structures as server records.

// TaskState is the local projection of one task
type TaskState struct {
	ID            string
	BoardID       string
	ColumnID      string
	CreatorID     string
	AssigneeID    string
	Title         string
	Description   string
	Priority      string
	Labels        []string
	DueDate       *time.Time
	Status        string
	CommentsCount int
}

// ColumnState is the local projection of one column and its task order
type ColumnState struct {
	ID       string
	Title    string
	Position int
	TaskIDs  []string
}

// BoardState is the local projection of one open board
type BoardState struct {
	ID          string
	Title       string
	Description string
	Visibility  string
	OwnerID     string
	Columns     []ColumnState
	Tasks       map[string]*TaskState
}

func taskStateFromDomain(task *domain.Task) *TaskState {
	state := &TaskState{
		ID:            task.ID.String(),
		BoardID:       task.BoardID.String(),
		ColumnID:      task.ColumnID.String(),
		CreatorID:     task.CreatorID.String(),
		Title:         task.Title,
		Description:   task.Description,
		Priority:      string(task.Priority),
		Status:        string(task.Status),
		CommentsCount: task.CommentsCount,
	}
	if task.AssigneeID != nil {
		state.AssigneeID = task.AssigneeID.String()
	}
	if len(task.Labels) > 0 {
		_ = json.Unmarshal(task.Labels, &state.Labels)
	}
	if task.DueDate != nil {
		due := *task.DueDate
		state.DueDate = &due
	}
	return state
}

func columnStateFromDomain(column *domain.Column) ColumnState {
	state := ColumnState{
		ID:       column.ID.String(),
		Title:    column.Title,
		Position: column.Position,
	}
	ids, err := column.TaskIDList()
	if err == nil {
		for _, id := range ids {
			state.TaskIDs = append(state.TaskIDs, id.String())
		}
	}
	return state
}

func boardStateFromDetail(detail *dto.BoardDetailResponse) *BoardState {
	state := &BoardState{
		ID:          detail.Board.ID.String(),
		Title:       detail.Board.Title,
		Description: detail.Board.Description,
		Visibility:  string(detail.Board.Visibility),
		OwnerID:     detail.Board.OwnerID.String(),
		Tasks:       make(map[string]*TaskState, len(detail.Tasks)),
	}
	for i := range detail.Board.Columns {
		state.Columns = append(state.Columns, columnStateFromDomain(&detail.Board.Columns[i]))
	}
	for _, task := range detail.Tasks {
		t := taskStateFromDomain(task)
		state.Tasks[t.ID] = t
	}
	return state
}

// clone produces a deep copy so a mutation can snapshot the state it is about
// to change and restore it verbatim on rollback.
func (b *BoardState) clone() *BoardState {
	if b == nil {
		return nil
	}
	out := &BoardState{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Visibility:  b.Visibility,
		OwnerID:     b.OwnerID,
		Tasks:       make(map[string]*TaskState, len(b.Tasks)),
	}
	out.Columns = make([]ColumnState, len(b.Columns))
	for i, column := range b.Columns {
		copied := column
		copied.TaskIDs = append([]string(nil), column.TaskIDs...)
		out.Columns[i] = copied
	}
	for id, task := range b.Tasks {
		copied := *task
		copied.Labels = append([]string(nil), task.Labels...)
		if task.DueDate != nil {
			due := *task.DueDate
			copied.DueDate = &due
		}
		out.Tasks[id] = &copied
	}
	return out
}

// column returns the column with the given id, or nil
func (b *BoardState) column(id string) *ColumnState {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return &b.Columns[i]
		}
	}
	return nil
}

// removeTaskID prunes a task id from every column's order list
func (b *BoardState) removeTaskID(taskID string) {
	for i := range b.Columns {
		b.Columns[i].TaskIDs = removeString(b.Columns[i].TaskIDs, taskID)
	}
}

func removeString(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insertString(ids []string, id string, index int) []string {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	out = append(out, ids[index:]...)
	return out
}

func indexOfString(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
