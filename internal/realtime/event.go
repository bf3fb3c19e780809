package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Server-to-client event types
const (
	EventTaskCreated     = "task_created"
	EventTaskUpdated     = "task_updated"
	EventTaskDeleted     = "task_deleted"
	EventBoardUpdated    = "board_updated"
	EventNewComment      = "new_comment"
	EventNewNotification = "new_notification"
	EventYouWereRemoved  = "you_were_removed"
)

// Client-to-server event types
const (
	EventJoinBoard = "join_board"
	EventJoinUser  = "join_user"
)

// Event is the wire envelope exchanged over the session connection. Origin
// carries the broadcasting instance id on the redis bridge so an instance can
// skip its own republished events.
type Event struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Origin  string          `json:"origin,omitempty"`
}

// JoinPayload is the payload of join_board and join_user events
type JoinPayload struct {
	BoardID string `json:"boardId,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

// RemovedPayload is the payload of the you_were_removed eviction signal
type RemovedPayload struct {
	BoardID   uuid.UUID `json:"boardId"`
	BoardName string    `json:"boardName"`
}

// DeletedPayload is the payload of task_deleted events
type DeletedPayload struct {
	TaskID  uuid.UUID `json:"taskId"`
	BoardID uuid.UUID `json:"boardId"`
}

// BoardRoom returns the room name for a board
func BoardRoom(boardID uuid.UUID) string {
	return "board:" + boardID.String()
}

// UserRoom returns the room name for a user
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}
