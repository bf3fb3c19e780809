package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskflow/internal/metrics"
)

const redisChannelPrefix = "room:"

// Broadcaster publishes typed events to rooms. Mutation handlers call it
// after a successful persistent write.
type Broadcaster interface {
	Emit(room, eventType string, payload interface{})
	EmitToUser(userID uuid.UUID, eventType string, payload interface{})
}

// Evictor force-removes a user's sessions from a room. Separate from
// Broadcaster because only membership removal needs it.
type Evictor interface {
	EvictUserFromRoom(userID uuid.UUID, room string)
}

// Hub maintains the mapping from room names to connected sessions and fans
// events out to them. Delivery is at-most-once: sessions joined after an emit
// never see it.
type Hub struct {
	instanceID string

	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}

	redis   *redis.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHub creates a Hub. redisClient may be nil; cross-instance delivery is
// then disabled and events only reach sessions on this instance.
func NewHub(redisClient *redis.Client, logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		instanceID: uuid.NewString(),
		rooms:      make(map[string]map[*Session]struct{}),
		redis:      redisClient,
		logger:     logger,
		metrics:    m,
	}
}

// Run bridges events published by other instances into local rooms. Blocks
// until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.redis == nil {
		<-ctx.Done()
		return
	}

	pubsub := h.redis.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warn("Failed to parse bridged event", zap.Error(err))
				continue
			}
			if event.Origin == h.instanceID {
				continue
			}
			room := strings.TrimPrefix(msg.Channel, redisChannelPrefix)
			h.deliverLocal(room, []byte(msg.Payload), event.Type)
		}
	}
}

// Join adds a session to a room. The caller must have verified membership
// first; room membership itself is the authorization boundary. Joining a
// board room implicitly leaves the session's previous board room.
func (h *Hub) Join(s *Session, room string) {
	h.mu.Lock()
	if strings.HasPrefix(room, "board:") && s.boardRoom != "" && s.boardRoom != room {
		h.removeLocked(s, s.boardRoom)
	}
	if strings.HasPrefix(room, "board:") {
		s.boardRoom = room
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][s] = struct{}{}
	roomCount := len(h.rooms)
	h.mu.Unlock()

	h.metrics.SetRoomsActive(roomCount)
	h.logger.Debug("Session joined room",
		zap.String("room", room),
		zap.String("userId", s.userID.String()))
}

// Leave removes a session from a room
func (h *Hub) Leave(s *Session, room string) {
	h.mu.Lock()
	h.removeLocked(s, room)
	roomCount := len(h.rooms)
	h.mu.Unlock()

	h.metrics.SetRoomsActive(roomCount)
}

// Unregister removes a session from every room it joined
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	for room, members := range h.rooms {
		if _, ok := members[s]; ok {
			h.removeLocked(s, room)
		}
	}
	roomCount := len(h.rooms)
	h.mu.Unlock()

	h.metrics.SetRoomsActive(roomCount)
}

// EvictUserFromRoom removes every session of a user from a room. Used when a
// member is removed from a board and must stop receiving its events.
func (h *Hub) EvictUserFromRoom(userID uuid.UUID, room string) {
	h.mu.Lock()
	for s := range h.rooms[room] {
		if s.userID == userID {
			h.removeLocked(s, room)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) removeLocked(s *Session, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if s.boardRoom == room {
		s.boardRoom = ""
	}
}

// Emit delivers an event to every session currently joined to room, and
// publishes it on the redis bridge for other instances. Partial failure of
// one delivery never blocks the others.
func (h *Hub) Emit(room, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal event payload",
			zap.String("event_type", eventType),
			zap.Error(err))
		return
	}

	data, err := json.Marshal(Event{
		Type:    eventType,
		Room:    room,
		Payload: raw,
		Origin:  h.instanceID,
	})
	if err != nil {
		h.logger.Error("Failed to marshal event envelope", zap.Error(err))
		return
	}

	h.deliverLocal(room, data, eventType)

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := h.redis.Publish(ctx, redisChannelPrefix+room, data).Err(); err != nil {
			h.logger.Warn("Failed to publish event to redis bridge",
				zap.String("room", room),
				zap.String("event_type", eventType),
				zap.Error(err))
		}
	}
}

// EmitToUser delivers an event to a single user's room
func (h *Hub) EmitToUser(userID uuid.UUID, eventType string, payload interface{}) {
	h.Emit(UserRoom(userID), eventType, payload)
}

// deliverLocal fans out to local sessions. The member set is snapshotted
// under the read lock and the lock released before any send, so one slow
// client cannot stall delivery to others.
func (h *Hub) deliverLocal(room string, data []byte, eventType string) {
	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	for _, s := range members {
		select {
		case s.send <- data:
		default:
			// Send buffer full: the client is too slow, drop it
			h.logger.Warn("Dropping slow session",
				zap.String("room", room),
				zap.String("userId", s.userID.String()))
			h.Unregister(s)
			s.closeSend()
		}
	}

	h.metrics.RecordEventEmitted(eventType)
}
