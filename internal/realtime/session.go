package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
	publishTimeout = 5 * time.Second
)

// BoardAuthorizer re-verifies board membership before a session may join a
// board room.
type BoardAuthorizer interface {
	IsActiveMember(ctx context.Context, boardID, userID uuid.UUID) (bool, error)
}

// Session is one long-lived server-side connection for an authenticated user.
// A session can belong to many rooms but to at most one board room.
type Session struct {
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID

	hub        *Hub
	authorizer BoardAuthorizer
	logger     *zap.Logger

	boardRoom string // guarded by hub.mu
	closeOnce sync.Once
}

// NewSession creates a session for an upgraded connection. The session joins
// its user room immediately; board rooms are joined on request.
func NewSession(hub *Hub, authorizer BoardAuthorizer, conn *websocket.Conn, userID uuid.UUID, logger *zap.Logger) *Session {
	return &Session{
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		userID:     userID,
		hub:        hub,
		authorizer: authorizer,
		logger:     logger,
	}
}

// UserID returns the authenticated user of this session
func (s *Session) UserID() uuid.UUID {
	return s.userID
}

// Start joins the user room and runs the read/write pumps. Blocks until the
// connection closes.
func (s *Session) Start() {
	s.hub.Join(s, UserRoom(s.userID))
	s.hub.metrics.SessionConnected()

	go s.writePump()
	s.readPump()
}

func (s *Session) closeSend() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.hub.metrics.SessionDisconnected()
		s.closeSend()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("WebSocket read error",
					zap.String("userId", s.userID.String()),
					zap.Error(err))
			}
			break
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			s.logger.Warn("Failed to parse inbound event", zap.Error(err))
			continue
		}

		if err := s.handleEvent(&event); err != nil {
			s.logger.Warn("Failed to handle inbound event",
				zap.String("type", event.Type),
				zap.Error(err))
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) handleEvent(event *Event) error {
	switch event.Type {
	case EventJoinBoard:
		return s.handleJoinBoard(event)
	case EventJoinUser:
		return s.handleJoinUser(event)
	default:
		s.logger.Warn("Unknown inbound event type", zap.String("type", event.Type))
	}
	return nil
}

// handleJoinBoard re-verifies membership before joining the board room.
// Membership is the authorization boundary; emits are not re-checked.
func (s *Session) handleJoinBoard(event *Event) error {
	var payload JoinPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	boardID, err := uuid.Parse(payload.BoardID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := s.authorizer.IsActiveMember(ctx, boardID, s.userID)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("Rejected board room join",
			zap.String("boardId", boardID.String()),
			zap.String("userId", s.userID.String()))
		return nil
	}

	s.hub.Join(s, BoardRoom(boardID))
	return nil
}

// handleJoinUser only permits joining the session's own user room
func (s *Session) handleJoinUser(event *Event) error {
	var payload JoinPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return err
	}
	if userID != s.userID {
		s.logger.Warn("Rejected foreign user room join",
			zap.String("requested", userID.String()),
			zap.String("authenticated", s.userID.String()))
		return nil
	}

	s.hub.Join(s, UserRoom(userID))
	return nil
}
