package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"taskflow/internal/realtime"
)

// SessionState is the connection state machine of a client session
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	dialTimeout    = 10 * time.Second
)

// Session maintains the realtime connection for one store. It reconnects
// with exponential backoff, rejoins the user room and the open board room
// after every reconnect, and refetches the board so events missed while
// disconnected are not lost. The store projection itself survives
// disconnects untouched.
type Session struct {
	url    string
	token  string
	store  *Store
	logger *zap.Logger
	dialer *websocket.Dialer

	mu    sync.Mutex
	state SessionState
	conn  *websocket.Conn
}

// NewSession creates a session that feeds events into store. url is the
// websocket endpoint, e.g. "ws://localhost:8080/ws".
func NewSession(url, token string, store *Store, logger *zap.Logger) *Session {
	return &Session{
		url:    url,
		token:  token,
		store:  store,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: dialTimeout},
		state:  StateDisconnected,
	}
}

// State returns the current connection state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run connects and keeps the session alive until ctx is cancelled. Blocks.
func (s *Session) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(StateConnecting)
		conn, err := s.dial(ctx)
		if err != nil {
			s.setState(StateDisconnected)
			s.logger.Warn("Connect failed",
				zap.Duration("retry_in", backoff),
				zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.state = StateConnected
		s.mu.Unlock()
		backoff = initialBackoff

		s.rejoin(ctx)
		s.readLoop(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.state = StateDisconnected
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		s.logger.Info("Connection lost, reconnecting",
			zap.Duration("retry_in", backoff))
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// Close tears down the current connection; Run will return once its read
// loop notices, provided its context is cancelled too.
func (s *Session) Close() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// JoinBoard asks the server to route the board's events to this session.
// Called by the application after OpenBoard; also replayed automatically on
// every reconnect.
func (s *Session) JoinBoard(boardID string) error {
	return s.sendJoin(realtime.EventJoinBoard, realtime.JoinPayload{BoardID: boardID})
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := s.dialer.DialContext(dialCtx, s.url+"?token="+s.token, nil)
	return conn, err
}

// rejoin re-enters the user room and the open board room, then refetches the
// board snapshot to cover the gap while disconnected.
func (s *Session) rejoin(ctx context.Context) {
	if err := s.sendJoin(realtime.EventJoinUser, realtime.JoinPayload{UserID: s.store.userID}); err != nil {
		s.logger.Warn("Failed to join user room", zap.Error(err))
	}

	boardID := s.store.BoardID()
	if boardID == "" {
		return
	}
	if err := s.JoinBoard(boardID); err != nil {
		s.logger.Warn("Failed to rejoin board room", zap.Error(err))
	}
	if err := s.store.Refetch(ctx); err != nil {
		s.logger.Warn("Refetch after reconnect failed", zap.Error(err))
	}
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var event realtime.Event
		if err := json.Unmarshal(message, &event); err != nil {
			s.logger.Warn("Bad event payload", zap.Error(err))
			continue
		}
		s.store.ApplyRemoteEvent(&event)
	}
}

func (s *Session) sendJoin(eventType string, payload realtime.JoinPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(realtime.Event{Type: eventType, Payload: raw})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return &APIError{Kind: ErrKindNetwork, Message: "not connected"}
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
