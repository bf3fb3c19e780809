package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
	"taskflow/internal/realtime"
)

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second))
	assert.Equal(t, 16*time.Second, nextBackoff(8*time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(16*time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(maxBackoff))
}

func TestSendJoinWhileDisconnected(t *testing.T) {
	store := NewStore(&mockAPI{}, "user-1", zap.NewNop())
	session := NewSession("ws://localhost:1", "token", store, zap.NewNop())

	err := session.JoinBoard("board-1")
	require.Error(t, err)
	assert.Equal(t, ErrKindNetwork, KindOf(err))
	assert.Equal(t, StateDisconnected, session.State())
}

func TestReadLoopWatcherStopsWithConnection(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	store := NewStore(&mockAPI{}, "user-1", zap.NewNop())
	session := NewSession(url, "token", store, zap.NewNop())

	base := runtime.NumGoroutine()

	// The session context stays live across many connections; each read
	// loop's watcher must still exit with its own connection
	for i := 0; i < 5; i++ {
		conn, _, err := session.dialer.Dial(url, nil)
		require.NoError(t, err)
		done := make(chan struct{})
		go func() {
			session.readLoop(context.Background(), conn)
			close(done)
		}()
		conn.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("read loop did not stop after the connection closed")
		}
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= base+2
	}, 2*time.Second, 50*time.Millisecond)
}

func TestSessionRejoinsRoomsAndRefetchesOnConnect(t *testing.T) {
	f := newFixture(t)

	refetched := make(chan string, 4)
	f.api.GetBoardDetailFunc = func(ctx context.Context, boardID string) (*dto.BoardDetailResponse, error) {
		refetched <- boardID
		return &dto.BoardDetailResponse{
			Board: &domain.Board{
				BaseModel: domain.BaseModel{ID: f.boardID},
				Title:     "Sprint board",
				OwnerID:   f.userID,
			},
		}, nil
	}

	joins := make(chan realtime.Event, 8)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event realtime.Event
			if json.Unmarshal(message, &event) == nil {
				joins <- event
			}
		}
	}))
	defer server.Close()

	session := NewSession("ws"+strings.TrimPrefix(server.URL, "http"), "token", f.store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		session.Run(ctx)
		close(done)
	}()

	waitEvent := func() realtime.Event {
		t.Helper()
		select {
		case event := <-joins:
			return event
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a join event")
			return realtime.Event{}
		}
	}

	userJoin := waitEvent()
	assert.Equal(t, realtime.EventJoinUser, userJoin.Type)
	var userPayload realtime.JoinPayload
	require.NoError(t, json.Unmarshal(userJoin.Payload, &userPayload))
	assert.Equal(t, f.userID.String(), userPayload.UserID)

	boardJoin := waitEvent()
	assert.Equal(t, realtime.EventJoinBoard, boardJoin.Type)
	var boardPayload realtime.JoinPayload
	require.NoError(t, json.Unmarshal(boardJoin.Payload, &boardPayload))
	assert.Equal(t, f.boardID.String(), boardPayload.BoardID)

	select {
	case boardID := <-refetched:
		assert.Equal(t, f.boardID.String(), boardID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the post-connect refetch")
	}
	assert.Equal(t, StateConnected, session.State())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after cancel")
	}
	assert.Equal(t, StateDisconnected, session.State())
}
