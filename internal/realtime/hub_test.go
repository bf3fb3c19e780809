package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return NewHub(nil, zap.NewNop(), nil)
}

func newTestSession(userID uuid.UUID) *Session {
	return &Session{
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
		logger: zap.NewNop(),
	}
}

func receive(t *testing.T, s *Session) *Event {
	t.Helper()
	select {
	case data := <-s.send:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return &event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, s *Session) {
	t.Helper()
	select {
	case data := <-s.send:
		t.Fatalf("unexpected event: %s", data)
	default:
	}
}

func TestEmitReachesOnlyRoomMembers(t *testing.T) {
	hub := newTestHub()
	boardA := uuid.New()
	boardB := uuid.New()

	inA := newTestSession(uuid.New())
	inB := newTestSession(uuid.New())
	hub.Join(inA, BoardRoom(boardA))
	hub.Join(inB, BoardRoom(boardB))

	hub.Emit(BoardRoom(boardA), EventTaskCreated, map[string]string{"title": "hello"})

	event := receive(t, inA)
	assert.Equal(t, EventTaskCreated, event.Type)
	assert.Equal(t, BoardRoom(boardA), event.Room)
	assertNoEvent(t, inB)
}

func TestJoinBoardImplicitlyLeavesPreviousBoardRoom(t *testing.T) {
	hub := newTestHub()
	boardA := uuid.New()
	boardB := uuid.New()
	s := newTestSession(uuid.New())

	hub.Join(s, BoardRoom(boardA))
	hub.Join(s, BoardRoom(boardB))

	hub.Emit(BoardRoom(boardA), EventTaskUpdated, nil)
	assertNoEvent(t, s)

	hub.Emit(BoardRoom(boardB), EventTaskUpdated, nil)
	event := receive(t, s)
	assert.Equal(t, BoardRoom(boardB), event.Room)
}

func TestUserRoomSurvivesBoardSwitch(t *testing.T) {
	hub := newTestHub()
	userID := uuid.New()
	s := newTestSession(userID)

	hub.Join(s, UserRoom(userID))
	hub.Join(s, BoardRoom(uuid.New()))
	hub.Join(s, BoardRoom(uuid.New()))

	hub.EmitToUser(userID, EventNewNotification, map[string]string{"message": "hi"})
	event := receive(t, s)
	assert.Equal(t, EventNewNotification, event.Type)
}

func TestUnregisterRemovesSessionEverywhere(t *testing.T) {
	hub := newTestHub()
	userID := uuid.New()
	boardID := uuid.New()
	s := newTestSession(userID)

	hub.Join(s, UserRoom(userID))
	hub.Join(s, BoardRoom(boardID))
	hub.Unregister(s)

	hub.Emit(BoardRoom(boardID), EventTaskCreated, nil)
	hub.EmitToUser(userID, EventNewNotification, nil)
	assertNoEvent(t, s)
}

func TestEvictUserFromRoom(t *testing.T) {
	hub := newTestHub()
	boardID := uuid.New()
	removed := uuid.New()
	staying := uuid.New()

	removedA := newTestSession(removed)
	removedB := newTestSession(removed)
	other := newTestSession(staying)
	hub.Join(removedA, BoardRoom(boardID))
	hub.Join(removedB, BoardRoom(boardID))
	hub.Join(other, BoardRoom(boardID))

	hub.EvictUserFromRoom(removed, BoardRoom(boardID))

	hub.Emit(BoardRoom(boardID), EventBoardUpdated, nil)
	assertNoEvent(t, removedA)
	assertNoEvent(t, removedB)
	receive(t, other)
}

func TestAtMostOnceDelivery(t *testing.T) {
	// A session joining after the emit must not see it
	hub := newTestHub()
	boardID := uuid.New()
	early := newTestSession(uuid.New())
	hub.Join(early, BoardRoom(boardID))

	hub.Emit(BoardRoom(boardID), EventTaskCreated, nil)

	late := newTestSession(uuid.New())
	hub.Join(late, BoardRoom(boardID))

	receive(t, early)
	assertNoEvent(t, late)
}

func TestSlowSessionIsDropped(t *testing.T) {
	hub := newTestHub()
	boardID := uuid.New()

	slow := &Session{
		send:   make(chan []byte, 1),
		userID: uuid.New(),
		logger: zap.NewNop(),
	}
	healthy := newTestSession(uuid.New())
	hub.Join(slow, BoardRoom(boardID))
	hub.Join(healthy, BoardRoom(boardID))

	hub.Emit(BoardRoom(boardID), EventTaskCreated, nil)
	hub.Emit(BoardRoom(boardID), EventTaskUpdated, nil)

	// The healthy session got both; the slow one was dropped on overflow
	receive(t, healthy)
	receive(t, healthy)

	hub.Emit(BoardRoom(boardID), EventTaskDeleted, nil)
	receive(t, healthy)

	// Drained events stop at the overflow point; the channel is closed
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)
}

func TestRedisBridgeDeliversAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	defer clientB.Close()

	hubA := NewHub(clientA, zap.NewNop(), nil)
	hubB := NewHub(clientB, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hubA.Run(ctx)
	go hubB.Run(ctx)

	boardID := uuid.New()
	local := newTestSession(uuid.New())
	remote := newTestSession(uuid.New())
	hubA.Join(local, BoardRoom(boardID))
	hubB.Join(remote, BoardRoom(boardID))

	// Give both bridges time to establish their subscriptions
	time.Sleep(200 * time.Millisecond)

	hubA.Emit(BoardRoom(boardID), EventTaskCreated, map[string]string{"title": "bridged"})

	localEvent := receive(t, local)
	remoteEvent := receive(t, remote)
	assert.Equal(t, EventTaskCreated, localEvent.Type)
	assert.Equal(t, EventTaskCreated, remoteEvent.Type)

	// The origin skip prevents a second local delivery via the bridge
	time.Sleep(100 * time.Millisecond)
	assertNoEvent(t, local)
}
