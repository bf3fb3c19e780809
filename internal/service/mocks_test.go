package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskflow/internal/domain"
)

type mockTaskRepo struct {
	CreateFunc                 func(ctx context.Context, task *domain.Task) error
	FindByIDFunc               func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	FindByBoardIDFunc          func(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error)
	UpdateFunc                 func(ctx context.Context, task *domain.Task) error
	DeleteFunc                 func(ctx context.Context, id uuid.UUID) error
	FindDueBetweenFunc         func(ctx context.Context, from, to time.Time) ([]*domain.Task, error)
	IncrementCommentsCountFunc func(ctx context.Context, id uuid.UUID, delta int) error
}

func (m *mockTaskRepo) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) FindByBoardID(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error) {
	if m.FindByBoardIDFunc != nil {
		return m.FindByBoardIDFunc(ctx, boardID)
	}
	return nil, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *mockTaskRepo) FindDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Task, error) {
	if m.FindDueBetweenFunc != nil {
		return m.FindDueBetweenFunc(ctx, from, to)
	}
	return nil, nil
}

func (m *mockTaskRepo) IncrementCommentsCount(ctx context.Context, id uuid.UUID, delta int) error {
	if m.IncrementCommentsCountFunc != nil {
		return m.IncrementCommentsCountFunc(ctx, id, delta)
	}
	return nil
}

type mockBoardRepo struct {
	CreateFunc               func(ctx context.Context, board *domain.Board) error
	FindByIDFunc             func(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	FindByUserIDFunc         func(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
	UpdateFunc               func(ctx context.Context, board *domain.Board) error
	DeleteFunc               func(ctx context.Context, id uuid.UUID) error
	CreateColumnFunc         func(ctx context.Context, column *domain.Column) error
	FindColumnByIDFunc       func(ctx context.Context, id uuid.UUID) (*domain.Column, error)
	FindColumnsByBoardIDFunc func(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error)
	UpdateColumnFunc         func(ctx context.Context, column *domain.Column) error
	DeleteColumnFunc         func(ctx context.Context, id uuid.UUID) error
}

func (m *mockBoardRepo) Create(ctx context.Context, board *domain.Board) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, board)
	}
	return nil
}

func (m *mockBoardRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBoardRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockBoardRepo) Update(ctx context.Context, board *domain.Board) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, board)
	}
	return nil
}

func (m *mockBoardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *mockBoardRepo) CreateColumn(ctx context.Context, column *domain.Column) error {
	if m.CreateColumnFunc != nil {
		return m.CreateColumnFunc(ctx, column)
	}
	return nil
}

func (m *mockBoardRepo) FindColumnByID(ctx context.Context, id uuid.UUID) (*domain.Column, error) {
	if m.FindColumnByIDFunc != nil {
		return m.FindColumnByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBoardRepo) FindColumnsByBoardID(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error) {
	if m.FindColumnsByBoardIDFunc != nil {
		return m.FindColumnsByBoardIDFunc(ctx, boardID)
	}
	return nil, nil
}

func (m *mockBoardRepo) UpdateColumn(ctx context.Context, column *domain.Column) error {
	if m.UpdateColumnFunc != nil {
		return m.UpdateColumnFunc(ctx, column)
	}
	return nil
}

func (m *mockBoardRepo) DeleteColumn(ctx context.Context, id uuid.UUID) error {
	if m.DeleteColumnFunc != nil {
		return m.DeleteColumnFunc(ctx, id)
	}
	return nil
}

type mockMemberRepo struct {
	CreateFunc             func(ctx context.Context, member *domain.BoardMember) error
	FindByIDFunc           func(ctx context.Context, id uuid.UUID) (*domain.BoardMember, error)
	FindByBoardIDFunc      func(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardMember, error)
	FindByBoardAndUserFunc func(ctx context.Context, boardID, userID uuid.UUID) (*domain.BoardMember, error)
	UpdateFunc             func(ctx context.Context, member *domain.BoardMember) error
	DeleteFunc             func(ctx context.Context, id uuid.UUID) error
	IsActiveMemberFunc     func(ctx context.Context, boardID, userID uuid.UUID) (bool, error)
}

func (m *mockMemberRepo) Create(ctx context.Context, member *domain.BoardMember) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, member)
	}
	return nil
}

func (m *mockMemberRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.BoardMember, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockMemberRepo) FindByBoardID(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardMember, error) {
	if m.FindByBoardIDFunc != nil {
		return m.FindByBoardIDFunc(ctx, boardID)
	}
	return nil, nil
}

func (m *mockMemberRepo) FindByBoardAndUser(ctx context.Context, boardID, userID uuid.UUID) (*domain.BoardMember, error) {
	if m.FindByBoardAndUserFunc != nil {
		return m.FindByBoardAndUserFunc(ctx, boardID, userID)
	}
	return nil, nil
}

func (m *mockMemberRepo) Update(ctx context.Context, member *domain.BoardMember) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, member)
	}
	return nil
}

func (m *mockMemberRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *mockMemberRepo) IsActiveMember(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	if m.IsActiveMemberFunc != nil {
		return m.IsActiveMemberFunc(ctx, boardID, userID)
	}
	return true, nil
}

type mockCommentRepo struct {
	CreateFunc       func(ctx context.Context, comment *domain.Comment) error
	FindByIDFunc     func(ctx context.Context, id uuid.UUID) (*domain.Comment, error)
	FindByTaskIDFunc func(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error)
	DeleteFunc       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, comment)
	}
	return nil
}

func (m *mockCommentRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockCommentRepo) FindByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	if m.FindByTaskIDFunc != nil {
		return m.FindByTaskIDFunc(ctx, taskID)
	}
	return nil, nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

type mockNotificationRepo struct {
	CreateFunc                  func(ctx context.Context, notification *domain.Notification) error
	FindByUserIDFunc            func(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) ([]*domain.Notification, int64, error)
	MarkAsReadFunc              func(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error)
	MarkAllAsReadFunc           func(ctx context.Context, userID uuid.UUID) (int64, error)
	HasDeadlineNotificationFunc func(ctx context.Context, userID, taskID uuid.UUID) (bool, error)
	DeleteFunc                  func(ctx context.Context, id, userID uuid.UUID) error
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *domain.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, notification)
	}
	return nil
}

func (m *mockNotificationRepo) FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) ([]*domain.Notification, int64, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, userID, page, limit, unreadOnly)
	}
	return nil, 0, nil
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	if m.MarkAsReadFunc != nil {
		return m.MarkAsReadFunc(ctx, id, userID)
	}
	return nil, nil
}

func (m *mockNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.MarkAllAsReadFunc != nil {
		return m.MarkAllAsReadFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockNotificationRepo) HasDeadlineNotification(ctx context.Context, userID, taskID uuid.UUID) (bool, error) {
	if m.HasDeadlineNotificationFunc != nil {
		return m.HasDeadlineNotificationFunc(ctx, userID, taskID)
	}
	return false, nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, userID)
	}
	return nil
}

type emitted struct {
	Room      string
	EventType string
	Payload   interface{}
}

type mockBroadcaster struct {
	mu     sync.Mutex
	Events []emitted
}

func (m *mockBroadcaster) Emit(room, eventType string, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, emitted{Room: room, EventType: eventType, Payload: payload})
}

func (m *mockBroadcaster) EmitToUser(userID uuid.UUID, eventType string, payload interface{}) {
	m.Emit("user:"+userID.String(), eventType, payload)
}

func (m *mockBroadcaster) eventsOfType(eventType string) []emitted {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []emitted
	for _, e := range m.Events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type mockEvictor struct {
	mu        sync.Mutex
	Evictions []string
}

func (m *mockEvictor) EvictUserFromRoom(userID uuid.UUID, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Evictions = append(m.Evictions, userID.String()+"@"+room)
}
