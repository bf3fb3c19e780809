package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
)

// API is the slice of the server surface the store needs. *APIClient
// implements it; tests substitute their own.
type API interface {
	GetBoardDetail(ctx context.Context, boardID string) (*dto.BoardDetailResponse, error)
	CreateTask(ctx context.Context, req *dto.CreateTaskRequest) (*domain.Task, error)
	UpdateTask(ctx context.Context, taskID string, req *dto.UpdateTaskRequest) (*domain.Task, error)
	MoveTask(ctx context.Context, taskID string, req *dto.MoveTaskRequest) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	UpdateBoard(ctx context.Context, boardID string, req *dto.UpdateBoardRequest) (*domain.Board, error)
	CreateComment(ctx context.Context, taskID string, req *dto.CreateCommentRequest) (*domain.Comment, error)
	MarkNotificationRead(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListNotifications(ctx context.Context, unreadOnly bool) ([]*domain.Notification, error)
}

// Callbacks are optional hooks the embedding application can set before the
// store is used. All callbacks run outside the store lock.
type Callbacks struct {
	// OnChange fires after every state change, local or remote
	OnChange func()
	// OnMutationFailed fires when an optimistic mutation was rolled back
	OnMutationFailed func(op string, err error)
	// OnRemovedFromBoard fires when the server evicted this user
	OnRemovedFromBoard func(boardID, boardName string)
}

// Store is the client-side reconciling state store. It applies mutations
// optimistically, sends them to the server in the background, and reconciles
// or rolls back when the durable result arrives. Remote events for an entity
// with a pending local mutation are ignored; the durable response for that
// mutation is the authority.
type Store struct {
	api    API
	userID string
	logger *zap.Logger

	mu            sync.Mutex
	board         *BoardState
	notifications []*domain.Notification

	// pending holds refcounts of in-flight local mutations per entity id
	pending map[string]int

	wg        sync.WaitGroup
	callbacks Callbacks
}

// NewStore creates a store for one authenticated user backed by api
func NewStore(api API, userID string, logger *zap.Logger) *Store {
	return &Store{
		api:     api,
		userID:  userID,
		logger:  logger,
		pending: make(map[string]int),
	}
}

// SetCallbacks installs the application hooks. Call before any mutation.
func (s *Store) SetCallbacks(cb Callbacks) {
	s.callbacks = cb
}

// OpenBoard fetches the board snapshot and replaces the local projection.
// Only events for the open board are merged afterwards.
func (s *Store) OpenBoard(ctx context.Context, boardID string) error {
	detail, err := s.api.GetBoardDetail(ctx, boardID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.board = boardStateFromDetail(detail)
	s.mu.Unlock()

	s.notifyChange()
	return nil
}

// CloseBoard drops the local board projection
func (s *Store) CloseBoard() {
	s.mu.Lock()
	s.board = nil
	s.mu.Unlock()
	s.notifyChange()
}

// Board returns a deep copy of the current board projection, or nil when no
// board is open. Callers may inspect it freely without holding any lock.
func (s *Store) Board() *BoardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.clone()
}

// BoardID returns the id of the open board, or empty
func (s *Store) BoardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return ""
	}
	return s.board.ID
}

// Notifications returns the local notification list, newest first
func (s *Store) Notifications() []*domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// RefreshNotifications replaces the local notification list from the server
func (s *Store) RefreshNotifications(ctx context.Context) error {
	notifications, err := s.api.ListNotifications(ctx, false)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.notifications = notifications
	s.mu.Unlock()
	s.notifyChange()
	return nil
}

// Refetch replaces the projection of the open board with a fresh server
// snapshot. Used after reconnects and whenever the local state is known to
// have drifted (authorization or not-found failures on a mutation).
func (s *Store) Refetch(ctx context.Context) error {
	boardID := s.BoardID()
	if boardID == "" {
		return nil
	}
	return s.OpenBoard(ctx, boardID)
}

// Wait blocks until all in-flight mutation writes have finished. Intended for
// tests and graceful shutdown.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) notifyChange() {
	if s.callbacks.OnChange != nil {
		s.callbacks.OnChange()
	}
}

func (s *Store) reportFailure(op string, err error) {
	s.logger.Warn("Mutation failed",
		zap.String("op", op),
		zap.Error(err))
	if s.callbacks.OnMutationFailed != nil {
		s.callbacks.OnMutationFailed(op, err)
	}
}

func (s *Store) addPending(id string) {
	s.pending[id]++
}

func (s *Store) releasePending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releasePendingLocked(id)
}

func (s *Store) releasePendingLocked(id string) {
	if s.pending[id] <= 1 {
		delete(s.pending, id)
		return
	}
	s.pending[id]--
}

func (s *Store) isPendingLocked(id string) bool {
	return s.pending[id] > 0
}

// handleDriftFailure refetches the board when the server rejected a mutation
// in a way that proves the local projection is stale.
func (s *Store) handleDriftFailure(err error) {
	kind := KindOf(err)
	if kind != ErrKindNotAuthorized && kind != ErrKindNotFound {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if refetchErr := s.Refetch(ctx); refetchErr != nil {
		s.logger.Warn("Refetch after drift failed", zap.Error(refetchErr))
	}
}
