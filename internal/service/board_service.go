package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
	"taskflow/internal/realtime"
	"taskflow/internal/repository"
	"taskflow/internal/response"
)

var defaultColumnTitles = []string{"To Do", "In Progress", "Done"}

// BoardService defines board and column business logic
type BoardService interface {
	CreateBoard(ctx context.Context, userID uuid.UUID, req *dto.CreateBoardRequest) (*domain.Board, error)
	GetBoardDetail(ctx context.Context, userID, boardID uuid.UUID) (*dto.BoardDetailResponse, error)
	ListBoards(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
	UpdateBoard(ctx context.Context, userID, boardID uuid.UUID, req *dto.UpdateBoardRequest) (*domain.Board, error)
	DeleteBoard(ctx context.Context, userID, boardID uuid.UUID) error

	CreateColumn(ctx context.Context, userID, boardID uuid.UUID, req *dto.CreateColumnRequest) (*domain.Column, error)
	UpdateColumn(ctx context.Context, userID, columnID uuid.UUID, req *dto.UpdateColumnRequest) (*domain.Column, error)
	DeleteColumn(ctx context.Context, userID, columnID uuid.UUID) error
}

type boardServiceImpl struct {
	boardRepo   repository.BoardRepository
	taskRepo    repository.TaskRepository
	memberRepo  repository.MemberRepository
	broadcaster realtime.Broadcaster
	logger      *zap.Logger
}

// NewBoardService creates a new BoardService
func NewBoardService(
	boardRepo repository.BoardRepository,
	taskRepo repository.TaskRepository,
	memberRepo repository.MemberRepository,
	broadcaster realtime.Broadcaster,
	logger *zap.Logger,
) BoardService {
	return &boardServiceImpl{
		boardRepo:   boardRepo,
		taskRepo:    taskRepo,
		memberRepo:  memberRepo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// CreateBoard creates a board owned by userID with the default column set
func (s *boardServiceImpl) CreateBoard(ctx context.Context, userID uuid.UUID, req *dto.CreateBoardRequest) (*domain.Board, error) {
	visibility := req.Visibility
	if visibility == "" {
		visibility = domain.BoardVisibilityPrivate
	}

	board := &domain.Board{
		Title:       req.Title,
		Description: req.Description,
		Visibility:  visibility,
		OwnerID:     userID,
	}
	if err := s.boardRepo.Create(ctx, board); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create board", err.Error())
	}

	for i, title := range defaultColumnTitles {
		column := &domain.Column{
			BoardID:  board.ID,
			Title:    title,
			Position: i,
		}
		if err := column.SetTaskIDList(nil); err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to encode column order", err.Error())
		}
		if err := s.boardRepo.CreateColumn(ctx, column); err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create default column", err.Error())
		}
		board.Columns = append(board.Columns, *column)
	}

	return board, nil
}

// GetBoardDetail returns the board with columns, members and all its tasks,
// the snapshot a client needs to build or refetch its local projection.
func (s *boardServiceImpl) GetBoardDetail(ctx context.Context, userID, boardID uuid.UUID) (*dto.BoardDetailResponse, error) {
	board, err := s.findAuthorizedBoard(ctx, userID, boardID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.FindByBoardID(ctx, boardID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load tasks", err.Error())
	}

	return &dto.BoardDetailResponse{Board: board, Tasks: tasks}, nil
}

func (s *boardServiceImpl) ListBoards(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	boards, err := s.boardRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list boards", err.Error())
	}
	return boards, nil
}

func (s *boardServiceImpl) UpdateBoard(ctx context.Context, userID, boardID uuid.UUID, req *dto.UpdateBoardRequest) (*domain.Board, error) {
	board, err := s.findAuthorizedBoard(ctx, userID, boardID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, response.NewAppError(response.ErrCodeValidation, "Title cannot be empty", "")
		}
		board.Title = *req.Title
	}
	if req.Description != nil {
		board.Description = *req.Description
	}
	if req.Visibility != nil {
		board.Visibility = *req.Visibility
	}

	if err := s.boardRepo.Update(ctx, board); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update board", err.Error())
	}

	s.broadcaster.Emit(realtime.BoardRoom(board.ID), realtime.EventBoardUpdated, board)
	return board, nil
}

// DeleteBoard removes a board; only the owner may delete
func (s *boardServiceImpl) DeleteBoard(ctx context.Context, userID, boardID uuid.UUID) error {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeNotFound, "Board not found", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Failed to load board", err.Error())
	}
	if board.OwnerID != userID {
		return response.NewAppError(response.ErrCodeForbidden, "Only the owner can delete a board", "")
	}

	if err := s.boardRepo.Delete(ctx, boardID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to delete board", err.Error())
	}
	return nil
}

// CreateColumn appends a column at the tail of the board
func (s *boardServiceImpl) CreateColumn(ctx context.Context, userID, boardID uuid.UUID, req *dto.CreateColumnRequest) (*domain.Column, error) {
	if _, err := s.findAuthorizedBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}

	columns, err := s.boardRepo.FindColumnsByBoardID(ctx, boardID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load columns", err.Error())
	}

	column := &domain.Column{
		BoardID:  boardID,
		Title:    req.Title,
		Position: len(columns),
	}
	if err := column.SetTaskIDList(nil); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to encode column order", err.Error())
	}
	if err := s.boardRepo.CreateColumn(ctx, column); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create column", err.Error())
	}

	s.emitBoardUpdated(ctx, boardID)
	return column, nil
}

func (s *boardServiceImpl) UpdateColumn(ctx context.Context, userID, columnID uuid.UUID, req *dto.UpdateColumnRequest) (*domain.Column, error) {
	column, err := s.boardRepo.FindColumnByID(ctx, columnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Column not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load column", err.Error())
	}
	if _, err := s.findAuthorizedBoard(ctx, userID, column.BoardID); err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, response.NewAppError(response.ErrCodeValidation, "Title cannot be empty", "")
		}
		column.Title = *req.Title
	}
	if req.Position != nil {
		column.Position = *req.Position
	}

	if err := s.boardRepo.UpdateColumn(ctx, column); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update column", err.Error())
	}

	s.emitBoardUpdated(ctx, column.BoardID)
	return column, nil
}

// DeleteColumn refuses to delete a column that still holds tasks
func (s *boardServiceImpl) DeleteColumn(ctx context.Context, userID, columnID uuid.UUID) error {
	column, err := s.boardRepo.FindColumnByID(ctx, columnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeNotFound, "Column not found", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Failed to load column", err.Error())
	}
	if _, err := s.findAuthorizedBoard(ctx, userID, column.BoardID); err != nil {
		return err
	}

	ids, err := column.TaskIDList()
	if err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to decode column order", err.Error())
	}
	if len(ids) > 0 {
		return response.NewAppError(response.ErrCodeValidation, "Column still contains tasks", "")
	}

	if err := s.boardRepo.DeleteColumn(ctx, columnID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to delete column", err.Error())
	}

	s.emitBoardUpdated(ctx, column.BoardID)
	return nil
}

func (s *boardServiceImpl) findAuthorizedBoard(ctx context.Context, userID, boardID uuid.UUID) (*domain.Board, error) {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Board not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load board", err.Error())
	}

	ok, err := s.memberRepo.IsActiveMember(ctx, boardID, userID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to check board membership", err.Error())
	}
	if !ok && board.Visibility != domain.BoardVisibilityPublic {
		return nil, response.NewAppError(response.ErrCodeForbidden, "Not a member of this board", "")
	}
	return board, nil
}

func (s *boardServiceImpl) emitBoardUpdated(ctx context.Context, boardID uuid.UUID) {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		s.logger.Error("Failed to load board for broadcast",
			zap.String("boardId", boardID.String()),
			zap.Error(err))
		return
	}
	s.broadcaster.Emit(realtime.BoardRoom(boardID), realtime.EventBoardUpdated, board)
}
