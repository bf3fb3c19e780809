package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/domain"
)

// BoardRepository defines persistence operations for boards and columns
type BoardRepository interface {
	Create(ctx context.Context, board *domain.Board) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
	Update(ctx context.Context, board *domain.Board) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateColumn(ctx context.Context, column *domain.Column) error
	FindColumnByID(ctx context.Context, id uuid.UUID) (*domain.Column, error)
	FindColumnsByBoardID(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error)
	UpdateColumn(ctx context.Context, column *domain.Column) error
	DeleteColumn(ctx context.Context, id uuid.UUID) error
}

type boardRepository struct {
	db *gorm.DB
}

// NewBoardRepository creates a new BoardRepository backed by gorm
func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &boardRepository{db: db}
}

func (r *boardRepository) Create(ctx context.Context, board *domain.Board) error {
	return r.db.WithContext(ctx).Create(board).Error
}

func (r *boardRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	var board domain.Board
	err := r.db.WithContext(ctx).
		Preload("Columns", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Members").
		First(&board, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *boardRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	var boards []*domain.Board
	err := r.db.WithContext(ctx).
		Joins("LEFT JOIN board_members ON board_members.board_id = boards.id").
		Where("boards.owner_id = ? OR (board_members.user_id = ? AND board_members.status = ?)",
			userID, userID, domain.MemberStatusActive).
		Group("boards.id").
		Order("boards.created_at DESC").
		Find(&boards).Error
	if err != nil {
		return nil, err
	}
	return boards, nil
}

func (r *boardRepository) Update(ctx context.Context, board *domain.Board) error {
	return r.db.WithContext(ctx).Save(board).Error
}

func (r *boardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Board{}, "id = ?", id).Error
}

func (r *boardRepository) CreateColumn(ctx context.Context, column *domain.Column) error {
	return r.db.WithContext(ctx).Create(column).Error
}

func (r *boardRepository) FindColumnByID(ctx context.Context, id uuid.UUID) (*domain.Column, error) {
	var column domain.Column
	err := r.db.WithContext(ctx).First(&column, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &column, nil
}

func (r *boardRepository) FindColumnsByBoardID(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error) {
	var columns []*domain.Column
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("position ASC").
		Find(&columns).Error
	if err != nil {
		return nil, err
	}
	return columns, nil
}

func (r *boardRepository) UpdateColumn(ctx context.Context, column *domain.Column) error {
	return r.db.WithContext(ctx).Save(column).Error
}

func (r *boardRepository) DeleteColumn(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Column{}, "id = ?", id).Error
}
