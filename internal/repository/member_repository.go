package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/domain"
)

// MemberRepository defines persistence operations for board membership
type MemberRepository interface {
	Create(ctx context.Context, member *domain.BoardMember) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.BoardMember, error)
	FindByBoardID(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardMember, error)
	FindByBoardAndUser(ctx context.Context, boardID, userID uuid.UUID) (*domain.BoardMember, error)
	Update(ctx context.Context, member *domain.BoardMember) error
	Delete(ctx context.Context, id uuid.UUID) error
	IsActiveMember(ctx context.Context, boardID, userID uuid.UUID) (bool, error)
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new MemberRepository backed by gorm
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *domain.BoardMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *memberRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.BoardMember, error) {
	var member domain.BoardMember
	err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) FindByBoardID(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardMember, error) {
	var members []*domain.BoardMember
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) FindByBoardAndUser(ctx context.Context, boardID, userID uuid.UUID) (*domain.BoardMember, error) {
	var member domain.BoardMember
	err := r.db.WithContext(ctx).
		First(&member, "board_id = ? AND user_id = ?", boardID, userID).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) Update(ctx context.Context, member *domain.BoardMember) error {
	return r.db.WithContext(ctx).Save(member).Error
}

func (r *memberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.BoardMember{}, "id = ?", id).Error
}

// IsActiveMember reports whether userID is the board owner or an active
// member. Membership is the authorization boundary for room joins.
func (r *memberRepository) IsActiveMember(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Board{}).
		Where("id = ? AND owner_id = ?", boardID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = r.db.WithContext(ctx).Model(&domain.BoardMember{}).
		Where("board_id = ? AND user_id = ? AND status = ?", boardID, userID, domain.MemberStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
