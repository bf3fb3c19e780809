package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
	"taskflow/internal/realtime"
	"taskflow/internal/repository"
	"taskflow/internal/response"
)

// MemberService defines board membership business logic
type MemberService interface {
	InviteMember(ctx context.Context, userID, boardID uuid.UUID, req *dto.InviteMemberRequest) (*domain.BoardMember, error)
	RespondInvite(ctx context.Context, userID, memberID uuid.UUID, req *dto.RespondInviteRequest) (*domain.BoardMember, error)
	UpdateMemberRole(ctx context.Context, userID, memberID uuid.UUID, req *dto.UpdateMemberRoleRequest) (*domain.BoardMember, error)
	RemoveMember(ctx context.Context, userID, memberID uuid.UUID) error
	ListMembers(ctx context.Context, userID, boardID uuid.UUID) ([]*domain.BoardMember, error)
}

type memberServiceImpl struct {
	memberRepo          repository.MemberRepository
	boardRepo           repository.BoardRepository
	notificationService NotificationService
	broadcaster         realtime.Broadcaster
	evictor             realtime.Evictor
	logger              *zap.Logger
}

// NewMemberService creates a new MemberService
func NewMemberService(
	memberRepo repository.MemberRepository,
	boardRepo repository.BoardRepository,
	notificationService NotificationService,
	broadcaster realtime.Broadcaster,
	evictor realtime.Evictor,
	logger *zap.Logger,
) MemberService {
	return &memberServiceImpl{
		memberRepo:          memberRepo,
		boardRepo:           boardRepo,
		notificationService: notificationService,
		broadcaster:         broadcaster,
		evictor:             evictor,
		logger:              logger,
	}
}

// InviteMember creates a pending membership. The invitee is notified on their
// user room if they are already registered; the board room learns about the
// membership change either way.
func (s *memberServiceImpl) InviteMember(ctx context.Context, userID, boardID uuid.UUID, req *dto.InviteMemberRequest) (*domain.BoardMember, error) {
	board, err := s.requireAdmin(ctx, boardID, userID)
	if err != nil {
		return nil, err
	}

	if req.UserID != nil {
		if *req.UserID == board.OwnerID {
			return nil, response.NewAppError(response.ErrCodeValidation, "The owner is already a member", "")
		}
		existing, err := s.memberRepo.FindByBoardAndUser(ctx, boardID, *req.UserID)
		if err == nil && existing.Status != domain.MemberStatusRejected {
			return nil, response.NewAppError(response.ErrCodeAlreadyExists, "User is already invited", "")
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to check existing membership", err.Error())
		}
	}

	role := req.Role
	if role == "" {
		role = domain.MemberRoleMember
	}

	member := &domain.BoardMember{
		BoardID: boardID,
		UserID:  req.UserID,
		Name:    req.Name,
		Email:   req.Email,
		Role:    role,
		Status:  domain.MemberStatusPending,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create membership", err.Error())
	}

	if req.UserID != nil {
		notification := &domain.Notification{
			UserID:  *req.UserID,
			Type:    domain.NotificationMemberInvited,
			BoardID: boardID,
			Message: fmt.Sprintf("You were invited to %q", board.Title),
		}
		if _, err := s.notificationService.CreateAndPush(ctx, notification); err != nil {
			s.logger.Warn("Failed to push invite notification",
				zap.String("userId", req.UserID.String()),
				zap.Error(err))
		}
	}

	s.emitBoardUpdated(ctx, boardID)
	return member, nil
}

// RespondInvite moves a pending membership to active or rejected. Only the
// invited user may respond, and only once.
func (s *memberServiceImpl) RespondInvite(ctx context.Context, userID, memberID uuid.UUID, req *dto.RespondInviteRequest) (*domain.BoardMember, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Membership not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load membership", err.Error())
	}
	if member.UserID == nil || *member.UserID != userID {
		return nil, response.NewAppError(response.ErrCodeForbidden, "Not your invitation", "")
	}
	if member.Status != domain.MemberStatusPending {
		return nil, response.NewAppError(response.ErrCodeValidation, "Invitation was already answered", "")
	}

	if req.Accept {
		member.Status = domain.MemberStatusActive
	} else {
		member.Status = domain.MemberStatusRejected
	}
	if err := s.memberRepo.Update(ctx, member); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update membership", err.Error())
	}

	s.emitBoardUpdated(ctx, member.BoardID)
	return member, nil
}

// UpdateMemberRole changes a member's role; owner only
func (s *memberServiceImpl) UpdateMemberRole(ctx context.Context, userID, memberID uuid.UUID, req *dto.UpdateMemberRoleRequest) (*domain.BoardMember, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Membership not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load membership", err.Error())
	}

	board, err := s.boardRepo.FindByID(ctx, member.BoardID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load board", err.Error())
	}
	if board.OwnerID != userID {
		return nil, response.NewAppError(response.ErrCodeForbidden, "Only the owner can change roles", "")
	}

	member.Role = req.Role
	if err := s.memberRepo.Update(ctx, member); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update membership", err.Error())
	}

	s.emitBoardUpdated(ctx, member.BoardID)
	return member, nil
}

// RemoveMember deletes the membership, tells the removed user directly on
// their user room, evicts their sessions from the board room so they stop
// receiving its events, and updates the board room.
func (s *memberServiceImpl) RemoveMember(ctx context.Context, userID, memberID uuid.UUID) error {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeNotFound, "Membership not found", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Failed to load membership", err.Error())
	}

	board, err := s.requireAdmin(ctx, member.BoardID, userID)
	if err != nil {
		// A member may always remove themselves
		if member.UserID == nil || *member.UserID != userID {
			return err
		}
		board, err = s.boardRepo.FindByID(ctx, member.BoardID)
		if err != nil {
			return response.NewAppError(response.ErrCodeInternal, "Failed to load board", err.Error())
		}
	}

	if err := s.memberRepo.Delete(ctx, memberID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to delete membership", err.Error())
	}

	if member.UserID != nil {
		removed := *member.UserID
		notification := &domain.Notification{
			UserID:  removed,
			Type:    domain.NotificationMemberRemoved,
			BoardID: member.BoardID,
			Message: fmt.Sprintf("You were removed from %q", board.Title),
		}
		if _, err := s.notificationService.CreateAndPush(ctx, notification); err != nil {
			s.logger.Warn("Failed to push removal notification",
				zap.String("userId", removed.String()),
				zap.Error(err))
		}

		s.broadcaster.EmitToUser(removed, realtime.EventYouWereRemoved, realtime.RemovedPayload{
			BoardID:   member.BoardID,
			BoardName: board.Title,
		})
		s.evictor.EvictUserFromRoom(removed, realtime.BoardRoom(member.BoardID))
	}

	s.emitBoardUpdated(ctx, member.BoardID)
	return nil
}

func (s *memberServiceImpl) ListMembers(ctx context.Context, userID, boardID uuid.UUID) ([]*domain.BoardMember, error) {
	ok, err := s.memberRepo.IsActiveMember(ctx, boardID, userID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to check board membership", err.Error())
	}
	if !ok {
		return nil, response.NewAppError(response.ErrCodeForbidden, "Not a member of this board", "")
	}
	return s.memberRepo.FindByBoardID(ctx, boardID)
}

// requireAdmin allows the owner and admin members
func (s *memberServiceImpl) requireAdmin(ctx context.Context, boardID, userID uuid.UUID) (*domain.Board, error) {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Board not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load board", err.Error())
	}
	if board.OwnerID == userID {
		return board, nil
	}

	member, err := s.memberRepo.FindByBoardAndUser(ctx, boardID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeForbidden, "Not a member of this board", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load membership", err.Error())
	}
	if member.Status != domain.MemberStatusActive || member.Role != domain.MemberRoleAdmin {
		return nil, response.NewAppError(response.ErrCodeForbidden, "Admin role required", "")
	}
	return board, nil
}

func (s *memberServiceImpl) emitBoardUpdated(ctx context.Context, boardID uuid.UUID) {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		s.logger.Error("Failed to load board for broadcast",
			zap.String("boardId", boardID.String()),
			zap.Error(err))
		return
	}
	s.broadcaster.Emit(realtime.BoardRoom(boardID), realtime.EventBoardUpdated, board)
}
