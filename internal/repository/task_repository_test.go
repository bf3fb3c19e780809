package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/domain"
)

func seedTask(t *testing.T, repo TaskRepository, due *time.Time, status domain.TaskStatus) *domain.Task {
	t.Helper()
	task := &domain.Task{
		BoardID:   uuid.New(),
		ColumnID:  uuid.New(),
		CreatorID: uuid.New(),
		Title:     "Write report",
		Priority:  domain.TaskPriorityMedium,
		DueDate:   due,
		Status:    status,
	}
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

func TestFindDueBetween(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	soon := now.Add(2 * time.Hour)
	far := now.Add(72 * time.Hour)
	past := now.Add(-2 * time.Hour)

	inWindow := seedTask(t, repo, &soon, domain.TaskStatusOpen)
	seedTask(t, repo, &far, domain.TaskStatusOpen)
	seedTask(t, repo, &past, domain.TaskStatusOpen)
	seedTask(t, repo, &soon, domain.TaskStatusDone)
	seedTask(t, repo, nil, domain.TaskStatusOpen)

	due, err := repo.FindDueBetween(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, inWindow.ID, due[0].ID)
}

func TestIncrementCommentsCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	task := seedTask(t, repo, nil, domain.TaskStatusOpen)

	require.NoError(t, repo.IncrementCommentsCount(ctx, task.ID, 1))
	require.NoError(t, repo.IncrementCommentsCount(ctx, task.ID, 1))
	require.NoError(t, repo.IncrementCommentsCount(ctx, task.ID, -1))

	loaded, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.CommentsCount)
}

func TestIsActiveMember(t *testing.T) {
	db := newTestDB(t)
	boardRepo := NewBoardRepository(db)
	memberRepo := NewMemberRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	activeID := uuid.New()
	pendingID := uuid.New()

	board := &domain.Board{Title: "Team board", Visibility: domain.BoardVisibilityPrivate, OwnerID: ownerID}
	require.NoError(t, boardRepo.Create(ctx, board))

	require.NoError(t, memberRepo.Create(ctx, &domain.BoardMember{
		BoardID: board.ID, UserID: &activeID, Email: "a@example.com", Role: domain.MemberRoleMember, Status: domain.MemberStatusActive,
	}))
	require.NoError(t, memberRepo.Create(ctx, &domain.BoardMember{
		BoardID: board.ID, UserID: &pendingID, Email: "p@example.com", Role: domain.MemberRoleMember, Status: domain.MemberStatusPending,
	}))

	cases := []struct {
		name   string
		userID uuid.UUID
		want   bool
	}{
		{"owner", ownerID, true},
		{"active member", activeID, true},
		{"pending member", pendingID, false},
		{"stranger", uuid.New(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := memberRepo.IsActiveMember(ctx, board.ID, tc.userID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestBoardFindByUserID(t *testing.T) {
	db := newTestDB(t)
	boardRepo := NewBoardRepository(db)
	memberRepo := NewMemberRepository(db)
	ctx := context.Background()

	userID := uuid.New()

	owned := &domain.Board{Title: "Mine", OwnerID: userID, Visibility: domain.BoardVisibilityPrivate}
	require.NoError(t, boardRepo.Create(ctx, owned))

	joined := &domain.Board{Title: "Shared", OwnerID: uuid.New(), Visibility: domain.BoardVisibilityPrivate}
	require.NoError(t, boardRepo.Create(ctx, joined))
	require.NoError(t, memberRepo.Create(ctx, &domain.BoardMember{
		BoardID: joined.ID, UserID: &userID, Email: "u@example.com", Role: domain.MemberRoleMember, Status: domain.MemberStatusActive,
	}))

	invited := &domain.Board{Title: "Pending", OwnerID: uuid.New(), Visibility: domain.BoardVisibilityPrivate}
	require.NoError(t, boardRepo.Create(ctx, invited))
	require.NoError(t, memberRepo.Create(ctx, &domain.BoardMember{
		BoardID: invited.ID, UserID: &userID, Email: "u@example.com", Role: domain.MemberRoleMember, Status: domain.MemberStatusPending,
	}))

	boards, err := boardRepo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, boards, 2)

	titles := []string{boards[0].Title, boards[1].Title}
	assert.ElementsMatch(t, []string{"Mine", "Shared"}, titles)
}
