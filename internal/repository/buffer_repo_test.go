package repository

import (
	"context"
	"testing"

	"anoa.com/ctfarena/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPendingAndSnapshot(t *testing.T) {
	db := newTestDB(t)
	repo := NewBufferRepository(db)
	ctx := context.Background()

	pending, err := repo.Pending(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	userID := uuid.New()
	challengeID := uuid.New()

	require.NoError(t, repo.AppendAttempt(ctx, &model.AttemptBuffer{
		UserID: userID, ChallengeID: challengeID, SubmittedAt: at(1),
	}))
	require.NoError(t, repo.AppendSolve(ctx, &model.SolveBuffer{
		UserID: userID, ChallengeID: challengeID, ChallengeName: "c", Points: 10, SolvedAt: at(1),
	}))

	pending, err = repo.Pending(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	snapshot, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Attempts, 1)
	assert.Len(t, snapshot.Solves, 1)
	assert.Empty(t, snapshot.HintUsages)
	assert.False(t, snapshot.Empty())
}

func TestDeleteSnapshotKeepsLaterRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewBufferRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	challengeID := uuid.New()

	require.NoError(t, repo.AppendAttempt(ctx, &model.AttemptBuffer{
		UserID: userID, ChallengeID: challengeID, SubmittedAt: at(1),
	}))

	snapshot, err := repo.Snapshot(ctx)
	require.NoError(t, err)

	// A new submission lands while the batch is being applied.
	require.NoError(t, repo.AppendAttempt(ctx, &model.AttemptBuffer{
		UserID: userID, ChallengeID: challengeID, SubmittedAt: at(2),
	}))

	require.NoError(t, repo.DeleteSnapshot(ctx, snapshot))

	remaining, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, remaining.Attempts, 1)
	assert.True(t, remaining.Attempts[0].SubmittedAt.Equal(at(2)))
}

func TestChallengeDeletionCascadesIntoLedger(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	challenges := NewChallengeRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "judy")
	keep := seedChallenge(t, db, "keep", 50)
	drop := seedChallenge(t, db, "drop", 80)

	snapshot := &BufferSnapshot{
		Solves: []model.SolveBuffer{
			{UserID: user.ID, ChallengeID: keep.ID, ChallengeName: keep.Name, CategoryID: keep.CategoryID, Points: 50, SolvedAt: at(1)},
			{UserID: user.ID, ChallengeID: drop.ID, ChallengeName: drop.Name, CategoryID: drop.CategoryID, Points: 80, SolvedAt: at(2)},
		},
	}
	_, err := ledger.ApplyBatch(ctx, snapshot)
	require.NoError(t, err)

	require.NoError(t, challenges.DeleteChallenge(ctx, drop.ID))

	var count int64
	require.NoError(t, db.Model(&model.PointsActivity{}).Where("challenge_id = ?", drop.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// Aggregates still carry the deleted solve until the repair pass.
	var fresh model.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	assert.Equal(t, 130, fresh.Points)

	require.NoError(t, ledger.RebuildAggregates(ctx))
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	assert.Equal(t, 50, fresh.Points)
}
