package service

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/ctfarena/internal/cache"
	"anoa.com/ctfarena/internal/dto"
	"anoa.com/ctfarena/internal/model"
	"anoa.com/ctfarena/internal/repository"
	"anoa.com/ctfarena/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSubmissionFixture(t *testing.T) (*submissionService, *gorm.DB, *fakeClock) {
	t.Helper()
	db := newTestDB(t)
	clock := newFakeClock()

	svc := NewSubmissionService(
		repository.NewUserRepository(db),
		repository.NewChallengeRepository(db),
		repository.NewBufferRepository(db),
		cache.NewMemoryCache(),
	).(*submissionService)
	svc.nowFn = clock.Now

	return svc, db, clock
}

func TestSubmitFlagUnknownUser(t *testing.T) {
	svc, db, _ := newSubmissionFixture(t)
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")

	_, err := svc.SubmitFlag(context.Background(), uuid.New(), challenge.ID, "flag{a}")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestSubmitFlagUnknownChallenge(t *testing.T) {
	svc, db, _ := newSubmissionFixture(t)
	user := seedUser(t, db, "alice")

	_, err := svc.SubmitFlag(context.Background(), user.ID, uuid.New(), "flag{a}")
	assert.ErrorIs(t, err, apperror.ErrChallengeNotFound)
}

func TestSubmitFlagNoFlagsConfigured(t *testing.T) {
	svc, db, _ := newSubmissionFixture(t)
	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "broken", 100)

	_, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{a}")
	assert.ErrorIs(t, err, apperror.ErrNoFlags)
}

func TestSubmitFlagCorrectBuffersSolveAndAttempt(t *testing.T) {
	svc, db, _ := newSubmissionFixture(t)
	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}", "flag{alt}")

	status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{alt}")
	require.NoError(t, err)
	assert.Equal(t, dto.FlagCorrect, status)

	var attempts, solves int64
	require.NoError(t, db.Model(&model.AttemptBuffer{}).Count(&attempts).Error)
	require.NoError(t, db.Model(&model.SolveBuffer{}).Count(&solves).Error)
	assert.EqualValues(t, 1, attempts)
	assert.EqualValues(t, 1, solves)

	var buffered model.SolveBuffer
	require.NoError(t, db.First(&buffered).Error)
	assert.Equal(t, 100, buffered.Points)
	assert.Equal(t, challenge.Name, buffered.ChallengeName)
}

func TestSubmitFlagIncorrectBuffersAttemptOnly(t *testing.T) {
	svc, db, _ := newSubmissionFixture(t)
	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")

	status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{wrong}")
	require.NoError(t, err)
	assert.Equal(t, dto.FlagIncorrect, status)

	var attempts, solves int64
	require.NoError(t, db.Model(&model.AttemptBuffer{}).Count(&attempts).Error)
	require.NoError(t, db.Model(&model.SolveBuffer{}).Count(&solves).Error)
	assert.EqualValues(t, 1, attempts)
	assert.EqualValues(t, 0, solves)
}

func TestSubmitFlagAlreadySolvedBeforeFlush(t *testing.T) {
	svc, db, clock := newSubmissionFixture(t)
	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")

	status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{a}")
	require.NoError(t, err)
	require.Equal(t, dto.FlagCorrect, status)

	// The solve only exists in the buffer, yet resubmission is rejected
	// from the optimistic cache write.
	clock.Advance(time.Minute)
	status, err = svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{a}")
	require.NoError(t, err)
	assert.Equal(t, dto.FlagAlreadySolved, status)

	var attempts int64
	require.NoError(t, db.Model(&model.AttemptBuffer{}).Count(&attempts).Error)
	assert.EqualValues(t, 1, attempts)
}

func TestSubmitFlagRateLimitWindow(t *testing.T) {
	svc, db, clock := newSubmissionFixture(t)
	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")

	// Three wrong submissions 3 seconds apart all pass the window check.
	for i := 0; i < 3; i++ {
		status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "nope")
		require.NoError(t, err)
		require.Equal(t, dto.FlagIncorrect, status)
		clock.Advance(3 * time.Second)
	}

	// 9 seconds after the first: three priors in the window, rejected.
	status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "nope")
	require.NoError(t, err)
	assert.Equal(t, dto.FlagSubmittingTooOften, status)

	// The rejection itself is not recorded.
	var attempts int64
	require.NoError(t, db.Model(&model.AttemptBuffer{}).Count(&attempts).Error)
	assert.EqualValues(t, 3, attempts)

	// Once the oldest entries age out, submissions flow again.
	clock.Advance(8 * time.Second)
	status, err = svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "nope")
	require.NoError(t, err)
	assert.Equal(t, dto.FlagIncorrect, status)
}

func TestSubmitFlagDeadlineReached(t *testing.T) {
	svc, db, clock := newSubmissionFixture(t)
	user := seedUser(t, db, "alice")

	category := &model.Category{Name: "timed"}
	require.NoError(t, db.Create(category).Error)
	challenge := &model.Challenge{
		CategoryID:      category.ID,
		Name:            "timed-01",
		Points:          100,
		DeadlineEnabled: true,
		Deadline:        clock.Now().Add(-time.Hour),
		Flags:           []string{"flag{a}"},
	}
	require.NoError(t, db.Create(challenge).Error)

	status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{a}")
	require.NoError(t, err)
	assert.Equal(t, dto.FlagDeadlineReached, status)

	var attempts int64
	require.NoError(t, db.Model(&model.AttemptBuffer{}).Count(&attempts).Error)
	assert.EqualValues(t, 0, attempts)
}

func TestSubmitFlagMaxAttemptsBeatsCorrect(t *testing.T) {
	svc, db, clock := newSubmissionFixture(t)
	user := seedUser(t, db, "alice")

	category := &model.Category{Name: "limited"}
	require.NoError(t, db.Create(category).Error)
	challenge := &model.Challenge{
		CategoryID:  category.ID,
		Name:        "limited-01",
		Points:      100,
		MaxAttempts: 2,
		Flags:       []string{"flag{a}"},
	}
	require.NoError(t, db.Create(challenge).Error)

	for i := 0; i < 2; i++ {
		status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "nope")
		require.NoError(t, err)
		require.Equal(t, dto.FlagIncorrect, status)
		clock.Advance(5 * time.Second)
	}

	// The flag is right, but all allowed attempts are used up.
	status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{a}")
	require.NoError(t, err)
	assert.Equal(t, dto.FlagMaxAttemptReached, status)

	// The rejected attempt is still recorded.
	var attempts, solves int64
	require.NoError(t, db.Model(&model.AttemptBuffer{}).Count(&attempts).Error)
	require.NoError(t, db.Model(&model.SolveBuffer{}).Count(&solves).Error)
	assert.EqualValues(t, 3, attempts)
	assert.EqualValues(t, 0, solves)
}

// faultyWindowCache fails reads of the recent-submission window while
// serving everything else from the wrapped cache.
type faultyWindowCache struct {
	cache.Cache
}

func (c *faultyWindowCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if strings.HasPrefix(key, "recent_submits:") {
		return false, errors.New("cache unavailable")
	}
	return c.Cache.Get(ctx, key, dest)
}

func TestSubmitFlagToleratesWindowCacheFailure(t *testing.T) {
	svc, db, _ := newSubmissionFixture(t)
	svc.cache = &faultyWindowCache{Cache: svc.cache}

	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")

	// An unreadable window never rejects the submission.
	status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{a}")
	require.NoError(t, err)
	assert.Equal(t, dto.FlagCorrect, status)

	var solves int64
	require.NoError(t, db.Model(&model.SolveBuffer{}).Count(&solves).Error)
	assert.EqualValues(t, 1, solves)
}

func TestSubmitFlagConcurrentCorrectSingleSolve(t *testing.T) {
	svc, db, _ := newSubmissionFixture(t)
	locks := NewUserLocks()

	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")

	const submitters = 8
	statuses := make(chan dto.FlagStatus, submitters)

	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !locks.TryAcquire(user.ID) {
				runtime.Gosched()
			}
			status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{a}")
			locks.Release(user.ID)
			assert.NoError(t, err)
			statuses <- status
		}()
	}
	wg.Wait()
	close(statuses)

	var correct, alreadySolved int
	for status := range statuses {
		switch status {
		case dto.FlagCorrect:
			correct++
		case dto.FlagAlreadySolved:
			alreadySolved++
		}
	}
	assert.Equal(t, 1, correct)
	assert.Equal(t, submitters-1, alreadySolved)

	// After the flush, exactly one solve row and one positive ledger entry.
	bufferRepo := repository.NewBufferRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	snapshot, err := bufferRepo.Snapshot(context.Background())
	require.NoError(t, err)
	result, err := ledgerRepo.ApplyBatch(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, result.AcceptedSolves, 1)

	var solveRows, positiveEntries int64
	require.NoError(t, db.Model(&model.Solve{}).Count(&solveRows).Error)
	require.NoError(t, db.Model(&model.PointsActivity{}).Where("points_change > 0").Count(&positiveEntries).Error)
	assert.EqualValues(t, 1, solveRows)
	assert.EqualValues(t, 1, positiveEntries)
}

func TestSubmitFlagAttemptCountSurvivesCacheMiss(t *testing.T) {
	svc, db, clock := newSubmissionFixture(t)
	user := seedUser(t, db, "alice")

	category := &model.Category{Name: "limited2"}
	require.NoError(t, db.Create(category).Error)
	challenge := &model.Challenge{
		CategoryID:  category.ID,
		Name:        "limited-02",
		Points:      100,
		MaxAttempts: 1,
		Flags:       []string{"flag{a}"},
	}
	require.NoError(t, db.Create(challenge).Error)

	status, err := svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "nope")
	require.NoError(t, err)
	require.Equal(t, dto.FlagIncorrect, status)

	// Flush the buffered attempt into the authoritative table, then drop
	// the cache as if the process restarted.
	require.NoError(t, db.Create(&model.Attempt{
		UserID: user.ID, ChallengeID: challenge.ID, SubmittedAt: clock.Now(),
	}).Error)
	require.NoError(t, db.Where("1 = 1").Delete(&model.AttemptBuffer{}).Error)
	svc.cache = cache.NewMemoryCache()

	clock.Advance(time.Minute)
	status, err = svc.SubmitFlag(context.Background(), user.ID, challenge.ID, "flag{a}")
	require.NoError(t, err)
	assert.Equal(t, dto.FlagMaxAttemptReached, status)
}
