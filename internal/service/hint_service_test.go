package service

import (
	"context"
	"testing"

	"anoa.com/ctfarena/internal/cache"
	"anoa.com/ctfarena/internal/model"
	"anoa.com/ctfarena/internal/repository"
	"anoa.com/ctfarena/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newHintFixture(t *testing.T) (HintService, SettingsService, *gorm.DB, cache.Cache) {
	t.Helper()
	db := newTestDB(t)
	memCache := cache.NewMemoryCache()

	settings := NewSettingsService(repository.NewConfigRepository(db), memCache)
	svc := NewHintService(
		repository.NewUserRepository(db),
		repository.NewChallengeRepository(db),
		repository.NewBufferRepository(db),
		settings,
		memCache,
	)
	return svc, settings, db, memCache
}

func TestUseHintChargesOnce(t *testing.T) {
	svc, _, db, memCache := newHintFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")
	hint := seedHint(t, db, challenge, 25)

	content, err := svc.UseHint(ctx, user.ID, hint.ID)
	require.NoError(t, err)
	assert.Equal(t, "look closer", content)

	var buffered int64
	require.NoError(t, db.Model(&model.HintUsageBuffer{}).Count(&buffered).Error)
	assert.EqualValues(t, 1, buffered)

	version, err := memCache.Counter(ctx, cache.KeyHintUsageVersion)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	// Second read returns the content without a second charge.
	content, err = svc.UseHint(ctx, user.ID, hint.ID)
	require.NoError(t, err)
	assert.Equal(t, "look closer", content)

	require.NoError(t, db.Model(&model.HintUsageBuffer{}).Count(&buffered).Error)
	assert.EqualValues(t, 1, buffered)

	version, err = memCache.Counter(ctx, cache.KeyHintUsageVersion)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
}

func TestUseHintRepeatAfterFlushIsFree(t *testing.T) {
	svc, _, db, _ := newHintFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")
	hint := seedHint(t, db, challenge, 25)

	// Usage already committed to the authoritative table, nothing cached.
	require.NoError(t, db.Create(&model.HintUsage{
		UserID: user.ID, HintID: hint.ID, UsedAt: at(0),
	}).Error)

	content, err := svc.UseHint(ctx, user.ID, hint.ID)
	require.NoError(t, err)
	assert.Equal(t, "look closer", content)

	var buffered int64
	require.NoError(t, db.Model(&model.HintUsageBuffer{}).Count(&buffered).Error)
	assert.EqualValues(t, 0, buffered)
}

func TestUseHintRejectedWhenChallengeSolved(t *testing.T) {
	svc, _, db, _ := newHintFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")
	hint := seedHint(t, db, challenge, 25)

	require.NoError(t, db.Create(&model.Solve{
		UserID: user.ID, ChallengeID: challenge.ID, SolvedAt: at(0),
	}).Error)

	_, err := svc.UseHint(ctx, user.ID, hint.ID)
	assert.ErrorIs(t, err, apperror.ErrAlreadySolved)
}

func TestUseHintRejectedWhileSubmissionsPaused(t *testing.T) {
	svc, settings, db, _ := newHintFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	challenge := seedChallenge(t, db, "pwn-01", 100, "flag{a}")
	hint := seedHint(t, db, challenge, 25)

	require.NoError(t, settings.SetSubmissionsAllowed(ctx, false))

	_, err := svc.UseHint(ctx, user.ID, hint.ID)
	assert.ErrorIs(t, err, apperror.ErrHintsNotAllowed)

	require.NoError(t, settings.SetSubmissionsAllowed(ctx, true))
	_, err = svc.UseHint(ctx, user.ID, hint.ID)
	assert.NoError(t, err)
}

func TestUseHintUnknownHint(t *testing.T) {
	svc, _, db, _ := newHintFixture(t)
	user := seedUser(t, db, "alice")

	_, err := svc.UseHint(context.Background(), user.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrHintNotFound)
}
