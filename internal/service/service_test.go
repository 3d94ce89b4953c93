package service

import (
	"fmt"
	"testing"
	"time"

	"anoa.com/ctfarena/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Challenge{},
		&model.Hint{},
		&model.Attempt{},
		&model.Solve{},
		&model.HintUsage{},
		&model.PointsActivity{},
		&model.Configuration{},
		&model.AttemptBuffer{},
		&model.SolveBuffer{},
		&model.HintUsageBuffer{},
	))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@test.local",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedChallenge(t *testing.T, db *gorm.DB, name string, points int, flags ...string) *model.Challenge {
	t.Helper()
	category := &model.Category{Name: "cat-" + name}
	require.NoError(t, db.Create(category).Error)

	challenge := &model.Challenge{
		CategoryID: category.ID,
		Name:       name,
		Points:     points,
		Flags:      flags,
	}
	require.NoError(t, db.Create(challenge).Error)
	return challenge
}

func seedHint(t *testing.T, db *gorm.DB, challenge *model.Challenge, deduction int) *model.Hint {
	t.Helper()
	hint := &model.Hint{
		ChallengeID: challenge.ID,
		Content:     "look closer",
		Deduction:   deduction,
	}
	require.NoError(t, db.Create(hint).Error)
	return hint
}

func at(sec int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, sec, 0, time.UTC)
}

// fakeClock drives the injected nowFn so rate-window tests are
// deterministic.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
