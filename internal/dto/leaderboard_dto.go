package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserRank struct {
	UserID      uuid.UUID  `json:"user_id"`
	Username    string     `json:"username"`
	Position    int        `json:"position"`
	Points      int        `json:"points"`
	LatestSolve *time.Time `json:"latest_solve"`
}

// RankList is the cached leaderboard. HintVersion records the value of
// the hint-usage counter the list was computed at; a mismatch forces a
// full requery because hint deductions are not visible to the cached
// entries.
type RankList struct {
	Ranks             []UserRank `json:"ranks"`
	TotalParticipants int        `json:"total_participants"`
	HintVersion       int64      `json:"hint_version"`
}

type ActivityPoint struct {
	Score      int       `json:"score"`
	OccurredAt time.Time `json:"occurred_at"`
}

type UserGraph struct {
	UserID     uuid.UUID       `json:"user_id"`
	Username   string          `json:"username"`
	Activities []ActivityPoint `json:"activities"`
}

// SolveDelta describes one accepted solve from a flush batch. The
// leaderboard maintainer folds these into the cached rank list instead
// of rescanning the users table.
type SolveDelta struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Points   int       `json:"points"`
	SolvedAt time.Time `json:"solved_at"`
}
