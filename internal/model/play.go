package model

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is the append-only submission history. Many rows per
// (user, challenge) pair are expected; they feed attempt counts
// and the rate limit window rebuild on cache miss.
type Attempt struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index:idx_attempt_user_challenge,priority:1;not null" json:"user_id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;index:idx_attempt_user_challenge,priority:2;not null" json:"challenge_id"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`

	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Challenge Challenge `gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE" json:"-"`
}

// Solve holds one row per (user, challenge). The unique index makes the
// flush idempotent: the first committed solve wins, replays are inert.
type Solve struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_solve_user_challenge,priority:1;not null" json:"user_id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_solve_user_challenge,priority:2;not null" json:"challenge_id"`
	SolvedAt    time.Time `gorm:"not null" json:"solved_at"`

	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Challenge Challenge `gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE" json:"-"`
}

type HintUsage struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_hint_usage_user_hint,priority:1;not null" json:"user_id"`
	HintID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_hint_usage_user_hint,priority:2;not null" json:"hint_id"`
	UsedAt time.Time `gorm:"not null" json:"used_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Hint Hint `gorm:"foreignKey:HintID;constraint:OnDelete:CASCADE" json:"-"`
}

// PointsActivity is the immutable, append-only ledger. One row per solve
// (positive change) or hint usage (negative change). It is the single
// source of truth for a user's score and is never mutated, only removed
// by cascading cleanup when its user or challenge is deleted.
type PointsActivity struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	ChallengeID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"challenge_id"`
	HintID        *uuid.UUID `gorm:"type:uuid" json:"hint_id,omitempty"`
	IsSolve       bool       `gorm:"not null" json:"is_solve"`
	ChallengeName string     `gorm:"size:100;not null" json:"challenge_name"`
	PointsChange  int        `gorm:"not null" json:"points_change"`
	OccurredAt    time.Time  `gorm:"index;not null" json:"occurred_at"`

	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Challenge Challenge `gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE" json:"-"`
}

// Configuration is a key-value row for global flags like "submissions_allowed".
type Configuration struct {
	Key       string    `gorm:"size:50;primaryKey" json:"key"`
	Value     string    `gorm:"size:100;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	ConfigSubmissionsAllowed = "submissions_allowed"
)
