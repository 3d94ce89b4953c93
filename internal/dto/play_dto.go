package dto

import (
	"time"

	"github.com/google/uuid"
)

// FlagStatus is the outcome of a flag submission, exposed to the API
// layer as-is.
type FlagStatus string

const (
	FlagCorrect            FlagStatus = "Correct"
	FlagIncorrect          FlagStatus = "Incorrect"
	FlagAlreadySolved      FlagStatus = "AlreadySolved"
	FlagSubmittingTooOften FlagStatus = "SubmittingTooOften"
	FlagDeadlineReached    FlagStatus = "DeadlineReached"
	FlagMaxAttemptReached  FlagStatus = "MaxAttemptReached"
)

// ChallengeDetail is the cached read model used by the ingestion path.
type ChallengeDetail struct {
	ID              uuid.UUID `json:"id"`
	CategoryID      uuid.UUID `json:"category_id"`
	Name            string    `json:"name"`
	Points          int       `json:"points"`
	DeadlineEnabled bool      `json:"deadline_enabled"`
	Deadline        time.Time `json:"deadline"`
	MaxAttempts     int       `json:"max_attempts"`
	SolveCount      int       `json:"solve_count"`
	Flags           []string  `json:"flags"`
}

type HintDetail struct {
	ID            uuid.UUID `json:"id"`
	ChallengeID   uuid.UUID `json:"challenge_id"`
	ChallengeName string    `json:"challenge_name"`
	CategoryID    uuid.UUID `json:"category_id"`
	Content       string    `json:"content"`
	Deduction     int       `json:"deduction"`
}

type SubmitFlagRequest struct {
	ChallengeID string `json:"challenge_id" binding:"required,uuid"`
	Flag        string `json:"flag" binding:"required,max=500"`
}

type UseHintRequest struct {
	HintID string `json:"hint_id" binding:"required,uuid"`
}
