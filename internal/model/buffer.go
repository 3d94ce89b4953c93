package model

import (
	"time"

	"github.com/google/uuid"
)

// Buffers are transient staging rows written synchronously during
// ingestion and drained by the flush processor. They are not
// authoritative: rows whose user or challenge disappeared before the
// flush are silently dropped. Solve and hint buffers denormalize the
// challenge data needed to build ledger entries without re-querying.

type AttemptBuffer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;not null" json:"challenge_id"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
}

type SolveBuffer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	ChallengeID   uuid.UUID `gorm:"type:uuid;not null" json:"challenge_id"`
	ChallengeName string    `gorm:"size:100;not null" json:"challenge_name"`
	CategoryID    uuid.UUID `gorm:"type:uuid;not null" json:"category_id"`
	Points        int       `gorm:"not null" json:"points"`
	SolvedAt      time.Time `gorm:"not null" json:"solved_at"`
}

type HintUsageBuffer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	HintID        uuid.UUID `gorm:"type:uuid;not null" json:"hint_id"`
	ChallengeID   uuid.UUID `gorm:"type:uuid;not null" json:"challenge_id"`
	ChallengeName string    `gorm:"size:100;not null" json:"challenge_name"`
	CategoryID    uuid.UUID `gorm:"type:uuid;not null" json:"category_id"`
	Deduction     int       `gorm:"not null" json:"deduction"`
	UsedAt        time.Time `gorm:"not null" json:"used_at"`
}
