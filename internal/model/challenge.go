package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:300" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	Challenges []Challenge `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Challenge struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CategoryID  uuid.UUID `gorm:"type:uuid;index;not null" json:"category_id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:2000" json:"description"`
	Points      int       `gorm:"not null" json:"points"`

	DeadlineEnabled bool      `gorm:"default:false" json:"deadline_enabled"`
	Deadline        time.Time `json:"deadline"`

	// 0 means unlimited attempts.
	MaxAttempts int `gorm:"default:0" json:"max_attempts"`

	// Denormalized counter, incremented by the flush processor.
	SolveCount int `gorm:"default:0" json:"solve_count"`

	Flags []string `gorm:"serializer:json" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Hints []Hint `gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE" json:"hints,omitempty"`
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Hint struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;index;not null" json:"challenge_id"`
	Content     string    `gorm:"size:1000;not null" json:"-"`
	Deduction   int       `gorm:"not null" json:"deduction"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (h *Hint) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
