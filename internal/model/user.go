package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`

	// Points and LatestSolve are caches over the points activity ledger.
	// The flush processor maintains them and the repair job can rebuild both.
	Points               int        `gorm:"default:0;index" json:"points"`
	LatestSolve          *time.Time `json:"latest_solve"`
	VisibleOnLeaderboard bool       `gorm:"default:true" json:"visible_on_leaderboard"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
