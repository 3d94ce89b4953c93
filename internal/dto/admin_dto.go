package dto

import "time"

type CreateUserRequest struct {
	Username             string `json:"username" binding:"required,max=50"`
	Email                string `json:"email" binding:"required,email,max=100"`
	Password             string `json:"password" binding:"required,min=8"`
	VisibleOnLeaderboard *bool  `json:"visible_on_leaderboard"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=300"`
}

type CreateChallengeRequest struct {
	CategoryID      string    `json:"category_id" binding:"required,uuid"`
	Name            string    `json:"name" binding:"required,max=100"`
	Description     string    `json:"description" binding:"max=2000"`
	Points          int       `json:"points" binding:"min=0"`
	DeadlineEnabled bool      `json:"deadline_enabled"`
	Deadline        time.Time `json:"deadline"`
	MaxAttempts     int       `json:"max_attempts" binding:"min=0"`
	Flags           []string  `json:"flags" binding:"required,min=1"`
}

type CreateHintRequest struct {
	ChallengeID string `json:"challenge_id" binding:"required,uuid"`
	Content     string `json:"content" binding:"required,max=1000"`
	Deduction   int    `json:"deduction" binding:"min=0"`
}
