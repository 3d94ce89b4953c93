package repository

import (
	"context"
	"errors"

	"anoa.com/ctfarena/internal/dto"
	"anoa.com/ctfarena/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	CreateChallenge(ctx context.Context, challenge *model.Challenge) error
	CreateHint(ctx context.Context, hint *model.Hint) error

	GetDetails(ctx context.Context, id uuid.UUID) (*dto.ChallengeDetail, error)
	GetHintDetail(ctx context.Context, id uuid.UUID) (*dto.HintDetail, error)

	CountAttempts(ctx context.Context, userID, challengeID uuid.UUID) (int64, error)
	HasSolved(ctx context.Context, userID, challengeID uuid.UUID) (bool, error)
	HasUsedHint(ctx context.Context, userID, hintID uuid.UUID) (bool, error)

	DeleteCategory(ctx context.Context, id uuid.UUID) error
	DeleteChallenge(ctx context.Context, id uuid.UUID) error
	DeleteHint(ctx context.Context, id uuid.UUID) error
}

type challengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) CreateCategory(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *challengeRepository) CreateChallenge(ctx context.Context, challenge *model.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

func (r *challengeRepository) CreateHint(ctx context.Context, hint *model.Hint) error {
	return r.db.WithContext(ctx).Create(hint).Error
}

func (r *challengeRepository) GetDetails(ctx context.Context, id uuid.UUID) (*dto.ChallengeDetail, error) {
	var challenge model.Challenge
	err := r.db.WithContext(ctx).First(&challenge, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &dto.ChallengeDetail{
		ID:              challenge.ID,
		CategoryID:      challenge.CategoryID,
		Name:            challenge.Name,
		Points:          challenge.Points,
		DeadlineEnabled: challenge.DeadlineEnabled,
		Deadline:        challenge.Deadline,
		MaxAttempts:     challenge.MaxAttempts,
		SolveCount:      challenge.SolveCount,
		Flags:           challenge.Flags,
	}, nil
}

func (r *challengeRepository) GetHintDetail(ctx context.Context, id uuid.UUID) (*dto.HintDetail, error) {
	var hint model.Hint
	err := r.db.WithContext(ctx).First(&hint, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var challenge model.Challenge
	if err := r.db.WithContext(ctx).Select("id", "name", "category_id").First(&challenge, "id = ?", hint.ChallengeID).Error; err != nil {
		return nil, err
	}

	return &dto.HintDetail{
		ID:            hint.ID,
		ChallengeID:   hint.ChallengeID,
		ChallengeName: challenge.Name,
		CategoryID:    challenge.CategoryID,
		Content:       hint.Content,
		Deduction:     hint.Deduction,
	}, nil
}

func (r *challengeRepository) CountAttempts(ctx context.Context, userID, challengeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Attempt{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Count(&count).Error
	return count, err
}

func (r *challengeRepository) HasSolved(ctx context.Context, userID, challengeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Solve{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Count(&count).Error
	return count > 0, err
}

func (r *challengeRepository) HasUsedHint(ctx context.Context, userID, hintID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.HintUsage{}).
		Where("user_id = ? AND hint_id = ?", userID, hintID).
		Count(&count).Error
	return count > 0, err
}

func (r *challengeRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Category{}, "id = ?", id).Error
}

func (r *challengeRepository) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Challenge{}, "id = ?", id).Error
}

func (r *challengeRepository) DeleteHint(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Hint{}, "id = ?", id).Error
}
