package service

import (
	"context"
	"log"
	"time"

	"anoa.com/ctfarena/internal/cache"
	"anoa.com/ctfarena/internal/model"
	"anoa.com/ctfarena/internal/repository"
	"anoa.com/ctfarena/pkg/apperror"
	"github.com/google/uuid"
)

// HintService charges a user for a hint at most once and stages the
// deduction in the hint usage buffer. Repeat reads return the content
// for free.
type HintService interface {
	UseHint(ctx context.Context, userID, hintID uuid.UUID) (string, error)
}

type hintService struct {
	userRepo      repository.UserRepository
	challengeRepo repository.ChallengeRepository
	bufferRepo    repository.BufferRepository
	settings      SettingsService
	cache         cache.Cache
	nowFn         func() time.Time
}

func NewHintService(userRepo repository.UserRepository, challengeRepo repository.ChallengeRepository, bufferRepo repository.BufferRepository, settings SettingsService, c cache.Cache) HintService {
	return &hintService{
		userRepo:      userRepo,
		challengeRepo: challengeRepo,
		bufferRepo:    bufferRepo,
		settings:      settings,
		cache:         c,
		nowFn:         time.Now,
	}
}

func (s *hintService) UseHint(ctx context.Context, userID, hintID uuid.UUID) (string, error) {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", apperror.ErrUserNotFound
	}

	allowed, err := s.settings.SubmissionsAllowed(ctx)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", apperror.ErrHintsNotAllowed
	}

	hint, err := s.challengeRepo.GetHintDetail(ctx, hintID)
	if err != nil {
		return "", err
	}
	if hint == nil {
		return "", apperror.ErrHintNotFound
	}

	solved, err := s.hasSolvedChallenge(ctx, userID, hint.ChallengeID)
	if err != nil {
		return "", err
	}
	if solved {
		return "", apperror.ErrAlreadySolved
	}

	used, err := s.hasUsedHint(ctx, userID, hintID)
	if err != nil {
		return "", err
	}
	if used {
		// Already paid for, re-reads are free.
		return hint.Content, nil
	}

	_ = s.cache.Set(ctx, cache.KeyHintUsed(userID, hintID), true, 0)

	if err := s.bufferRepo.AppendHintUsage(ctx, &model.HintUsageBuffer{
		UserID:        userID,
		HintID:        hintID,
		ChallengeID:   hint.ChallengeID,
		ChallengeName: hint.ChallengeName,
		CategoryID:    hint.CategoryID,
		Deduction:     hint.Deduction,
		UsedAt:        s.nowFn(),
	}); err != nil {
		return "", err
	}

	// Invalidates incremental leaderboard merges: a pending deduction
	// means the next recompute must requery.
	if _, err := s.cache.Increment(ctx, cache.KeyHintUsageVersion); err != nil {
		log.Printf("⚠️ failed to bump hint usage version: %v", err)
	}

	log.Printf("💡 user %s used hint %s (-%d pts buffered)", userID, hintID, hint.Deduction)
	return hint.Content, nil
}

func (s *hintService) hasSolvedChallenge(ctx context.Context, userID, challengeID uuid.UUID) (bool, error) {
	var solved bool
	found, err := s.cache.Get(ctx, cache.KeyHasSolved(userID, challengeID), &solved)
	if err == nil && found {
		return solved, nil
	}

	solved, err = s.challengeRepo.HasSolved(ctx, userID, challengeID)
	if err != nil {
		return false, err
	}

	_ = s.cache.Set(ctx, cache.KeyHasSolved(userID, challengeID), solved, 0)
	return solved, nil
}

func (s *hintService) hasUsedHint(ctx context.Context, userID, hintID uuid.UUID) (bool, error) {
	var used bool
	found, err := s.cache.Get(ctx, cache.KeyHintUsed(userID, hintID), &used)
	if err == nil && found {
		return used, nil
	}

	used, err = s.challengeRepo.HasUsedHint(ctx, userID, hintID)
	if err != nil {
		return false, err
	}

	_ = s.cache.Set(ctx, cache.KeyHintUsed(userID, hintID), used, 0)
	return used, nil
}
