package service

import (
	"context"
	"log"

	"anoa.com/ctfarena/internal/cache"
	"anoa.com/ctfarena/internal/model"
	"anoa.com/ctfarena/internal/repository"
	"anoa.com/ctfarena/pkg/apperror"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AdminService covers the operator surface: content management,
// pausing submissions and triggering a full recalculation. Deletions
// take the pipeline guard so they never run concurrently with a flush,
// and report busy instead of waiting.
type AdminService interface {
	CreateUser(ctx context.Context, username, email, password string, visible bool) (*model.User, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	CreateChallenge(ctx context.Context, challenge *model.Challenge) error
	CreateHint(ctx context.Context, hint *model.Hint) error

	DeleteUser(ctx context.Context, id uuid.UUID) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	DeleteChallenge(ctx context.Context, id uuid.UUID) error
	DeleteHint(ctx context.Context, id uuid.UUID) error

	AllowSubmissions(ctx context.Context) error
	DenySubmissions(ctx context.Context) error

	// RecalculateLeaderboards rebuilds every user aggregate from the
	// ledger. Only allowed while submissions are paused.
	RecalculateLeaderboards(ctx context.Context) error
}

type adminService struct {
	userRepo      repository.UserRepository
	challengeRepo repository.ChallengeRepository
	ledgerRepo    repository.LedgerRepository
	leaderboard   LeaderboardService
	settings      SettingsService
	guard         *Guard
	cache         cache.Cache
}

func NewAdminService(userRepo repository.UserRepository, challengeRepo repository.ChallengeRepository, ledgerRepo repository.LedgerRepository, leaderboard LeaderboardService, settings SettingsService, guard *Guard, c cache.Cache) AdminService {
	return &adminService{
		userRepo:      userRepo,
		challengeRepo: challengeRepo,
		ledgerRepo:    ledgerRepo,
		leaderboard:   leaderboard,
		settings:      settings,
		guard:         guard,
		cache:         c,
	}
}

func (s *adminService) CreateUser(ctx context.Context, username, email, password string, visible bool) (*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:             username,
		Email:                email,
		PasswordHash:         string(hashed),
		VisibleOnLeaderboard: visible,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *adminService) CreateCategory(ctx context.Context, category *model.Category) error {
	return s.challengeRepo.CreateCategory(ctx, category)
}

func (s *adminService) CreateChallenge(ctx context.Context, challenge *model.Challenge) error {
	return s.challengeRepo.CreateChallenge(ctx, challenge)
}

func (s *adminService) CreateHint(ctx context.Context, hint *model.Hint) error {
	return s.challengeRepo.CreateHint(ctx, hint)
}

func (s *adminService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.guardedDelete(func() error {
		if err := s.userRepo.Delete(ctx, id); err != nil {
			return err
		}
		_ = s.cache.Remove(ctx, cache.KeyUserExists(id), cache.KeyUserGraph(id))
		return s.leaderboard.Invalidate(ctx)
	})
}

func (s *adminService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.guardedDelete(func() error {
		if err := s.challengeRepo.DeleteCategory(ctx, id); err != nil {
			return err
		}
		return s.leaderboard.Invalidate(ctx)
	})
}

func (s *adminService) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	return s.guardedDelete(func() error {
		if err := s.challengeRepo.DeleteChallenge(ctx, id); err != nil {
			return err
		}
		_ = s.cache.Remove(ctx, cache.KeyChallengeDetails(id))
		return s.leaderboard.Invalidate(ctx)
	})
}

func (s *adminService) DeleteHint(ctx context.Context, id uuid.UUID) error {
	return s.guardedDelete(func() error {
		if err := s.challengeRepo.DeleteHint(ctx, id); err != nil {
			return err
		}
		return s.leaderboard.Invalidate(ctx)
	})
}

// guardedDelete runs fn while holding the pipeline guard, so the
// cascade cannot race a flush batch that references the deleted rows.
func (s *adminService) guardedDelete(fn func() error) error {
	if !s.guard.TryEnter() {
		return apperror.ErrBusy
	}
	defer s.guard.Exit()
	return fn()
}

func (s *adminService) AllowSubmissions(ctx context.Context) error {
	return s.settings.SetSubmissionsAllowed(ctx, true)
}

func (s *adminService) DenySubmissions(ctx context.Context) error {
	return s.settings.SetSubmissionsAllowed(ctx, false)
}

func (s *adminService) RecalculateLeaderboards(ctx context.Context) error {
	allowed, err := s.settings.SubmissionsAllowed(ctx)
	if err != nil {
		return err
	}
	if allowed {
		return apperror.ErrNotAllowed
	}

	if !s.guard.TryEnter() {
		return apperror.ErrBusy
	}
	defer s.guard.Exit()

	if err := s.ledgerRepo.RebuildAggregates(ctx); err != nil {
		return err
	}
	if err := s.leaderboard.Invalidate(ctx); err != nil {
		return err
	}

	// Warm the rank cache so the first read after a recalc is cheap.
	if _, err := s.leaderboard.GetRanks(ctx, 0); err != nil {
		log.Printf("⚠️ failed to warm rank cache after recalculation: %v", err)
	}
	return nil
}
