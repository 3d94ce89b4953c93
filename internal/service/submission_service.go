package service

import (
	"context"
	"log"
	"time"

	"anoa.com/ctfarena/internal/cache"
	"anoa.com/ctfarena/internal/dto"
	"anoa.com/ctfarena/internal/model"
	"anoa.com/ctfarena/internal/repository"
	"anoa.com/ctfarena/pkg/apperror"
	"github.com/google/uuid"
)

const (
	// Trailing window for the submission rate limit. A submission is
	// rejected when 3 or more earlier submissions for the same challenge
	// fall inside it.
	rateWindow    = 10 * time.Second
	rateThreshold = 3

	existsCacheTTL  = 5 * time.Minute
	detailsCacheTTL = 10 * time.Minute
	attemptCacheTTL = 30 * time.Minute
)

// SubmissionService decides the outcome of a flag submission without
// touching the authoritative scoring tables. All side effects go to the
// durable buffers and the cache; the flush processor applies them later.
type SubmissionService interface {
	SubmitFlag(ctx context.Context, userID, challengeID uuid.UUID, flag string) (dto.FlagStatus, error)
}

type submissionService struct {
	userRepo      repository.UserRepository
	challengeRepo repository.ChallengeRepository
	bufferRepo    repository.BufferRepository
	cache         cache.Cache
	nowFn         func() time.Time
}

func NewSubmissionService(userRepo repository.UserRepository, challengeRepo repository.ChallengeRepository, bufferRepo repository.BufferRepository, c cache.Cache) SubmissionService {
	return &submissionService{
		userRepo:      userRepo,
		challengeRepo: challengeRepo,
		bufferRepo:    bufferRepo,
		cache:         c,
		nowFn:         time.Now,
	}
}

func (s *submissionService) SubmitFlag(ctx context.Context, userID, challengeID uuid.UUID, flag string) (dto.FlagStatus, error) {
	now := s.nowFn()

	exists, err := s.userExists(ctx, userID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", apperror.ErrUserNotFound
	}

	detail, err := s.challengeDetails(ctx, challengeID)
	if err != nil {
		return "", err
	}
	if detail == nil {
		return "", apperror.ErrChallengeNotFound
	}
	if len(detail.Flags) == 0 {
		return "", apperror.ErrNoFlags
	}

	// Outcome checks run in a fixed priority order. The first three are
	// early rejections and leave no trace at all.
	solved, err := s.hasSolved(ctx, userID, challengeID)
	if err != nil {
		return "", err
	}
	if solved {
		return dto.FlagAlreadySolved, nil
	}

	window := s.recentWindow(ctx, userID, challengeID, now)
	if len(window) >= rateThreshold {
		return dto.FlagSubmittingTooOften, nil
	}

	if detail.DeadlineEnabled && detail.Deadline.Before(now) {
		return dto.FlagDeadlineReached, nil
	}

	attemptCount, err := s.attemptCount(ctx, userID, challengeID)
	if err != nil {
		return "", err
	}

	status := dto.FlagIncorrect
	if detail.MaxAttempts > 0 && attemptCount >= int64(detail.MaxAttempts) {
		status = dto.FlagMaxAttemptReached
	} else if flagMatches(detail.Flags, flag) {
		status = dto.FlagCorrect
	}

	// Every outcome from here on is a recorded attempt, including
	// MaxAttemptReached and Correct.
	if err := s.bufferRepo.AppendAttempt(ctx, &model.AttemptBuffer{
		UserID:      userID,
		ChallengeID: challengeID,
		SubmittedAt: now,
	}); err != nil {
		return "", err
	}

	_ = s.cache.Set(ctx, cache.KeyAttemptCount(userID, challengeID), attemptCount+1, attemptCacheTTL)
	_ = s.cache.Set(ctx, cache.KeyRecentSubmissions(userID, challengeID), append(window, now), rateWindow)

	if status == dto.FlagCorrect {
		if err := s.bufferRepo.AppendSolve(ctx, &model.SolveBuffer{
			UserID:        userID,
			ChallengeID:   challengeID,
			ChallengeName: detail.Name,
			CategoryID:    detail.CategoryID,
			Points:        detail.Points,
			SolvedAt:      now,
		}); err != nil {
			return "", err
		}

		// Optimistic cache writes so the user sees the solve immediately,
		// before the flush lands.
		_ = s.cache.Set(ctx, cache.KeyHasSolved(userID, challengeID), true, 0)
		detail.SolveCount++
		_ = s.cache.Set(ctx, cache.KeyChallengeDetails(challengeID), detail, detailsCacheTTL)

		log.Printf("✅ user %s solved challenge %s (%d pts buffered)", userID, challengeID, detail.Points)
	}

	return status, nil
}

func (s *submissionService) userExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	found, err := s.cache.Get(ctx, cache.KeyUserExists(userID), &exists)
	if err == nil && found {
		return exists, nil
	}

	exists, err = s.userRepo.Exists(ctx, userID)
	if err != nil {
		return false, err
	}

	_ = s.cache.Set(ctx, cache.KeyUserExists(userID), exists, existsCacheTTL)
	return exists, nil
}

func (s *submissionService) challengeDetails(ctx context.Context, challengeID uuid.UUID) (*dto.ChallengeDetail, error) {
	var detail dto.ChallengeDetail
	found, err := s.cache.Get(ctx, cache.KeyChallengeDetails(challengeID), &detail)
	if err == nil && found {
		return &detail, nil
	}

	fresh, err := s.challengeRepo.GetDetails(ctx, challengeID)
	if err != nil || fresh == nil {
		return fresh, err
	}

	_ = s.cache.Set(ctx, cache.KeyChallengeDetails(challengeID), fresh, detailsCacheTTL)
	return fresh, nil
}

func (s *submissionService) hasSolved(ctx context.Context, userID, challengeID uuid.UUID) (bool, error) {
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

// recentWindow returns the cached submission timestamps still inside the
// rate window, oldest first. The cache is best effort: an unreadable
// window counts as empty.
func (s *submissionService) recentWindow(ctx context.Context, userID, challengeID uuid.UUID, now time.Time) []time.Time {
	var stamps []time.Time
	found, err := s.cache.Get(ctx, cache.KeyRecentSubmissions(userID, challengeID), &stamps)
	if err != nil {
		log.Printf("⚠️ failed to read submission window: %v", err)
		return nil
	}
	if !found {
		return nil
	}

	cutoff := now.Add(-rateWindow)
	pruned := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}
	return pruned
}

func (s *submissionService) attemptCount(ctx context.Context, userID, challengeID uuid.UUID) (int64, error) {
	var count int64
	found, err := s.cache.Get(ctx, cache.KeyAttemptCount(userID, challengeID), &count)
	if err == nil && found {
		return count, nil
	}

	count, err = s.challengeRepo.CountAttempts(ctx, userID, challengeID)
	if err != nil {
		return 0, err
	}

	_ = s.cache.Set(ctx, cache.KeyAttemptCount(userID, challengeID), count, attemptCacheTTL)
	return count, nil
}

func flagMatches(flags []string, submitted string) bool {
	for _, f := range flags {
		if f == submitted {
			return true
		}
	}
	return false
}
