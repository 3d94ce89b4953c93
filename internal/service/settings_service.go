package service

import (
	"context"
	"time"

	"anoa.com/ctfarena/internal/cache"
	"anoa.com/ctfarena/internal/model"
	"anoa.com/ctfarena/internal/repository"
)

const settingsCacheTTL = 30 * time.Second

// SettingsService exposes the global configuration flags through the
// same cache-or-store pattern used everywhere else in the pipeline.
type SettingsService interface {
	SubmissionsAllowed(ctx context.Context) (bool, error)
	SetSubmissionsAllowed(ctx context.Context, allowed bool) error
}

type settingsService struct {
	repo  repository.ConfigRepository
	cache cache.Cache
}

func NewSettingsService(repo repository.ConfigRepository, c cache.Cache) SettingsService {
	return &settingsService{repo: repo, cache: c}
}

func (s *settingsService) SubmissionsAllowed(ctx context.Context) (bool, error) {
	var allowed bool
	found, err := s.cache.Get(ctx, cache.KeySubmissionsAllowed, &allowed)
	if err == nil && found {
		return allowed, nil
	}

	allowed, err = s.repo.GetBool(ctx, model.ConfigSubmissionsAllowed, true)
	if err != nil {
		return false, err
	}

	_ = s.cache.Set(ctx, cache.KeySubmissionsAllowed, allowed, settingsCacheTTL)
	return allowed, nil
}

func (s *settingsService) SetSubmissionsAllowed(ctx context.Context, allowed bool) error {
	if err := s.repo.SetBool(ctx, model.ConfigSubmissionsAllowed, allowed); err != nil {
		return err
	}
	return s.cache.Set(ctx, cache.KeySubmissionsAllowed, allowed, settingsCacheTTL)
}
