package repository

import (
	"context"
	"errors"

	"anoa.com/ctfarena/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConfigRepository interface {
	GetBool(ctx context.Context, key string, fallback bool) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}

type configRepository struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) GetBool(ctx context.Context, key string, fallback bool) (bool, error) {
	var row model.Configuration
	err := r.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return row.Value == "true", nil
}

func (r *configRepository) SetBool(ctx context.Context, key string, value bool) error {
	stored := "false"
	if value {
		stored = "true"
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": stored}),
	}).Create(&model.Configuration{Key: key, Value: stored}).Error
}
