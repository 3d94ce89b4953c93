package repository

import (
	"context"

	"anoa.com/ctfarena/internal/model"
	"gorm.io/gorm"
)

// BufferSnapshot is one flush batch: everything staged at the moment the
// flush processor took its fresh read under the guard.
type BufferSnapshot struct {
	Attempts   []model.AttemptBuffer
	Solves     []model.SolveBuffer
	HintUsages []model.HintUsageBuffer
}

func (s *BufferSnapshot) Empty() bool {
	return len(s.Attempts) == 0 && len(s.Solves) == 0 && len(s.HintUsages) == 0
}

type BufferRepository interface {
	AppendAttempt(ctx context.Context, buffer *model.AttemptBuffer) error
	AppendSolve(ctx context.Context, buffer *model.SolveBuffer) error
	AppendHintUsage(ctx context.Context, buffer *model.HintUsageBuffer) error

	Pending(ctx context.Context) (bool, error)
	Snapshot(ctx context.Context) (*BufferSnapshot, error)

	// DeleteSnapshot removes exactly the rows of a consumed batch. It runs
	// only after the batch committed; rows buffered in the meantime stay.
	DeleteSnapshot(ctx context.Context, snapshot *BufferSnapshot) error
}

type bufferRepository struct {
	db *gorm.DB
}

func NewBufferRepository(db *gorm.DB) BufferRepository {
	return &bufferRepository{db: db}
}

func (r *bufferRepository) AppendAttempt(ctx context.Context, buffer *model.AttemptBuffer) error {
	return r.db.WithContext(ctx).Create(buffer).Error
}

func (r *bufferRepository) AppendSolve(ctx context.Context, buffer *model.SolveBuffer) error {
	return r.db.WithContext(ctx).Create(buffer).Error
}

func (r *bufferRepository) AppendHintUsage(ctx context.Context, buffer *model.HintUsageBuffer) error {
	return r.db.WithContext(ctx).Create(buffer).Error
}

func (r *bufferRepository) Pending(ctx context.Context) (bool, error) {
	for _, m := range []interface{}{&model.AttemptBuffer{}, &model.SolveBuffer{}, &model.HintUsageBuffer{}} {
		var count int64
		if err := r.db.WithContext(ctx).Model(m).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *bufferRepository) Snapshot(ctx context.Context) (*BufferSnapshot, error) {
	var snapshot BufferSnapshot

	if err := r.db.WithContext(ctx).Order("id").Find(&snapshot.Attempts).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Order("id").Find(&snapshot.Solves).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Order("id").Find(&snapshot.HintUsages).Error; err != nil {
		return nil, err
	}

	return &snapshot, nil
}

func (r *bufferRepository) DeleteSnapshot(ctx context.Context, snapshot *BufferSnapshot) error {
	if len(snapshot.Attempts) > 0 {
		ids := make([]uint, 0, len(snapshot.Attempts))
		for _, b := range snapshot.Attempts {
			ids = append(ids, b.ID)
		}
		if err := r.db.WithContext(ctx).Delete(&model.AttemptBuffer{}, ids).Error; err != nil {
			return err
		}
	}
	if len(snapshot.Solves) > 0 {
		ids := make([]uint, 0, len(snapshot.Solves))
		for _, b := range snapshot.Solves {
			ids = append(ids, b.ID)
		}
		if err := r.db.WithContext(ctx).Delete(&model.SolveBuffer{}, ids).Error; err != nil {
			return err
		}
	}
	if len(snapshot.HintUsages) > 0 {
		ids := make([]uint, 0, len(snapshot.HintUsages))
		for _, b := range snapshot.HintUsages {
			ids = append(ids, b.ID)
		}
		if err := r.db.WithContext(ctx).Delete(&model.HintUsageBuffer{}, ids).Error; err != nil {
			return err
		}
	}
	return nil
}
