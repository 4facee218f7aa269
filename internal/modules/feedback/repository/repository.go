package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	"kaamkhoj.in/hireease/pkg/apperror"
)

type FeedbackRepository interface {
	// Create inserts the rating. A second rating by the same author for the
	// same job fails on the unique index.
	Create(ctx context.Context, feedback *entity.Feedback) error
	ListByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]entity.Feedback, int64, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *entity.Feedback) error {
	if err := r.db.WithContext(ctx).Create(feedback).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("feedback for this job: %w", apperror.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *feedbackRepository) ListByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]entity.Feedback, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).
		Model(&entity.Feedback{}).
		Where("worker_id = ?", workerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var feedbacks []entity.Feedback
	err := query.
		Preload("Author").
		Preload("Author.Profile").
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&feedbacks).Error
	return feedbacks, total, err
}
