package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
)

type OutboxRepository interface {
	Enqueue(ctx context.Context, email *entity.EmailOutbox) error
	// ClaimDue returns up to limit pending or failed rows whose retry time
	// has passed, oldest first.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]entity.EmailOutbox, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	// MarkFailed records the error and schedules the next attempt. Rows that
	// exhausted maxAttempts become failed_permanent and stop retrying.
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string, nextAttempt time.Time, permanent bool) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Enqueue(ctx context.Context, email *entity.EmailOutbox) error {
	return r.db.WithContext(ctx).Create(email).Error
}

func (r *outboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]entity.EmailOutbox, error) {
	var rows []entity.EmailOutbox
	err := r.db.WithContext(ctx).
		Where("status IN ? AND next_attempt_at <= ?", []string{entity.OutboxPending, entity.OutboxFailed}, now).
		Order("next_attempt_at asc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *outboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.EmailOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     entity.OutboxSent,
			"last_error": nil,
		}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string, nextAttempt time.Time, permanent bool) error {
	status := entity.OutboxFailed
	if permanent {
		status = entity.OutboxFailedPermanent
	}

	return r.db.WithContext(ctx).
		Model(&entity.EmailOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        attempts,
			"last_error":      lastError,
			"next_attempt_at": nextAttempt,
		}).Error
}

func (r *outboxRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.EmailOutbox{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
