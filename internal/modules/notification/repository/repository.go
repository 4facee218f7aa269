package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
)

// ListFilter narrows a notification page. Empty fields are ignored.
type ListFilter struct {
	Type     string
	Category string
	Limit    int
	Offset   int
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	// CreateWithOutbox inserts the notification and its email outbox row in
	// one transaction, so a notification that requested mail can never exist
	// without its queued email (and vice versa).
	CreateWithOutbox(ctx context.Context, notification *entity.Notification, email *entity.EmailOutbox) error
	GetByUserID(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]entity.Notification, int64, error)
	// MarkAsRead and Delete match on both id and owner, so one user can
	// never touch another user's rows by guessing ids.
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) (int64, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID, notifType, category string) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteAllExpired(ctx context.Context, now time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) CreateWithOutbox(ctx context.Context, notification *entity.Notification, email *entity.EmailOutbox) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(notification).Error; err != nil {
			return err
		}
		email.RelatedID = notification.RelatedID
		return tx.Create(email).Error
	})
}

func (r *notificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]entity.Notification, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ?", userID)

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []entity.Notification
	if err := query.
		Order("created_at desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID, notifType, category string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false)

	if notifType != "" {
		query = query.Where("type = ?", notifType)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	res := query.Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at IS NOT NULL AND expires_at < ?", userID, now).
		Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) DeleteAllExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}
