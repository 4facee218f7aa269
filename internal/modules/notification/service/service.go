package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"kaamkhoj.in/hireease/internal/entity"
	notifRepo "kaamkhoj.in/hireease/internal/modules/notification/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
	"kaamkhoj.in/hireease/pkg/dto"
)

const unreadCacheTTL = time.Minute

type ListResult struct {
	Items []entity.Notification `json:"data"`
	Meta  dto.PaginationMeta    `json:"meta"`
}

type NotificationService interface {
	// Create persists the notification and pushes it to the user's live
	// feed. The notification type is normalized to the closed tag set.
	Create(ctx context.Context, notification *entity.Notification) error
	// CreateAndEmail additionally queues an outbound email in the same
	// transaction as the notification row.
	CreateAndEmail(ctx context.Context, notification *entity.Notification) error
	List(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) (*ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID, notifType, category string) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteExpired(ctx context.Context, userID uuid.UUID) (int64, error)
	// StartExpirySweeper runs the server-side sweep for all users until ctx
	// is cancelled.
	StartExpirySweeper(ctx context.Context, interval time.Duration)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	defaultTTL  time.Duration
}

// NewNotificationService builds the service. defaultTTL is stamped as
// expires_at on every new notification; zero disables expiry.
func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, defaultTTL time.Duration) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		defaultTTL:  defaultTTL,
	}
}

func userChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

func unreadCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("notif:unread:%s", userID.String())
}

func (s *notificationService) prepare(notification *entity.Notification) {
	notification.Type = entity.NormalizeNotificationType(string(notification.Type))
	if notification.Priority == "" {
		notification.Priority = entity.PriorityMedium
	}
	if notification.ExpiresAt == nil && s.defaultTTL > 0 {
		exp := time.Now().Add(s.defaultTTL)
		notification.ExpiresAt = &exp
	}
}

func (s *notificationService) Create(ctx context.Context, notification *entity.Notification) error {
	s.prepare(notification)

	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	s.afterWrite(ctx, notification)
	return nil
}

func (s *notificationService) CreateAndEmail(ctx context.Context, notification *entity.Notification) error {
	s.prepare(notification)

	payload, _ := json.Marshal(map[string]any{
		"userId":    notification.UserID,
		"message":   notification.Message,
		"type":      notification.Type,
		"relatedId": notification.RelatedID,
		"sendEmail": true,
	})

	email := &entity.EmailOutbox{
		UserID:        notification.UserID,
		Message:       notification.Message,
		Type:          string(notification.Type),
		Payload:       datatypes.JSON(payload),
		Status:        entity.OutboxPending,
		NextAttemptAt: time.Now(),
	}

	if err := s.repo.CreateWithOutbox(ctx, notification, email); err != nil {
		return err
	}

	s.afterWrite(ctx, notification)
	return nil
}

// afterWrite publishes the row to the user's live channel and drops the
// cached unread count. Both are best-effort.
func (s *notificationService) afterWrite(ctx context.Context, notification *entity.Notification) {
	if s.redisClient == nil {
		return
	}

	if payload, err := json.Marshal(notification); err == nil {
		s.redisClient.Publish(ctx, userChannel(notification.UserID), payload)
	}
	s.redisClient.Del(ctx, unreadCacheKey(notification.UserID))
}

func (s *notificationService) invalidateUnread(ctx context.Context, userID uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, unreadCacheKey(userID))
	}
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) (*ListResult, error) {
	// Opportunistic sweep of this user's expired rows, like the old
	// client-triggered cleanup but server-side.
	if n, err := s.repo.DeleteExpired(ctx, userID, time.Now()); err != nil {
		log.Printf("failed to sweep expired notifications for %s: %v", userID, err)
	} else if n > 0 {
		s.invalidateUnread(ctx, userID)
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := notifRepo.ListFilter{
		Type:     filter.Type,
		Category: filter.Category,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}

	items, total, err := s.repo.GetByUserID(ctx, userID, repoFilter)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Items: items,
		Meta:  dto.NewPaginationMeta(total, filter.Limit, filter.Offset),
	}, nil
}

// UnreadCount serves from the Redis cache when possible. The database stays
// the source of truth; every mutation drops the cache instead of adjusting
// it, so two sessions can never drift apart for longer than the TTL.
func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, unreadCacheKey(userID)).Result(); err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.redisClient != nil {
		s.redisClient.SetEx(ctx, unreadCacheKey(userID), strconv.FormatInt(count, 10), unreadCacheTTL)
	}

	return count, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	affected, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	// Marking an already-read notification is a no-op; don't churn the cache.
	if affected > 0 {
		s.invalidateUnread(ctx, userID)
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID, notifType, category string) (int64, error) {
	affected, err := s.repo.MarkAllAsRead(ctx, userID, notifType, category)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.invalidateUnread(ctx, userID)
	}
	return affected, nil
}

func (s *notificationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("notification not found: %w", apperror.ErrNotFound)
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

func (s *notificationService) DeleteExpired(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, userID, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidateUnread(ctx, userID)
	}
	return n, nil
}

func (s *notificationService) StartExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.repo.DeleteAllExpired(ctx, time.Now())
			if err != nil {
				log.Printf("notification expiry sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("notification expiry sweep removed %d rows", n)
			}
		}
	}
}
