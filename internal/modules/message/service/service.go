package message

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	msgDto "kaamkhoj.in/hireease/internal/modules/message/dto"
	msgRepo "kaamkhoj.in/hireease/internal/modules/message/repository"
	notifService "kaamkhoj.in/hireease/internal/modules/notification/service"
	userRepo "kaamkhoj.in/hireease/internal/modules/user/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
	"kaamkhoj.in/hireease/pkg/ratelimiter"
	"kaamkhoj.in/hireease/pkg/sanitize"
)

const defaultConversationLimit = 50

type Service interface {
	// Send delivers a direct message and raises a notification for the
	// receiver. Sending to yourself or to an unknown user fails.
	Send(ctx context.Context, senderID uuid.UUID, req msgDto.SendMessageRequest) (*msgDto.MessageResponse, error)
	// Conversation returns the history with partnerID and marks the
	// partner's messages to the caller as read.
	Conversation(ctx context.Context, userID, partnerID uuid.UUID, limit, offset int) ([]msgDto.MessageResponse, error)
	Inbox(ctx context.Context, userID uuid.UUID) ([]msgDto.ConversationSummary, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo          msgRepo.MessageRepository
	userRepo      userRepo.UserRepository
	notifications notifService.NotificationService
	redisClient   *redis.Client
	sendLimit     time.Duration
}

func NewService(repo msgRepo.MessageRepository, users userRepo.UserRepository, notifications notifService.NotificationService, redisClient *redis.Client, sendLimit time.Duration) Service {
	if sendLimit <= 0 {
		sendLimit = 2 * time.Second
	}
	return &service{
		repo:          repo,
		userRepo:      users,
		notifications: notifications,
		redisClient:   redisClient,
		sendLimit:     sendLimit,
	}
}

func (s *service) Send(ctx context.Context, senderID uuid.UUID, req msgDto.SendMessageRequest) (*msgDto.MessageResponse, error) {
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("invalid receiver id: %w", apperror.ErrInvalidInput)
	}
	if receiverID == senderID {
		return nil, fmt.Errorf("cannot message yourself: %w", apperror.ErrInvalidInput)
	}

	receiver, err := s.userRepo.FindByID(ctx, receiverID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("receiver: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	body := sanitize.Plain(req.Body)
	if body == "" {
		return nil, fmt.Errorf("message body is empty: %w", apperror.ErrInvalidInput)
	}

	if err := ratelimiter.CheckAndSet(ctx, s.redisClient, senderID, "message", s.sendLimit); err != nil {
		return nil, err
	}

	message := &entity.Message{
		SenderID:   senderID,
		ReceiverID: receiver.ID,
		Body:       body,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		ratelimiter.Release(ctx, s.redisClient, senderID, "message")
		return nil, err
	}

	sender, err := s.userRepo.FindByID(ctx, senderID.String())
	senderName := "Someone"
	if err == nil {
		senderName = sender.Username
		if sender.Profile != nil && sender.Profile.FullName != "" {
			senderName = sender.Profile.FullName
		}
	}

	go func(receiverID, senderID uuid.UUID, senderName string) {
		n := &entity.Notification{
			UserID:    receiverID,
			Message:   fmt.Sprintf("New message from %s", senderName),
			Type:      entity.TypeMessage,
			Category:  "message",
			RelatedID: &senderID,
			Priority:  entity.PriorityMedium,
		}
		if err := s.notifications.Create(context.Background(), n); err != nil {
			log.Printf("failed to notify %s about new message: %v", receiverID, err)
		}
	}(receiver.ID, senderID, senderName)

	return toResponse(message), nil
}

func (s *service) Conversation(ctx context.Context, userID, partnerID uuid.UUID, limit, offset int) ([]msgDto.MessageResponse, error) {
	if limit <= 0 {
		limit = defaultConversationLimit
	}

	messages, err := s.repo.Conversation(ctx, userID, partnerID, limit, offset)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.MarkConversationRead(ctx, userID, partnerID); err != nil {
		log.Printf("failed to mark conversation %s/%s read: %v", userID, partnerID, err)
	}

	responses := make([]msgDto.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, *toResponse(&messages[i]))
	}
	return responses, nil
}

func (s *service) Inbox(ctx context.Context, userID uuid.UUID) ([]msgDto.ConversationSummary, error) {
	rows, err := s.repo.Conversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]msgDto.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summary := msgDto.ConversationSummary{
			UserID:      row.PartnerID,
			LastMessage: row.LastMessage,
			LastAt:      row.LastAt.Format(time.RFC3339),
			Unread:      row.Unread,
		}
		if partner, err := s.userRepo.FindByID(ctx, row.PartnerID.String()); err == nil {
			summary.Username = partner.Username
			if partner.Profile != nil {
				summary.FullName = partner.Profile.FullName
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func toResponse(m *entity.Message) *msgDto.MessageResponse {
	return &msgDto.MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
}
