package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
)

// ConversationRow is the raw inbox aggregation: the counterpart user id, the
// newest message exchanged with them and the caller's unread count.
type ConversationRow struct {
	PartnerID   uuid.UUID
	LastMessage string
	LastAt      time.Time
	Unread      int64
}

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	// Conversation returns the two-way history between the two users,
	// oldest first.
	Conversation(ctx context.Context, userID, partnerID uuid.UUID, limit, offset int) ([]entity.Message, error)
	// MarkConversationRead flags every message the partner sent to the user
	// as read and reports how many rows changed.
	MarkConversationRead(ctx context.Context, userID, partnerID uuid.UUID) (int64, error)
	// Conversations lists the caller's inbox, newest conversation first.
	Conversations(ctx context.Context, userID uuid.UUID) ([]ConversationRow, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *entity.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) Conversation(ctx context.Context, userID, partnerID uuid.UUID, limit, offset int) ([]entity.Message, error) {
	var messages []entity.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, partnerID, partnerID, userID).
		Order("created_at asc").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, userID, partnerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", userID, partnerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *messageRepository) Conversations(ctx context.Context, userID uuid.UUID) ([]ConversationRow, error) {
	// One row per counterpart: latest message via DISTINCT ON, unread via a
	// correlated count.
	var rows []ConversationRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT * FROM (
			SELECT DISTINCT ON (partner_id)
				CASE WHEN sender_id = @uid THEN receiver_id ELSE sender_id END AS partner_id,
				body AS last_message,
				created_at AS last_at,
				(SELECT COUNT(*) FROM messages m2
					WHERE m2.receiver_id = @uid
					AND m2.sender_id = CASE WHEN messages.sender_id = @uid THEN messages.receiver_id ELSE messages.sender_id END
					AND m2.is_read = false) AS unread
			FROM messages
			WHERE sender_id = @uid OR receiver_id = @uid
			ORDER BY partner_id, created_at DESC
		) conversations
		ORDER BY last_at DESC`,
		map[string]interface{}{"uid": userID},
	).Scan(&rows).Error
	return rows, err
}

func (r *messageRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
