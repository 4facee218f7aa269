package dto

import (
	"github.com/google/uuid"
)

type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required,uuid"`
	Body       string `json:"body" binding:"required,min=1,max=4000"`
}

type MessageResponse struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Body       string    `json:"body"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  string    `json:"created_at"`
}

// ConversationSummary is one row of the inbox: the counterpart plus the
// latest message exchanged with them.
type ConversationSummary struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name,omitempty"`
	LastMessage string    `json:"last_message"`
	LastAt      string    `json:"last_at"`
	Unread      int64     `json:"unread"`
}
