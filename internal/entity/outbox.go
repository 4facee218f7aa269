package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outbox delivery states.
const (
	OutboxPending         = "pending"
	OutboxSent            = "sent"
	OutboxFailed          = "failed"
	OutboxFailedPermanent = "failed_permanent"
)

// EmailOutbox is a queued outbound email. Rows are written alongside the
// notification that requested mail and drained by the mailer worker, so a
// dead sender endpoint never loses a message.
type EmailOutbox struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Message       string         `gorm:"type:text;not null" json:"message"`
	Type          string         `gorm:"size:50;not null" json:"type"`
	RelatedID     *uuid.UUID     `gorm:"type:uuid" json:"related_id,omitempty"`
	Payload       datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	Status        string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	LastError     *string        `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt time.Time      `gorm:"not null;index" json:"next_attempt_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *EmailOutbox) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
