package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType is the closed tag set for notifications. Unknown strings
// coming from older clients fold into TypeOther via Normalize.
type NotificationType string

const (
	TypeApplication         NotificationType = "application"
	TypeNewApplication      NotificationType = "new_application"
	TypeJobAccepted         NotificationType = "job_accepted"
	TypeJobRejected         NotificationType = "job_rejected"
	TypeJobApplication      NotificationType = "job_application"
	TypeJobCompleted        NotificationType = "job_completed"
	TypeNewJob              NotificationType = "new_job"
	TypeJobUpdated          NotificationType = "job_updated"
	TypeMessage             NotificationType = "message"
	TypeSystem              NotificationType = "system"
	TypeContact             NotificationType = "contact"
	TypeContactRequest      NotificationType = "contact_request"
	TypeProfileCreated      NotificationType = "profile_created"
	TypeApplicationReceived NotificationType = "application_received"
	TypeOther               NotificationType = "other"
)

var knownNotificationTypes = map[NotificationType]struct{}{
	TypeApplication: {}, TypeNewApplication: {}, TypeJobAccepted: {},
	TypeJobRejected: {}, TypeJobApplication: {}, TypeJobCompleted: {},
	TypeNewJob: {}, TypeJobUpdated: {}, TypeMessage: {}, TypeSystem: {},
	TypeContact: {}, TypeContactRequest: {}, TypeProfileCreated: {},
	TypeApplicationReceived: {}, TypeOther: {},
}

// NormalizeNotificationType maps an arbitrary tag to a known type,
// falling back to TypeOther.
func NormalizeNotificationType(s string) NotificationType {
	t := NotificationType(s)
	if _, ok := knownNotificationTypes[t]; ok {
		return t
	}
	return TypeOther
}

// Notification priorities, selected client-side for sound/icon.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

type Notification struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Message        string           `gorm:"type:text;not null" json:"message"`
	Type           NotificationType `gorm:"size:50;not null;index" json:"type"`
	Category       string           `gorm:"size:50;index" json:"category,omitempty"`
	RelatedID      *uuid.UUID       `gorm:"type:uuid" json:"related_id,omitempty"`
	IsRead         bool             `gorm:"not null;default:false;index" json:"is_read"`
	Priority       string           `gorm:"size:10;default:'medium'" json:"priority,omitempty"`
	AdditionalData datatypes.JSON   `gorm:"type:jsonb" json:"additional_data,omitempty"`
	ExpiresAt      *time.Time       `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
