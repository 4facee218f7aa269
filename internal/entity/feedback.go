package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback is a rating left after a completed job. One row per
// (job, author) so both sides can rate each other once.
type Feedback struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_job_author" json:"job_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_job_author" json:"author_id"`
	WorkerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"worker_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   *string   `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Job    *Job    `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Author *User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Worker *Worker `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
