package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationStatus is the closed status set for job applications.
type ApplicationStatus string

const (
	StatusApplied   ApplicationStatus = "applied"
	StatusAccepted  ApplicationStatus = "accepted"
	StatusRejected  ApplicationStatus = "rejected"
	StatusCompleted ApplicationStatus = "completed"
)

// Valid reports whether s is one of the four persisted statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusApplied, StatusAccepted, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Application is a worker's request to be hired for a job. The composite
// unique index makes a second apply for the same (job, worker) pair fail at
// the database instead of relying on a client-side pre-check.
type Application struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	JobID     uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_applications_job_worker" json:"job_id"`
	WorkerID  uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_applications_job_worker" json:"worker_id"`
	Status    ApplicationStatus `gorm:"size:20;not null;default:'applied';index" json:"status"`
	Message   *string           `gorm:"type:text" json:"message,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	Job    *Job    `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Worker *Worker `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
