package dto

import (
	"github.com/google/uuid"
)

type ApplyRequest struct {
	JobID   string `json:"job_id" binding:"required,uuid"`
	Message string `json:"message" binding:"omitempty,max=2000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=applied accepted rejected completed"`
}

type JobSummary struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	City        string    `json:"city"`
	WageOffered int       `json:"wage_offered"`
}

type WorkerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Skill string    `json:"skill"`
	City  string    `json:"city"`
	Phone string    `json:"phone,omitempty"`
}

type ApplicationResponse struct {
	ID        uuid.UUID      `json:"id"`
	JobID     uuid.UUID      `json:"job_id"`
	WorkerID  uuid.UUID      `json:"worker_id"`
	Status    string         `json:"status"`
	Message   *string        `json:"message,omitempty"`
	Job       *JobSummary    `json:"job,omitempty"`
	Worker    *WorkerSummary `json:"worker,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}
