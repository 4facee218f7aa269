package dto

import (
	"github.com/google/uuid"
)

type SubmitFeedbackRequest struct {
	JobID   string  `json:"job_id" binding:"required,uuid"`
	Rating  int     `json:"rating" binding:"required,min=1,max=5"`
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

type FeedbackResponse struct {
	ID         uuid.UUID `json:"id"`
	JobID      uuid.UUID `json:"job_id"`
	WorkerID   uuid.UUID `json:"worker_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  string    `json:"created_at"`
}
