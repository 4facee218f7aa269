package dto

import (
	"io"

	"github.com/google/uuid"
)

type CreateWorkerRequest struct {
	Name            string `json:"name" binding:"required,max=100"`
	Skill           string `json:"skill" binding:"required,max=100"`
	City            string `json:"city" binding:"required,max=100"`
	Phone           string `json:"phone" binding:"omitempty,max=20"`
	DailyWage       int    `json:"daily_wage" binding:"omitempty,min=0"`
	YearsExperience int    `json:"years_experience" binding:"omitempty,min=0,max=60"`
	About           string `json:"about" binding:"omitempty,max=2000"`
}

type UpdateWorkerRequest struct {
	Name            string `json:"name" binding:"required,max=100"`
	Skill           string `json:"skill" binding:"required,max=100"`
	City            string `json:"city" binding:"required,max=100"`
	Phone           string `json:"phone" binding:"omitempty,max=20"`
	DailyWage       int    `json:"daily_wage" binding:"omitempty,min=0"`
	YearsExperience int    `json:"years_experience" binding:"omitempty,min=0,max=60"`
	Available       *bool  `json:"available"`
	About           string `json:"about" binding:"omitempty,max=2000"`
}

type PhotoFile struct {
	Reader   io.Reader
	FileName string
}

type WorkerResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Skill           string    `json:"skill"`
	City            string    `json:"city"`
	Phone           string    `json:"phone,omitempty"`
	DailyWage       int       `json:"daily_wage"`
	YearsExperience int       `json:"years_experience"`
	Available       bool      `json:"available"`
	PhotoURL        *string   `json:"photo_url,omitempty"`
	About           *string   `json:"about,omitempty"`
	AverageRating   float64   `json:"average_rating"`
	RatingCount     int64     `json:"rating_count"`
	CreatedAt       string    `json:"created_at"`
}
