package dto

import (
	"github.com/google/uuid"
	commonDto "kaamkhoj.in/hireease/pkg/dto"
)

type CreateJobRequest struct {
	Title        string `json:"title" binding:"required,max=120"`
	Description  string `json:"description" binding:"required,max=10000"`
	Category     string `json:"category" binding:"required,max=100"`
	SkillNeeded  string `json:"skill_needed" binding:"required,max=100"`
	City         string `json:"city" binding:"required,max=100"`
	WageOffered  int    `json:"wage_offered" binding:"omitempty,min=0"`
	DurationDays int    `json:"duration_days" binding:"omitempty,min=1,max=365"`
	// NotifyWorkers broadcasts a new_job notification to available workers
	// matching the skill, the in-process equivalent of the old
	// notify-workers function call.
	NotifyWorkers bool `json:"notify_workers"`
}

type UpdateJobRequest struct {
	Title        string `json:"title" binding:"required,max=120"`
	Description  string `json:"description" binding:"required,max=10000"`
	Category     string `json:"category" binding:"required,max=100"`
	SkillNeeded  string `json:"skill_needed" binding:"required,max=100"`
	City         string `json:"city" binding:"required,max=100"`
	WageOffered  int    `json:"wage_offered" binding:"omitempty,min=0"`
	DurationDays int    `json:"duration_days" binding:"omitempty,min=1,max=365"`
}

type JobResponse struct {
	ID           uuid.UUID                `json:"id"`
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	Category     string                   `json:"category"`
	SkillNeeded  string                   `json:"skill_needed"`
	City         string                   `json:"city"`
	WageOffered  int                      `json:"wage_offered"`
	DurationDays int                      `json:"duration_days"`
	IsOpen       bool                     `json:"is_open"`
	Employer     commonDto.AuthorResponse `json:"employer"`
	CreatedAt    string                   `json:"created_at"`
	UpdatedAt    string                   `json:"updated_at"`
}

type PaginatedJobResponse struct {
	Data []JobResponse            `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
