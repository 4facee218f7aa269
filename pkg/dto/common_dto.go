package dto

import "github.com/google/uuid"

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

// NewPaginationMeta derives the page math from an offset/limit query.
func NewPaginationMeta(total int64, limit, offset int) PaginationMeta {
	if limit <= 0 {
		limit = 1
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return PaginationMeta{
		CurrentPage: offset/limit + 1,
		TotalPages:  totalPages,
		TotalItems:  total,
		Limit:       limit,
	}
}

type JobFilter struct {
	Category string `form:"category"`
	City     string `form:"city"`
	Search   string `form:"search"`
	SortBy   string `form:"sort_by"` // "newest", "wage"
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type WorkerFilter struct {
	Skill     string `form:"skill"`
	City      string `form:"city"`
	Search    string `form:"search"`
	Available *bool  `form:"available"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type NotificationFilter struct {
	Type     string `form:"type"`
	Category string `form:"category"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

type AuthorResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
}
