package feedback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	appRepo "kaamkhoj.in/hireease/internal/modules/application/repository"
	fbDto "kaamkhoj.in/hireease/internal/modules/feedback/dto"
	fbRepo "kaamkhoj.in/hireease/internal/modules/feedback/repository"
	jobRepo "kaamkhoj.in/hireease/internal/modules/job/repository"
	notifService "kaamkhoj.in/hireease/internal/modules/notification/service"
	"kaamkhoj.in/hireease/pkg/apperror"
	commonDto "kaamkhoj.in/hireease/pkg/dto"
	"kaamkhoj.in/hireease/pkg/sanitize"
)

type ListResult struct {
	Items []fbDto.FeedbackResponse `json:"data"`
	Meta  commonDto.PaginationMeta `json:"meta"`
}

type Service interface {
	// Submit records a rating for the job's hired worker. Only a party to a
	// completed hire on that job may rate, and only once per job.
	Submit(ctx context.Context, authorID uuid.UUID, req fbDto.SubmitFeedbackRequest) (*fbDto.FeedbackResponse, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) (*ListResult, error)
}

type service struct {
	repo          fbRepo.FeedbackRepository
	appRepo       appRepo.ApplicationRepository
	jobRepo       jobRepo.JobRepository
	notifications notifService.NotificationService
}

func NewService(repo fbRepo.FeedbackRepository, applications appRepo.ApplicationRepository, jobs jobRepo.JobRepository, notifications notifService.NotificationService) Service {
	return &service{
		repo:          repo,
		appRepo:       applications,
		jobRepo:       jobs,
		notifications: notifications,
	}
}

func (s *service) Submit(ctx context.Context, authorID uuid.UUID, req fbDto.SubmitFeedbackRequest) (*fbDto.FeedbackResponse, error) {
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id: %w", apperror.ErrInvalidInput)
	}

	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	applications, err := s.appRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var hire *entity.Application
	for i := range applications {
		if applications[i].Status == entity.StatusCompleted {
			hire = &applications[i]
			break
		}
	}
	if hire == nil {
		return nil, fmt.Errorf("job has no completed hire to rate: %w", apperror.ErrConflict)
	}

	isEmployer := job.EmployerID == authorID
	isWorker := hire.Worker != nil && hire.Worker.UserID == authorID
	if !isEmployer && !isWorker {
		return nil, fmt.Errorf("not a party to this job: %w", apperror.ErrForbidden)
	}

	feedback := &entity.Feedback{
		JobID:    jobID,
		AuthorID: authorID,
		WorkerID: hire.WorkerID,
		Rating:   req.Rating,
	}
	if req.Comment != nil && *req.Comment != "" {
		comment := sanitize.Plain(*req.Comment)
		feedback.Comment = &comment
	}

	if err := s.repo.Create(ctx, feedback); err != nil {
		return nil, err
	}

	// Only the worker gets a ping; employers rate far more often than they
	// are rated.
	if isEmployer && hire.Worker != nil {
		go func(workerUserID, jobID uuid.UUID, rating int, title string) {
			n := &entity.Notification{
				UserID:    workerUserID,
				Message:   fmt.Sprintf("You received a %d-star rating for '%s'", rating, title),
				Type:      entity.TypeSystem,
				Category:  "feedback",
				RelatedID: &jobID,
				Priority:  entity.PriorityLow,
			}
			if err := s.notifications.Create(context.Background(), n); err != nil {
				log.Printf("failed to notify worker %s about rating: %v", workerUserID, err)
			}
		}(hire.Worker.UserID, jobID, req.Rating, job.Title)
	}

	return toResponse(feedback), nil
}

func (s *service) ListByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) (*ListResult, error) {
	if limit <= 0 {
		limit = 20
	}

	feedbacks, total, err := s.repo.ListByWorker(ctx, workerID, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]fbDto.FeedbackResponse, 0, len(feedbacks))
	for i := range feedbacks {
		items = append(items, *toResponse(&feedbacks[i]))
	}

	return &ListResult{
		Items: items,
		Meta:  commonDto.NewPaginationMeta(total, limit, offset),
	}, nil
}

func toResponse(f *entity.Feedback) *fbDto.FeedbackResponse {
	resp := &fbDto.FeedbackResponse{
		ID:        f.ID,
		JobID:     f.JobID,
		WorkerID:  f.WorkerID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
	if f.Author != nil {
		resp.AuthorName = f.Author.Username
		if f.Author.Profile != nil && f.Author.Profile.FullName != "" {
			resp.AuthorName = f.Author.Profile.FullName
		}
	}
	return resp
}
