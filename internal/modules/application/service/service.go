package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	appDto "kaamkhoj.in/hireease/internal/modules/application/dto"
	appRepo "kaamkhoj.in/hireease/internal/modules/application/repository"
	jobRepo "kaamkhoj.in/hireease/internal/modules/job/repository"
	notifService "kaamkhoj.in/hireease/internal/modules/notification/service"
	workerRepo "kaamkhoj.in/hireease/internal/modules/worker/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
	"kaamkhoj.in/hireease/pkg/ratelimiter"
	"kaamkhoj.in/hireease/pkg/sanitize"
)

type Service interface {
	// Apply creates an application with status applied for the caller's
	// worker card and notifies the employer. Duplicate (job, worker) pairs
	// fail with apperror.ErrDuplicate from the storage layer.
	Apply(ctx context.Context, userID uuid.UUID, req appDto.ApplyRequest) (*appDto.ApplicationResponse, error)
	// ExistsFor reports whether the caller's worker card already applied to
	// the job. Read-only; kept for UI pre-checks.
	ExistsFor(ctx context.Context, userID, jobID uuid.UUID) (bool, error)
	// UpdateStatus overwrites the status with any of the four values. Only
	// the employer owning the job may call it. Accepting goes through the
	// guarded path.
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status entity.ApplicationStatus) (*appDto.ApplicationResponse, error)
	// Accept marks the application accepted unless a sibling application
	// for the same job already is.
	Accept(ctx context.Context, userID, id uuid.UUID) (*appDto.ApplicationResponse, error)
	// MarkCompleted may be called by the employer or by the applicant.
	MarkCompleted(ctx context.Context, userID, id uuid.UUID) (*appDto.ApplicationResponse, error)
	// CompleteJob completes the job's accepted application. Sugar for
	// employers working from the job page instead of the application list.
	CompleteJob(ctx context.Context, userID, jobID uuid.UUID) (*appDto.ApplicationResponse, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]appDto.ApplicationResponse, error)
	ListByJob(ctx context.Context, userID, jobID uuid.UUID) ([]appDto.ApplicationResponse, error)
}

type service struct {
	repo          appRepo.ApplicationRepository
	jobRepo       jobRepo.JobRepository
	workerRepo    workerRepo.WorkerRepository
	notifications notifService.NotificationService
	redisClient   *redis.Client
	applyLimit    time.Duration
}

func NewService(repo appRepo.ApplicationRepository, jobRepository jobRepo.JobRepository, workerRepository workerRepo.WorkerRepository, notifications notifService.NotificationService, redisClient *redis.Client, applyLimit time.Duration) Service {
	if applyLimit <= 0 {
		applyLimit = 10 * time.Second
	}

	return &service{
		repo:          repo,
		jobRepo:       jobRepository,
		workerRepo:    workerRepository,
		notifications: notifications,
		redisClient:   redisClient,
		applyLimit:    applyLimit,
	}
}

func (s *service) Apply(ctx context.Context, userID uuid.UUID, req appDto.ApplyRequest) (*appDto.ApplicationResponse, error) {
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id: %w", apperror.ErrInvalidInput)
	}

	worker, err := s.workerRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("create a worker card before applying: %w", apperror.ErrForbidden)
		}
		return nil, err
	}

	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	if !job.IsOpen {
		return nil, fmt.Errorf("job is closed: %w", apperror.ErrConflict)
	}
	if job.EmployerID == userID {
		return nil, fmt.Errorf("cannot apply to your own job: %w", apperror.ErrForbidden)
	}

	if err := ratelimiter.CheckAndSet(ctx, s.redisClient, userID, "apply", s.applyLimit); err != nil {
		return nil, err
	}

	application := &entity.Application{
		JobID:    job.ID,
		WorkerID: worker.ID,
		Status:   entity.StatusApplied,
	}
	if req.Message != "" {
		msg := sanitize.Plain(req.Message)
		application.Message = &msg
	}

	if err := s.repo.Create(ctx, application); err != nil {
		// A failed apply should not burn the rate-limit window.
		ratelimiter.Release(ctx, s.redisClient, userID, "apply")
		return nil, err
	}

	application.Job = job
	application.Worker = worker

	// Fan-out: employer hears about the new application, the worker gets a
	// confirmation. Both best-effort.
	go func(app entity.Application, job entity.Job, worker entity.Worker) {
		ctx := context.Background()
		jobID := job.ID

		employerNote := &entity.Notification{
			UserID:    job.EmployerID,
			Message:   fmt.Sprintf("%s applied for '%s'", worker.Name, job.Title),
			Type:      entity.TypeNewApplication,
			Category:  "application",
			RelatedID: &jobID,
			Priority:  entity.PriorityHigh,
		}
		if err := s.notifications.Create(ctx, employerNote); err != nil {
			log.Printf("failed to notify employer about application %s: %v", app.ID, err)
		}

		workerNote := &entity.Notification{
			UserID:    worker.UserID,
			Message:   fmt.Sprintf("Your application for '%s' was submitted", job.Title),
			Type:      entity.TypeApplication,
			Category:  "application",
			RelatedID: &jobID,
			Priority:  entity.PriorityLow,
		}
		if err := s.notifications.Create(ctx, workerNote); err != nil {
			log.Printf("failed to confirm application %s to worker: %v", app.ID, err)
		}
	}(*application, *job, *worker)

	return toResponse(application), nil
}

func (s *service) ExistsFor(ctx context.Context, userID, jobID uuid.UUID) (bool, error) {
	worker, err := s.workerRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.repo.Exists(ctx, jobID, worker.ID)
}

func (s *service) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status entity.ApplicationStatus) (*appDto.ApplicationResponse, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, apperror.ErrInvalidInput)
	}

	if status == entity.StatusAccepted {
		return s.Accept(ctx, userID, id)
	}
	if status == entity.StatusCompleted {
		return s.MarkCompleted(ctx, userID, id)
	}

	application, err := s.findForEmployer(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	// Any transition between the four statuses is allowed; the employer
	// stays free to re-open or reject at will.
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	application.Status = status

	if status == entity.StatusRejected {
		s.notifyWorker(application, entity.TypeJobRejected,
			fmt.Sprintf("Your application for '%s' was not selected", application.Job.Title), false)
	}

	return toResponse(application), nil
}

func (s *service) Accept(ctx context.Context, userID, id uuid.UUID) (*appDto.ApplicationResponse, error) {
	// Ownership check first so a foreign employer gets 403, not 409.
	if _, err := s.findForEmployer(ctx, userID, id); err != nil {
		return nil, err
	}

	accepted, err := s.repo.Accept(ctx, id)
	if err != nil {
		return nil, err
	}

	application, err := s.repo.FindByID(ctx, accepted.ID)
	if err != nil {
		return nil, err
	}

	// The worker gets an in-app notification and an email.
	s.notifyWorker(application, entity.TypeJobAccepted,
		fmt.Sprintf("Congratulations! You were hired for '%s'", application.Job.Title), true)

	return toResponse(application), nil
}

func (s *service) MarkCompleted(ctx context.Context, userID, id uuid.UUID) (*appDto.ApplicationResponse, error) {
	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("application: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	// Either side of the hire may close it out.
	isEmployer := application.Job != nil && application.Job.EmployerID == userID
	isWorker := application.Worker != nil && application.Worker.UserID == userID
	if !isEmployer && !isWorker {
		return nil, fmt.Errorf("not a party to this application: %w", apperror.ErrForbidden)
	}

	if err := s.repo.UpdateStatus(ctx, id, entity.StatusCompleted); err != nil {
		return nil, err
	}
	application.Status = entity.StatusCompleted

	if application.Job != nil {
		job := *application.Job
		job.IsOpen = false
		if err := s.jobRepo.Update(ctx, &job); err != nil {
			log.Printf("failed to close job %s after completion: %v", job.ID, err)
		}
	}

	s.notifyWorker(application, entity.TypeJobCompleted,
		fmt.Sprintf("Job '%s' was marked completed", application.Job.Title), false)

	return toResponse(application), nil
}

func (s *service) CompleteJob(ctx context.Context, userID, jobID uuid.UUID) (*appDto.ApplicationResponse, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	if job.EmployerID != userID {
		return nil, fmt.Errorf("job belongs to another employer: %w", apperror.ErrForbidden)
	}

	applications, err := s.repo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	for i := range applications {
		if applications[i].Status == entity.StatusAccepted {
			return s.MarkCompleted(ctx, userID, applications[i].ID)
		}
	}

	return nil, fmt.Errorf("job has no accepted application: %w", apperror.ErrConflict)
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]appDto.ApplicationResponse, error) {
	worker, err := s.workerRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []appDto.ApplicationResponse{}, nil
		}
		return nil, err
	}

	applications, err := s.repo.ListByWorker(ctx, worker.ID)
	if err != nil {
		return nil, err
	}

	return toResponses(applications), nil
}

func (s *service) ListByJob(ctx context.Context, userID, jobID uuid.UUID) ([]appDto.ApplicationResponse, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	if job.EmployerID != userID {
		return nil, fmt.Errorf("job belongs to another employer: %w", apperror.ErrForbidden)
	}

	applications, err := s.repo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return toResponses(applications), nil
}

// findForEmployer loads the application and verifies the caller owns the job.
func (s *service) findForEmployer(ctx context.Context, userID, id uuid.UUID) (*entity.Application, error) {
	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("application: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if application.Job == nil || application.Job.EmployerID != userID {
		return nil, fmt.Errorf("application belongs to another employer's job: %w", apperror.ErrForbidden)
	}

	return application, nil
}

// notifyWorker fans a status-change notification out to the applicant in a
// goroutine. withEmail additionally queues an outbound email through the
// outbox. Failures never reach the caller.
func (s *service) notifyWorker(application *entity.Application, notifType entity.NotificationType, message string, withEmail bool) {
	if application.Worker == nil {
		return
	}

	go func(userID, jobID uuid.UUID) {
		ctx := context.Background()
		n := &entity.Notification{
			UserID:    userID,
			Message:   message,
			Type:      notifType,
			Category:  "application",
			RelatedID: &jobID,
			Priority:  entity.PriorityHigh,
		}

		var err error
		if withEmail {
			err = s.notifications.CreateAndEmail(ctx, n)
		} else {
			err = s.notifications.Create(ctx, n)
		}
		if err != nil {
			log.Printf("failed to notify worker %s (%s): %v", userID, notifType, err)
		}
	}(application.Worker.UserID, application.JobID)
}

func toResponse(a *entity.Application) *appDto.ApplicationResponse {
	resp := &appDto.ApplicationResponse{
		ID:        a.ID,
		JobID:     a.JobID,
		WorkerID:  a.WorkerID,
		Status:    string(a.Status),
		Message:   a.Message,
		CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: a.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if a.Job != nil {
		resp.Job = &appDto.JobSummary{
			ID:          a.Job.ID,
			Title:       a.Job.Title,
			Category:    a.Job.Category,
			City:        a.Job.City,
			WageOffered: a.Job.WageOffered,
		}
	}
	if a.Worker != nil {
		resp.Worker = &appDto.WorkerSummary{
			ID:    a.Worker.ID,
			Name:  a.Worker.Name,
			Skill: a.Worker.Skill,
			City:  a.Worker.City,
			Phone: a.Worker.Phone,
		}
	}
	return resp
}

func toResponses(applications []entity.Application) []appDto.ApplicationResponse {
	responses := make([]appDto.ApplicationResponse, 0, len(applications))
	for i := range applications {
		responses = append(responses, *toResponse(&applications[i]))
	}
	return responses
}
