package job

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	jobDto "kaamkhoj.in/hireease/internal/modules/job/dto"
	"kaamkhoj.in/hireease/internal/modules/job/repository"
	notifService "kaamkhoj.in/hireease/internal/modules/notification/service"
	search "kaamkhoj.in/hireease/internal/modules/search/service"
	workerRepo "kaamkhoj.in/hireease/internal/modules/worker/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
	commonDto "kaamkhoj.in/hireease/pkg/dto"
	"kaamkhoj.in/hireease/pkg/sanitize"
)

type Service interface {
	CreateJob(ctx context.Context, employerID uuid.UUID, req jobDto.CreateJobRequest) (*jobDto.JobResponse, error)
	UpdateJob(ctx context.Context, employerID, jobID uuid.UUID, req jobDto.UpdateJobRequest) (*jobDto.JobResponse, error)
	GetJob(ctx context.Context, id uuid.UUID) (*jobDto.JobResponse, error)
	// ListJobs is the public browse list: open jobs without an accepted
	// application.
	ListJobs(ctx context.Context, filter commonDto.JobFilter) (*jobDto.PaginatedJobResponse, error)
	MyJobs(ctx context.Context, employerID uuid.UUID, page, limit int) (*jobDto.PaginatedJobResponse, error)
	DeleteJob(ctx context.Context, employerID, jobID uuid.UUID) error
}

type service struct {
	repo          repository.JobRepository
	workerRepo    workerRepo.WorkerRepository
	notifications notifService.NotificationService
	search        search.SearchService
}

func NewService(repo repository.JobRepository, workerRepository workerRepo.WorkerRepository, notifications notifService.NotificationService, searchSvc search.SearchService) Service {
	return &service{
		repo:          repo,
		workerRepo:    workerRepository,
		notifications: notifications,
		search:        searchSvc,
	}
}

func (s *service) CreateJob(ctx context.Context, employerID uuid.UUID, req jobDto.CreateJobRequest) (*jobDto.JobResponse, error) {
	duration := req.DurationDays
	if duration == 0 {
		duration = 1
	}

	job := &entity.Job{
		EmployerID:   employerID,
		Title:        sanitize.Plain(req.Title),
		Description:  sanitize.RichText(req.Description),
		Category:     sanitize.Plain(req.Category),
		SkillNeeded:  sanitize.Plain(req.SkillNeeded),
		City:         sanitize.Plain(req.City),
		WageOffered:  req.WageOffered,
		DurationDays: duration,
		IsOpen:       true,
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	s.indexAsync(job)

	if req.NotifyWorkers {
		go s.broadcastNewJob(*job)
	}

	return s.toResponse(job), nil
}

// broadcastNewJob fans a new_job notification out to available workers with
// a matching skill. Best-effort; a failed notification is only logged.
func (s *service) broadcastNewJob(job entity.Job) {
	ctx := context.Background()

	workers, err := s.workerRepo.FindBySkills(ctx, []string{job.SkillNeeded}, job.City)
	if err != nil {
		log.Printf("new job broadcast: failed to match workers: %v", err)
		return
	}

	for _, w := range workers {
		jobID := job.ID
		n := &entity.Notification{
			UserID:    w.UserID,
			Message:   fmt.Sprintf("New %s job in %s: %s", job.SkillNeeded, job.City, job.Title),
			Type:      entity.TypeNewJob,
			Category:  "job",
			RelatedID: &jobID,
			Priority:  entity.PriorityMedium,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			log.Printf("new job broadcast: failed to notify worker %s: %v", w.UserID, err)
		}
	}
}

func (s *service) UpdateJob(ctx context.Context, employerID, jobID uuid.UUID, req jobDto.UpdateJobRequest) (*jobDto.JobResponse, error) {
	job, err := s.findOwned(ctx, employerID, jobID)
	if err != nil {
		return nil, err
	}

	job.Title = sanitize.Plain(req.Title)
	job.Description = sanitize.RichText(req.Description)
	job.Category = sanitize.Plain(req.Category)
	job.SkillNeeded = sanitize.Plain(req.SkillNeeded)
	job.City = sanitize.Plain(req.City)
	job.WageOffered = req.WageOffered
	if req.DurationDays > 0 {
		job.DurationDays = req.DurationDays
	}

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, err
	}

	s.indexAsync(job)

	return s.toResponse(job), nil
}

func (s *service) GetJob(ctx context.Context, id uuid.UUID) (*jobDto.JobResponse, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return s.toResponse(job), nil
}

func (s *service) ListJobs(ctx context.Context, filter commonDto.JobFilter) (*jobDto.PaginatedJobResponse, error) {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = 10
	}

	jobs, total, err := s.repo.FindAll(ctx, repository.ListFilter{
		Category:        filter.Category,
		City:            filter.City,
		Search:          filter.Search,
		SortBy:          filter.SortBy,
		Offset:          (filter.Page - 1) * filter.Limit,
		Limit:           filter.Limit,
		ExcludeAccepted: true,
	})
	if err != nil {
		return nil, err
	}

	return s.toPaginated(jobs, total, filter.Page, filter.Limit), nil
}

func (s *service) MyJobs(ctx context.Context, employerID uuid.UUID, page, limit int) (*jobDto.PaginatedJobResponse, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 10
	}

	jobs, total, err := s.repo.FindByEmployer(ctx, employerID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	return s.toPaginated(jobs, total, page, limit), nil
}

func (s *service) DeleteJob(ctx context.Context, employerID, jobID uuid.UUID) error {
	job, err := s.findOwned(ctx, employerID, jobID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, job.ID); err != nil {
		return err
	}

	if s.search != nil {
		go func(id string) {
			if err := s.search.DeleteJob(id); err != nil {
				log.Printf("failed to remove job %s from index: %v", id, err)
			}
		}(job.ID.String())
	}

	return nil
}

func (s *service) findOwned(ctx context.Context, employerID, jobID uuid.UUID) (*entity.Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if job.EmployerID != employerID {
		return nil, fmt.Errorf("job belongs to another employer: %w", apperror.ErrForbidden)
	}

	return job, nil
}

func (s *service) indexAsync(job *entity.Job) {
	if s.search == nil {
		return
	}
	go func(j entity.Job) {
		if err := s.search.IndexJob(&j); err != nil {
			log.Printf("failed to index job %s: %v", j.ID, err)
		}
	}(*job)
}

func (s *service) toResponse(job *entity.Job) *jobDto.JobResponse {
	resp := &jobDto.JobResponse{
		ID:           job.ID,
		Title:        job.Title,
		Description:  job.Description,
		Category:     job.Category,
		SkillNeeded:  job.SkillNeeded,
		City:         job.City,
		WageOffered:  job.WageOffered,
		DurationDays: job.DurationDays,
		IsOpen:       job.IsOpen,
		CreatedAt:    job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    job.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if job.Employer != nil {
		resp.Employer = commonDto.AuthorResponse{
			ID:        job.Employer.ID,
			Username:  job.Employer.Username,
			AvatarURL: job.Employer.AvatarURL,
		}
	}
	return resp
}

func (s *service) toPaginated(jobs []*entity.Job, total int64, page, limit int) *jobDto.PaginatedJobResponse {
	responses := make([]jobDto.JobResponse, 0, len(jobs))
	for _, j := range jobs {
		responses = append(responses, *s.toResponse(j))
	}
	return &jobDto.PaginatedJobResponse{
		Data: responses,
		Meta: commonDto.NewPaginationMeta(total, limit, (page-1)*limit),
	}
}
