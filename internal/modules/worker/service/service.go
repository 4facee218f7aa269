package worker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	search "kaamkhoj.in/hireease/internal/modules/search/service"
	workerDto "kaamkhoj.in/hireease/internal/modules/worker/dto"
	"kaamkhoj.in/hireease/internal/modules/worker/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
	commonDto "kaamkhoj.in/hireease/pkg/dto"
	"kaamkhoj.in/hireease/pkg/sanitize"
	"kaamkhoj.in/hireease/pkg/storage"
)

type PaginatedWorkers struct {
	Data []workerDto.WorkerResponse `json:"data"`
	Meta commonDto.PaginationMeta   `json:"meta"`
}

type Service interface {
	CreateWorker(ctx context.Context, userID uuid.UUID, req workerDto.CreateWorkerRequest) (*workerDto.WorkerResponse, error)
	UpdateWorker(ctx context.Context, userID uuid.UUID, req workerDto.UpdateWorkerRequest) (*workerDto.WorkerResponse, error)
	GetWorker(ctx context.Context, id uuid.UUID) (*workerDto.WorkerResponse, error)
	GetOwnWorker(ctx context.Context, userID uuid.UUID) (*workerDto.WorkerResponse, error)
	ListWorkers(ctx context.Context, filter commonDto.WorkerFilter) (*PaginatedWorkers, error)
	UploadPhoto(ctx context.Context, userID uuid.UUID, file workerDto.PhotoFile) (string, error)
}

type service struct {
	repo         repository.WorkerRepository
	imageStorage storage.ImageStorage
	search       search.SearchService
}

func NewService(repo repository.WorkerRepository, imageStorage storage.ImageStorage, searchSvc search.SearchService) Service {
	return &service{
		repo:         repo,
		imageStorage: imageStorage,
		search:       searchSvc,
	}
}

func (s *service) CreateWorker(ctx context.Context, userID uuid.UUID, req workerDto.CreateWorkerRequest) (*workerDto.WorkerResponse, error) {
	if _, err := s.repo.FindByUserID(ctx, userID); err == nil {
		return nil, fmt.Errorf("worker card already exists for this account: %w", apperror.ErrDuplicate)
	}

	worker := &entity.Worker{
		UserID:          userID,
		Name:            sanitize.Plain(req.Name),
		Skill:           sanitize.Plain(req.Skill),
		City:            sanitize.Plain(req.City),
		Phone:           req.Phone,
		DailyWage:       req.DailyWage,
		YearsExperience: req.YearsExperience,
		Available:       true,
	}
	if req.About != "" {
		about := sanitize.Plain(req.About)
		worker.About = &about
	}

	if err := s.repo.Create(ctx, worker); err != nil {
		return nil, err
	}

	s.indexAsync(worker)

	return s.toResponse(ctx, worker), nil
}

func (s *service) UpdateWorker(ctx context.Context, userID uuid.UUID, req workerDto.UpdateWorkerRequest) (*workerDto.WorkerResponse, error) {
	worker, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("worker card: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	worker.Name = sanitize.Plain(req.Name)
	worker.Skill = sanitize.Plain(req.Skill)
	worker.City = sanitize.Plain(req.City)
	worker.Phone = req.Phone
	worker.DailyWage = req.DailyWage
	worker.YearsExperience = req.YearsExperience
	if req.Available != nil {
		worker.Available = *req.Available
	}
	if req.About != "" {
		about := sanitize.Plain(req.About)
		worker.About = &about
	}

	if err := s.repo.Update(ctx, worker); err != nil {
		return nil, err
	}

	s.indexAsync(worker)

	return s.toResponse(ctx, worker), nil
}

func (s *service) GetWorker(ctx context.Context, id uuid.UUID) (*workerDto.WorkerResponse, error) {
	worker, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("worker: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return s.toResponse(ctx, worker), nil
}

func (s *service) GetOwnWorker(ctx context.Context, userID uuid.UUID) (*workerDto.WorkerResponse, error) {
	worker, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("worker card: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return s.toResponse(ctx, worker), nil
}

func (s *service) ListWorkers(ctx context.Context, filter commonDto.WorkerFilter) (*PaginatedWorkers, error) {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = 10
	}

	workers, total, err := s.repo.FindAll(ctx, repository.ListFilter{
		Skill:     filter.Skill,
		City:      filter.City,
		Search:    filter.Search,
		Available: filter.Available,
		Offset:    (filter.Page - 1) * filter.Limit,
		Limit:     filter.Limit,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]workerDto.WorkerResponse, 0, len(workers))
	for _, w := range workers {
		responses = append(responses, *s.toResponse(ctx, w))
	}

	return &PaginatedWorkers{
		Data: responses,
		Meta: commonDto.NewPaginationMeta(total, filter.Limit, (filter.Page-1)*filter.Limit),
	}, nil
}

func (s *service) UploadPhoto(ctx context.Context, userID uuid.UUID, file workerDto.PhotoFile) (string, error) {
	if s.imageStorage == nil {
		return "", fmt.Errorf("image storage not configured: %w", apperror.ErrInternal)
	}

	worker, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("worker card: %w", apperror.ErrNotFound)
		}
		return "", err
	}

	url, err := s.imageStorage.UploadImage(ctx, file.Reader, "worker_photos", file.FileName)
	if err != nil {
		return "", err
	}

	old := worker.PhotoURL
	worker.PhotoURL = &url
	if err := s.repo.Update(ctx, worker); err != nil {
		return "", err
	}

	if old != nil {
		go func(u string) {
			if err := s.imageStorage.DeleteImage(context.Background(), u); err != nil {
				log.Printf("failed to delete old worker photo: %v", err)
			}
		}(*old)
	}

	return url, nil
}

func (s *service) indexAsync(worker *entity.Worker) {
	if s.search == nil {
		return
	}
	go func(w entity.Worker) {
		if err := s.search.IndexWorker(&w); err != nil {
			log.Printf("failed to index worker %s: %v", w.ID, err)
		}
	}(*worker)
}

func (s *service) toResponse(ctx context.Context, w *entity.Worker) *workerDto.WorkerResponse {
	avg, count, err := s.repo.RatingStats(ctx, w.ID)
	if err != nil {
		log.Printf("failed to load rating stats for worker %s: %v", w.ID, err)
	}

	return &workerDto.WorkerResponse{
		ID:              w.ID,
		Name:            w.Name,
		Skill:           w.Skill,
		City:            w.City,
		Phone:           w.Phone,
		DailyWage:       w.DailyWage,
		YearsExperience: w.YearsExperience,
		Available:       w.Available,
		PhotoURL:        w.PhotoURL,
		About:           w.About,
		AverageRating:   avg,
		RatingCount:     count,
		CreatedAt:       w.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
