package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
)

type ListFilter struct {
	Skill     string
	City      string
	Search    string
	Available *bool
	Offset    int
	Limit     int
}

type WorkerRepository interface {
	Create(ctx context.Context, worker *entity.Worker) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Worker, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Worker, error)
	FindAll(ctx context.Context, filter ListFilter) ([]*entity.Worker, int64, error)
	// FindBySkills returns available workers whose skill matches any of the
	// given values, used for new-job broadcast.
	FindBySkills(ctx context.Context, skills []string, city string) ([]*entity.Worker, error)
	Update(ctx context.Context, worker *entity.Worker) error
	RatingStats(ctx context.Context, workerID uuid.UUID) (avg float64, count int64, err error)
}

type workerRepository struct {
	db *gorm.DB
}

func NewWorkerRepository(db *gorm.DB) WorkerRepository {
	return &workerRepository{db: db}
}

func (r *workerRepository) Create(ctx context.Context, worker *entity.Worker) error {
	return r.db.WithContext(ctx).Create(worker).Error
}

func (r *workerRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Worker, error) {
	var worker entity.Worker
	if err := r.db.WithContext(ctx).
		Preload("User").
		First(&worker, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *workerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Worker, error) {
	var worker entity.Worker
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&worker).Error; err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *workerRepository) FindAll(ctx context.Context, filter ListFilter) ([]*entity.Worker, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Worker{})

	if filter.Skill != "" {
		query = query.Where("skill ILIKE ?", filter.Skill)
	}
	if filter.City != "" {
		query = query.Where("city ILIKE ?", filter.City)
	}
	if filter.Available != nil {
		query = query.Where("available = ?", *filter.Available)
	}
	if filter.Search != "" {
		query = query.Where("name ILIKE ? OR skill ILIKE ? OR about ILIKE ?",
			"%"+filter.Search+"%", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var workers []*entity.Worker
	if err := query.
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&workers).Error; err != nil {
		return nil, 0, err
	}

	return workers, total, nil
}

func (r *workerRepository) FindBySkills(ctx context.Context, skills []string, city string) ([]*entity.Worker, error) {
	query := r.db.WithContext(ctx).
		Where("available = ?", true)

	if len(skills) > 0 {
		query = query.Where("skill IN ?", skills)
	}
	if city != "" {
		query = query.Where("city ILIKE ?", city)
	}

	var workers []*entity.Worker
	if err := query.Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}

func (r *workerRepository) Update(ctx context.Context, worker *entity.Worker) error {
	return r.db.WithContext(ctx).Save(worker).Error
}

func (r *workerRepository) RatingStats(ctx context.Context, workerID uuid.UUID) (float64, int64, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&entity.Feedback{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("worker_id = ?", workerID).
		Scan(&row).Error
	return row.Avg, row.Count, err
}
