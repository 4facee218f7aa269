package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
)

type ListFilter struct {
	Category string
	City     string
	Search   string
	SortBy   string
	Offset   int
	Limit    int
	// ExcludeAccepted hides jobs that already hold an accepted application,
	// which is how the public browse list behaves.
	ExcludeAccepted bool
}

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	FindAll(ctx context.Context, filter ListFilter) ([]*entity.Job, int64, error)
	FindByEmployer(ctx context.Context, employerID uuid.UUID, offset, limit int) ([]*entity.Job, int64, error)
	Update(ctx context.Context, job *entity.Job) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountOpen(ctx context.Context) (int64, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	var job entity.Job
	if err := r.db.WithContext(ctx).
		Preload("Employer").
		Preload("Employer.Profile").
		First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) FindAll(ctx context.Context, filter ListFilter) ([]*entity.Job, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Job{}).
		Preload("Employer").
		Where("is_open = ?", true)

	if filter.Category != "" {
		query = query.Where("category ILIKE ?", filter.Category)
	}
	if filter.City != "" {
		query = query.Where("city ILIKE ?", filter.City)
	}
	if filter.Search != "" {
		query = query.Where("title ILIKE ? OR description ILIKE ?",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.ExcludeAccepted {
		query = query.Where(
			"NOT EXISTS (SELECT 1 FROM applications WHERE applications.job_id = jobs.id AND applications.status = ?)",
			entity.StatusAccepted,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.SortBy == "wage" {
		query = query.Order("wage_offered DESC").Order("created_at DESC")
	} else {
		query = query.Order("created_at DESC")
	}

	var jobs []*entity.Job
	if err := query.Offset(filter.Offset).Limit(filter.Limit).Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

func (r *jobRepository) FindByEmployer(ctx context.Context, employerID uuid.UUID, offset, limit int) ([]*entity.Job, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Job{}).
		Where("employer_id = ?", employerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []*entity.Job
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

func (r *jobRepository) Update(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *jobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Job{}, "id = ?", id).Error
}

func (r *jobRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Job{}).
		Where("is_open = ?", true).
		Count(&count).Error
	return count, err
}
