package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"kaamkhoj.in/hireease/internal/entity"
	"kaamkhoj.in/hireease/pkg/apperror"
)

// ErrSiblingAccepted is returned by Accept when another application for the
// same job has already been accepted.
var ErrSiblingAccepted = fmt.Errorf("another application for this job is already accepted: %w", apperror.ErrConflict)

type ApplicationRepository interface {
	// Create inserts the application. A second application for the same
	// (job, worker) pair fails on the unique index and comes back wrapped
	// in apperror.ErrDuplicate.
	Create(ctx context.Context, application *entity.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]entity.Application, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.Application, error)
	Exists(ctx context.Context, jobID, workerID uuid.UUID) (bool, error)
	// UpdateStatus overwrites the status unconditionally and bumps
	// updated_at. Transition legality is not checked here.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ApplicationStatus) error
	// Accept flips the application to accepted inside a transaction that
	// locks the row and fails with ErrSiblingAccepted if the job already
	// holds a different accepted application.
	Accept(ctx context.Context, id uuid.UUID) (*entity.Application, error)
	CountByStatus(ctx context.Context, status entity.ApplicationStatus) (int64, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, application *entity.Application) error {
	if err := r.db.WithContext(ctx).Create(application).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("application for this job: %w", apperror.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *applicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error) {
	var application entity.Application
	if err := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Worker").
		First(&application, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *applicationRepository) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]entity.Application, error) {
	var applications []entity.Application
	err := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Job.Employer").
		Where("worker_id = ?", workerID).
		Order("created_at desc").
		Find(&applications).Error
	return applications, err
}

func (r *applicationRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.Application, error) {
	var applications []entity.Application
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Where("job_id = ?", jobID).
		Order("created_at desc").
		Find(&applications).Error
	return applications, err
}

func (r *applicationRepository) Exists(ctx context.Context, jobID, workerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Application{}).
		Where("job_id = ? AND worker_id = ?", jobID, workerID).
		Count(&count).Error
	return count > 0, err
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ApplicationStatus) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Application{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("application: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *applicationRepository) Accept(ctx context.Context, id uuid.UUID) (*entity.Application, error) {
	var application entity.Application

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&application, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("application: %w", apperror.ErrNotFound)
			}
			return err
		}

		var accepted int64
		if err := tx.Model(&entity.Application{}).
			Where("job_id = ? AND status = ? AND id <> ?", application.JobID, entity.StatusAccepted, id).
			Count(&accepted).Error; err != nil {
			return err
		}
		if accepted > 0 {
			return ErrSiblingAccepted
		}

		if err := tx.Model(&entity.Application{}).
			Where("id = ?", id).
			Update("status", entity.StatusAccepted).Error; err != nil {
			return err
		}

		application.Status = entity.StatusAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &application, nil
}

func (r *applicationRepository) CountByStatus(ctx context.Context, status entity.ApplicationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Application{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
