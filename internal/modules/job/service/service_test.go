package job

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	jobDto "kaamkhoj.in/hireease/internal/modules/job/dto"
	"kaamkhoj.in/hireease/internal/modules/job/repository"
	workerRepo "kaamkhoj.in/hireease/internal/modules/worker/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
	commonDto "kaamkhoj.in/hireease/pkg/dto"
)

type fakeJobRepo struct {
	byID       map[uuid.UUID]*entity.Job
	lastFilter repository.ListFilter
	listed     []*entity.Job
	total      int64
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{byID: make(map[uuid.UUID]*entity.Job)}
}

func (f *fakeJobRepo) Create(ctx context.Context, j *entity.Job) error {
	j.ID = uuid.New()
	f.byID[j.ID] = j
	return nil
}

func (f *fakeJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	j, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobRepo) FindAll(ctx context.Context, filter repository.ListFilter) ([]*entity.Job, int64, error) {
	f.lastFilter = filter
	return f.listed, f.total, nil
}

func (f *fakeJobRepo) FindByEmployer(ctx context.Context, employerID uuid.UUID, offset, limit int) ([]*entity.Job, int64, error) {
	return nil, 0, nil
}

func (f *fakeJobRepo) Update(ctx context.Context, j *entity.Job) error {
	f.byID[j.ID] = j
	return nil
}

func (f *fakeJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeJobRepo) CountOpen(ctx context.Context) (int64, error) { return 0, nil }

type noopWorkerRepo struct{}

func (noopWorkerRepo) Create(ctx context.Context, w *entity.Worker) error { return nil }
func (noopWorkerRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Worker, error) {
	return nil, gorm.ErrRecordNotFound
}
func (noopWorkerRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Worker, error) {
	return nil, gorm.ErrRecordNotFound
}
func (noopWorkerRepo) FindAll(ctx context.Context, filter workerRepo.ListFilter) ([]*entity.Worker, int64, error) {
	return nil, 0, nil
}
func (noopWorkerRepo) FindBySkills(ctx context.Context, skills []string, city string) ([]*entity.Worker, error) {
	return nil, nil
}
func (noopWorkerRepo) Update(ctx context.Context, w *entity.Worker) error { return nil }
func (noopWorkerRepo) RatingStats(ctx context.Context, workerID uuid.UUID) (float64, int64, error) {
	return 0, 0, nil
}

func TestListJobsExcludesAcceptedJobs(t *testing.T) {
	repo := newFakeJobRepo()
	svc := NewService(repo, noopWorkerRepo{}, nil, nil)

	if _, err := svc.ListJobs(context.Background(), commonDto.JobFilter{City: "Pune"}); err != nil {
		t.Fatalf("ListJobs: %v", err)
	}

	if !repo.lastFilter.ExcludeAccepted {
		t.Error("public browse must exclude jobs with an accepted application")
	}
	if repo.lastFilter.City != "Pune" {
		t.Errorf("city filter = %q, want Pune", repo.lastFilter.City)
	}
	if repo.lastFilter.Limit != 10 || repo.lastFilter.Offset != 0 {
		t.Errorf("default pagination = limit %d offset %d", repo.lastFilter.Limit, repo.lastFilter.Offset)
	}
}

func TestCreateJobSanitizesAndDefaults(t *testing.T) {
	repo := newFakeJobRepo()
	svc := NewService(repo, noopWorkerRepo{}, nil, nil)
	employerID := uuid.New()

	resp, err := svc.CreateJob(context.Background(), employerID, jobDto.CreateJobRequest{
		Title:       "<script>alert(1)</script>Paint two rooms",
		Description: "Walls and ceiling",
		Category:    "painting",
		SkillNeeded: "painter",
		City:        "Nagpur",
		WageOffered: 900,
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if resp.Title != "Paint two rooms" {
		t.Errorf("title not sanitized: %q", resp.Title)
	}
	if resp.DurationDays != 1 {
		t.Errorf("duration defaulted to %d, want 1", resp.DurationDays)
	}
	if !resp.IsOpen {
		t.Error("new job must start open")
	}
}

func TestUpdateJobForeignEmployerForbidden(t *testing.T) {
	repo := newFakeJobRepo()
	svc := NewService(repo, noopWorkerRepo{}, nil, nil)

	owner := uuid.New()
	created, err := svc.CreateJob(context.Background(), owner, jobDto.CreateJobRequest{
		Title: "Fix roof", Description: "d", Category: "repair", SkillNeeded: "carpenter", City: "Pune", WageOffered: 700,
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	_, err = svc.UpdateJob(context.Background(), uuid.New(), created.ID, jobDto.UpdateJobRequest{
		Title: "x", Description: "y", Category: "repair", SkillNeeded: "carpenter", City: "Pune", WageOffered: 100,
	})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
