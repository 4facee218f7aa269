package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	appDto "kaamkhoj.in/hireease/internal/modules/application/dto"
	appRepo "kaamkhoj.in/hireease/internal/modules/application/repository"
	jobRepo "kaamkhoj.in/hireease/internal/modules/job/repository"
	notifService "kaamkhoj.in/hireease/internal/modules/notification/service"
	workerRepo "kaamkhoj.in/hireease/internal/modules/worker/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
	commonDto "kaamkhoj.in/hireease/pkg/dto"
)

type fakeAppRepo struct {
	mu           sync.Mutex
	byID         map[uuid.UUID]*entity.Application
	createErr    error
	acceptErr    error
	created      []*entity.Application
	statusWrites []entity.ApplicationStatus
}

func newFakeAppRepo() *fakeAppRepo {
	return &fakeAppRepo{byID: make(map[uuid.UUID]*entity.Application)}
}

func (f *fakeAppRepo) put(a *entity.Application) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.byID[a.ID] = a
}

func (f *fakeAppRepo) Create(ctx context.Context, a *entity.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	f.created = append(f.created, a)
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAppRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAppRepo) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Application
	for _, a := range f.byID {
		if a.WorkerID == workerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAppRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Application
	for _, a := range f.byID {
		if a.JobID == jobID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAppRepo) Exists(ctx context.Context, jobID, workerID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.JobID == jobID && a.WorkerID == workerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ApplicationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("application: %w", apperror.ErrNotFound)
	}
	a.Status = status
	f.statusWrites = append(f.statusWrites, status)
	return nil
}

func (f *fakeAppRepo) Accept(ctx context.Context, id uuid.UUID) (*entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("application: %w", apperror.ErrNotFound)
	}
	a.Status = entity.StatusAccepted
	cp := *a
	return &cp, nil
}

func (f *fakeAppRepo) CountByStatus(ctx context.Context, status entity.ApplicationStatus) (int64, error) {
	return 0, nil
}

type fakeJobRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*entity.Job
	updated []*entity.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{byID: make(map[uuid.UUID]*entity.Job)}
}

func (f *fakeJobRepo) put(j *entity.Job) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	f.byID[j.ID] = j
}

func (f *fakeJobRepo) Create(ctx context.Context, j *entity.Job) error { f.put(j); return nil }

func (f *fakeJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobRepo) FindAll(ctx context.Context, filter jobRepo.ListFilter) ([]*entity.Job, int64, error) {
	return nil, 0, nil
}

func (f *fakeJobRepo) FindByEmployer(ctx context.Context, employerID uuid.UUID, offset, limit int) ([]*entity.Job, int64, error) {
	return nil, 0, nil
}

func (f *fakeJobRepo) Update(ctx context.Context, j *entity.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	f.updated = append(f.updated, &cp)
	f.byID[j.ID] = j
	return nil
}

func (f *fakeJobRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeJobRepo) CountOpen(ctx context.Context) (int64, error)   { return 0, nil }

type fakeWorkerRepo struct {
	byUser map[uuid.UUID]*entity.Worker
}

func newFakeWorkerRepo() *fakeWorkerRepo {
	return &fakeWorkerRepo{byUser: make(map[uuid.UUID]*entity.Worker)}
}

func (f *fakeWorkerRepo) put(w *entity.Worker) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	f.byUser[w.UserID] = w
}

func (f *fakeWorkerRepo) Create(ctx context.Context, w *entity.Worker) error { f.put(w); return nil }

func (f *fakeWorkerRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Worker, error) {
	for _, w := range f.byUser {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeWorkerRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Worker, error) {
	w, ok := f.byUser[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return w, nil
}

func (f *fakeWorkerRepo) FindAll(ctx context.Context, filter workerRepo.ListFilter) ([]*entity.Worker, int64, error) {
	return nil, 0, nil
}

func (f *fakeWorkerRepo) FindBySkills(ctx context.Context, skills []string, city string) ([]*entity.Worker, error) {
	return nil, nil
}

func (f *fakeWorkerRepo) Update(ctx context.Context, w *entity.Worker) error { return nil }

func (f *fakeWorkerRepo) RatingStats(ctx context.Context, workerID uuid.UUID) (float64, int64, error) {
	return 0, 0, nil
}

// fakeNotifier records every notification the service fans out.
type fakeNotifier struct {
	mu      sync.Mutex
	created []entity.Notification
	emailed []entity.Notification
}

func (f *fakeNotifier) Create(ctx context.Context, n *entity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeNotifier) CreateAndEmail(ctx context.Context, n *entity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emailed = append(f.emailed, *n)
	return nil
}

func (f *fakeNotifier) List(ctx context.Context, userID uuid.UUID, filter commonDto.NotificationFilter) (*notifService.ListResult, error) {
	return &notifService.ListResult{}, nil
}

func (f *fakeNotifier) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeNotifier) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error { return nil }

func (f *fakeNotifier) MarkAllAsRead(ctx context.Context, userID uuid.UUID, notifType, category string) (int64, error) {
	return 0, nil
}

func (f *fakeNotifier) Delete(ctx context.Context, userID, id uuid.UUID) error { return nil }

func (f *fakeNotifier) DeleteExpired(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeNotifier) StartExpirySweeper(ctx context.Context, interval time.Duration) {}

func (f *fakeNotifier) snapshot() ([]entity.Notification, []entity.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	created := append([]entity.Notification(nil), f.created...)
	emailed := append([]entity.Notification(nil), f.emailed...)
	return created, emailed
}

// waitFor polls cond until it holds or the deadline passes. Fan-out runs in
// goroutines, so tests have to wait for it.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

type fixture struct {
	apps    *fakeAppRepo
	jobs    *fakeJobRepo
	workers *fakeWorkerRepo
	notif   *fakeNotifier
	svc     Service

	employerID   uuid.UUID
	workerUserID uuid.UUID
	worker       *entity.Worker
	job          *entity.Job
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		apps:         newFakeAppRepo(),
		jobs:         newFakeJobRepo(),
		workers:      newFakeWorkerRepo(),
		notif:        &fakeNotifier{},
		employerID:   uuid.New(),
		workerUserID: uuid.New(),
	}

	f.worker = &entity.Worker{UserID: f.workerUserID, Name: "Ramesh", Skill: "mason", City: "Pune"}
	f.workers.put(f.worker)

	f.job = &entity.Job{EmployerID: f.employerID, Title: "Build compound wall", City: "Pune", IsOpen: true}
	f.jobs.put(f.job)

	f.svc = NewService(f.apps, f.jobs, f.workers, f.notif, nil, time.Second)
	return f
}

func (f *fixture) apply(t *testing.T) *appDto.ApplicationResponse {
	t.Helper()
	resp, err := f.svc.Apply(context.Background(), f.workerUserID, appDto.ApplyRequest{
		JobID:   f.job.ID.String(),
		Message: "I have 8 years of experience",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return resp
}

func TestApplyCreatesApplicationAndNotifiesBothSides(t *testing.T) {
	f := newFixture(t)

	resp := f.apply(t)

	if resp.Status != string(entity.StatusApplied) {
		t.Errorf("status = %q, want %q", resp.Status, entity.StatusApplied)
	}
	if resp.JobID != f.job.ID || resp.WorkerID != f.worker.ID {
		t.Errorf("response references wrong job/worker")
	}

	waitFor(t, func() bool {
		created, _ := f.notif.snapshot()
		return len(created) == 2
	})

	created, emailed := f.notif.snapshot()
	if len(emailed) != 0 {
		t.Errorf("apply should not queue email, got %d", len(emailed))
	}

	var employerNote, workerNote *entity.Notification
	for i := range created {
		switch created[i].UserID {
		case f.employerID:
			employerNote = &created[i]
		case f.workerUserID:
			workerNote = &created[i]
		}
	}

	if employerNote == nil {
		t.Fatal("employer was not notified")
	}
	if employerNote.Type != entity.TypeNewApplication {
		t.Errorf("employer notification type = %q, want %q", employerNote.Type, entity.TypeNewApplication)
	}
	if employerNote.RelatedID == nil || *employerNote.RelatedID != f.job.ID {
		t.Errorf("employer notification should reference the job")
	}

	if workerNote == nil {
		t.Fatal("worker confirmation missing")
	}
	if workerNote.Type != entity.TypeApplication {
		t.Errorf("worker notification type = %q, want %q", workerNote.Type, entity.TypeApplication)
	}
}

func TestApplyDuplicateSurfacesConflict(t *testing.T) {
	f := newFixture(t)
	f.apps.createErr = fmt.Errorf("application for this job: %w", apperror.ErrDuplicate)

	_, err := f.svc.Apply(context.Background(), f.workerUserID, appDto.ApplyRequest{JobID: f.job.ID.String()})
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	time.Sleep(20 * time.Millisecond)
	created, _ := f.notif.snapshot()
	if len(created) != 0 {
		t.Errorf("failed apply must not notify anyone, got %d notifications", len(created))
	}
}

func TestApplyRejectedForOwnJob(t *testing.T) {
	f := newFixture(t)
	f.workers.put(&entity.Worker{UserID: f.employerID, Name: "Self", Skill: "mason", City: "Pune"})

	_, err := f.svc.Apply(context.Background(), f.employerID, appDto.ApplyRequest{JobID: f.job.ID.String()})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestApplyRejectedForClosedJob(t *testing.T) {
	f := newFixture(t)
	f.job.IsOpen = false

	_, err := f.svc.Apply(context.Background(), f.workerUserID, appDto.ApplyRequest{JobID: f.job.ID.String()})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestApplyRequiresWorkerCard(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Apply(context.Background(), uuid.New(), appDto.ApplyRequest{JobID: f.job.ID.String()})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestExistsForIsSideEffectFree(t *testing.T) {
	f := newFixture(t)
	f.apply(t)

	before := len(f.apps.created)
	for i := 0; i < 3; i++ {
		applied, err := f.svc.ExistsFor(context.Background(), f.workerUserID, f.job.ID)
		if err != nil {
			t.Fatalf("ExistsFor: %v", err)
		}
		if !applied {
			t.Fatal("ExistsFor = false after apply")
		}
	}
	if len(f.apps.created) != before {
		t.Error("ExistsFor must not create rows")
	}

	applied, err := f.svc.ExistsFor(context.Background(), uuid.New(), f.job.ID)
	if err != nil || applied {
		t.Errorf("ExistsFor for stranger = (%v, %v), want (false, nil)", applied, err)
	}
}

func TestAcceptNotifiesWorkerWithEmail(t *testing.T) {
	f := newFixture(t)
	resp := f.apply(t)
	f.linkApplication(resp.ID)

	accepted, err := f.svc.Accept(context.Background(), f.employerID, resp.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != string(entity.StatusAccepted) {
		t.Errorf("status = %q, want accepted", accepted.Status)
	}

	waitFor(t, func() bool {
		_, emailed := f.notif.snapshot()
		return len(emailed) == 1
	})

	_, emailed := f.notif.snapshot()
	if emailed[0].UserID != f.workerUserID {
		t.Errorf("acceptance email went to %s, want worker %s", emailed[0].UserID, f.workerUserID)
	}
	if emailed[0].Type != entity.TypeJobAccepted {
		t.Errorf("type = %q, want %q", emailed[0].Type, entity.TypeJobAccepted)
	}
}

func TestAcceptSiblingAlreadyAccepted(t *testing.T) {
	f := newFixture(t)
	resp := f.apply(t)
	f.linkApplication(resp.ID)
	f.apps.acceptErr = appRepo.ErrSiblingAccepted

	_, err := f.svc.Accept(context.Background(), f.employerID, resp.ID)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	_, emailed := f.notif.snapshot()
	if len(emailed) != 0 {
		t.Error("failed accept must not email the worker")
	}
}

func TestAcceptByForeignEmployerForbidden(t *testing.T) {
	f := newFixture(t)
	resp := f.apply(t)
	f.linkApplication(resp.ID)

	_, err := f.svc.Accept(context.Background(), uuid.New(), resp.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestUpdateStatusAllowsAnyTransition(t *testing.T) {
	f := newFixture(t)
	resp := f.apply(t)
	f.linkApplication(resp.ID)

	// accepted -> applied -> rejected -> applied all go through
	for _, status := range []entity.ApplicationStatus{
		entity.StatusAccepted,
		entity.StatusApplied,
		entity.StatusRejected,
		entity.StatusApplied,
	} {
		updated, err := f.svc.UpdateStatus(context.Background(), f.employerID, resp.ID, status)
		if err != nil {
			t.Fatalf("UpdateStatus(%s): %v", status, err)
		}
		if updated.Status != string(status) {
			t.Errorf("status = %q, want %q", updated.Status, status)
		}
	}
}

func TestUpdateStatusUnknownValue(t *testing.T) {
	f := newFixture(t)
	resp := f.apply(t)
	f.linkApplication(resp.ID)

	_, err := f.svc.UpdateStatus(context.Background(), f.employerID, resp.ID, "cancelled")
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRejectNotifiesWorker(t *testing.T) {
	f := newFixture(t)
	resp := f.apply(t)
	f.linkApplication(resp.ID)

	if _, err := f.svc.UpdateStatus(context.Background(), f.employerID, resp.ID, entity.StatusRejected); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	waitFor(t, func() bool {
		created, _ := f.notif.snapshot()
		for _, n := range created {
			if n.Type == entity.TypeJobRejected && n.UserID == f.workerUserID {
				return true
			}
		}
		return false
	})
}

func TestMarkCompletedByWorkerClosesJob(t *testing.T) {
	f := newFixture(t)
	resp := f.apply(t)
	f.linkApplication(resp.ID)

	done, err := f.svc.MarkCompleted(context.Background(), f.workerUserID, resp.ID)
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if done.Status != string(entity.StatusCompleted) {
		t.Errorf("status = %q, want completed", done.Status)
	}

	f.jobs.mu.Lock()
	defer f.jobs.mu.Unlock()
	if len(f.jobs.updated) == 0 || f.jobs.updated[len(f.jobs.updated)-1].IsOpen {
		t.Error("completing the hire should close the job")
	}
}

func TestMarkCompletedByStrangerForbidden(t *testing.T) {
	f := newFixture(t)
	resp := f.apply(t)
	f.linkApplication(resp.ID)

	_, err := f.svc.MarkCompleted(context.Background(), uuid.New(), resp.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestCompleteJobUsesAcceptedApplication(t *testing.T) {
	f := newFixture(t)
	resp := f.apply(t)
	f.linkApplication(resp.ID)

	// no accepted application yet
	if _, err := f.svc.CompleteJob(context.Background(), f.employerID, f.job.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict before acceptance", err)
	}

	if _, err := f.svc.Accept(context.Background(), f.employerID, resp.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	done, err := f.svc.CompleteJob(context.Background(), f.employerID, f.job.ID)
	if err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	if done.ID != resp.ID || done.Status != string(entity.StatusCompleted) {
		t.Errorf("CompleteJob completed %s with status %s", done.ID, done.Status)
	}
}

func TestListByJobForeignEmployerForbidden(t *testing.T) {
	f := newFixture(t)
	f.apply(t)

	_, err := f.svc.ListByJob(context.Background(), uuid.New(), f.job.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	list, err := f.svc.ListByJob(context.Background(), f.employerID, f.job.ID)
	if err != nil {
		t.Fatalf("ListByJob: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}
}

// linkApplication attaches job and worker to the stored row the way the real
// repository's preloads would.
func (f *fixture) linkApplication(id uuid.UUID) {
	f.apps.mu.Lock()
	defer f.apps.mu.Unlock()
	a := f.apps.byID[id]
	a.Job = f.job
	a.Worker = f.worker
}
