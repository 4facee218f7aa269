package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"kaamkhoj.in/hireease/internal/config"
	"kaamkhoj.in/hireease/internal/entity"
)

type fakeOutboxRepo struct {
	due    []entity.EmailOutbox
	sent   []uuid.UUID
	failed []struct {
		id        uuid.UUID
		attempts  int
		lastError string
		next      time.Time
		permanent bool
	}
}

func (f *fakeOutboxRepo) Enqueue(ctx context.Context, e *entity.EmailOutbox) error { return nil }

func (f *fakeOutboxRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]entity.EmailOutbox, error) {
	return f.due, nil
}

func (f *fakeOutboxRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string, next time.Time, permanent bool) error {
	f.failed = append(f.failed, struct {
		id        uuid.UUID
		attempts  int
		lastError string
		next      time.Time
		permanent bool
	}{id, attempts, lastError, next, permanent})
	return nil
}

func (f *fakeOutboxRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	return 0, nil
}

type fakeSender struct {
	err   error
	calls int
}

func (f *fakeSender) Send(ctx context.Context, e *entity.EmailOutbox) error {
	f.calls++
	return f.err
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 5 * time.Minute},
		{2, 10 * time.Minute},
		{3, 20 * time.Minute},
		{4, 40 * time.Minute},
		{9, 1280 * time.Minute},
		{10, 24 * time.Hour},
		{50, 24 * time.Hour},
		{0, 5 * time.Minute},
	}

	for _, tc := range cases {
		if got := Backoff(tc.attempts); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempts, got, tc.want)
		}
	}
}

func TestDrainMarksSentOnSuccess(t *testing.T) {
	row := entity.EmailOutbox{ID: uuid.New(), Attempts: 0}
	repo := &fakeOutboxRepo{due: []entity.EmailOutbox{row}}
	sender := &fakeSender{}
	w := NewWorker(repo, sender, time.Minute, 5)

	w.drain(context.Background())

	if sender.calls != 1 {
		t.Fatalf("sender calls = %d, want 1", sender.calls)
	}
	if len(repo.sent) != 1 || repo.sent[0] != row.ID {
		t.Errorf("row not marked sent: %v", repo.sent)
	}
	if len(repo.failed) != 0 {
		t.Errorf("unexpected failure marks: %v", repo.failed)
	}
}

func TestDrainSchedulesRetryOnFailure(t *testing.T) {
	row := entity.EmailOutbox{ID: uuid.New(), Attempts: 1}
	repo := &fakeOutboxRepo{due: []entity.EmailOutbox{row}}
	sender := &fakeSender{err: errors.New("connection refused")}
	w := NewWorker(repo, sender, time.Minute, 5)

	before := time.Now()
	w.drain(context.Background())

	if len(repo.failed) != 1 {
		t.Fatalf("failure marks = %d, want 1", len(repo.failed))
	}
	mark := repo.failed[0]
	if mark.attempts != 2 {
		t.Errorf("attempts = %d, want 2", mark.attempts)
	}
	if mark.permanent {
		t.Error("second attempt must not be permanent")
	}
	wait := mark.next.Sub(before)
	if wait < 9*time.Minute || wait > 11*time.Minute {
		t.Errorf("retry scheduled %v out, want about 10m", wait)
	}
}

func TestDrainGivesUpAfterMaxAttempts(t *testing.T) {
	row := entity.EmailOutbox{ID: uuid.New(), Attempts: 4}
	repo := &fakeOutboxRepo{due: []entity.EmailOutbox{row}}
	sender := &fakeSender{err: errors.New("still down")}
	w := NewWorker(repo, sender, time.Minute, 5)

	w.drain(context.Background())

	if len(repo.failed) != 1 {
		t.Fatalf("failure marks = %d, want 1", len(repo.failed))
	}
	if !repo.failed[0].permanent {
		t.Error("fifth failure should be permanent")
	}
}

func TestHTTPSenderPostsPayloadWithBearer(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sender := NewHTTPSender(&config.Config{
		SendNotificationURL: ts.URL,
		ServiceToken:        "svc-token",
	})

	email := &entity.EmailOutbox{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Message: "You were hired",
		Type:    "job_accepted",
		Payload: []byte(`{"userId":"u","message":"You were hired","type":"job_accepted","sendEmail":true}`),
	}
	if err := sender.Send(context.Background(), email); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAuth != "Bearer svc-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["sendEmail"] != true || gotBody["type"] != "job_accepted" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestHTTPSenderSurfacesErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"smtp relay unavailable"}`))
	}))
	defer ts.Close()

	sender := NewHTTPSender(&config.Config{SendNotificationURL: ts.URL})

	err := sender.Send(context.Background(), &entity.EmailOutbox{ID: uuid.New(), UserID: uuid.New(), Message: "m", Type: "system"})
	if err == nil {
		t.Fatal("expected error on 502")
	}
	if got := err.Error(); got != "sender returned 502: smtp relay unavailable" {
		t.Errorf("err = %q", got)
	}
}
