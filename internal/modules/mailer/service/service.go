package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"kaamkhoj.in/hireease/internal/config"
	"kaamkhoj.in/hireease/internal/entity"
	"kaamkhoj.in/hireease/internal/modules/mailer/repository"
)

const (
	batchSize = 50

	// First retry waits 5 minutes, then doubles per attempt up to a day.
	retryBase = 5 * time.Minute
	retryCap  = 24 * time.Hour
)

// Sender pushes one queued email to the delivery endpoint.
type Sender interface {
	Send(ctx context.Context, email *entity.EmailOutbox) error
}

// httpSender POSTs the outbox payload to the notification-sender endpoint
// with a service bearer token.
type httpSender struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPSender(cfg *config.Config) Sender {
	return &httpSender{
		url:    cfg.SendNotificationURL,
		token:  cfg.ServiceToken,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *httpSender) Send(ctx context.Context, email *entity.EmailOutbox) error {
	if s.url == "" {
		return fmt.Errorf("send notification url not configured")
	}

	body := email.Payload
	if len(body) == 0 {
		fallback := map[string]interface{}{
			"userId":    email.UserID,
			"message":   email.Message,
			"type":      email.Type,
			"sendEmail": true,
		}
		if email.RelatedID != nil {
			fallback["relatedId"] = email.RelatedID
		}
		var err error
		body, err = json.Marshal(fallback)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var parsed struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
			return fmt.Errorf("sender returned %d: %s", resp.StatusCode, parsed.Error)
		}
		return fmt.Errorf("sender returned %d", resp.StatusCode)
	}

	return nil
}

// Worker drains the email outbox on a fixed interval and retries failures
// with exponential backoff.
type Worker struct {
	repo        repository.OutboxRepository
	sender      Sender
	interval    time.Duration
	maxAttempts int
}

func NewWorker(repo repository.OutboxRepository, sender Sender, interval time.Duration, maxAttempts int) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Worker{
		repo:        repo,
		sender:      sender,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Start blocks until ctx is cancelled. Run it in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	rows, err := w.repo.ClaimDue(ctx, time.Now(), batchSize)
	if err != nil {
		log.Printf("outbox: claim failed: %v", err)
		return
	}

	for i := range rows {
		w.deliver(ctx, &rows[i])
	}
}

func (w *Worker) deliver(ctx context.Context, email *entity.EmailOutbox) {
	if err := w.sender.Send(ctx, email); err != nil {
		attempts := email.Attempts + 1
		permanent := attempts >= w.maxAttempts
		next := time.Now().Add(Backoff(attempts))

		if markErr := w.repo.MarkFailed(ctx, email.ID, attempts, err.Error(), next, permanent); markErr != nil {
			log.Printf("outbox: mark failed for %s: %v", email.ID, markErr)
		}
		if permanent {
			log.Printf("outbox: giving up on %s after %d attempts: %v", email.ID, attempts, err)
		}
		return
	}

	if err := w.repo.MarkSent(ctx, email.ID); err != nil {
		log.Printf("outbox: mark sent for %s: %v", email.ID, err)
	}
}

// Backoff returns the wait before the next delivery attempt: retryBase
// doubled per prior attempt, capped at retryCap.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	shift := uint(attempts - 1)
	if shift > 16 {
		shift = 16
	}
	d := retryBase << shift
	if d > retryCap || d <= 0 {
		return retryCap
	}
	return d
}
