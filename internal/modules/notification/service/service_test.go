package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"kaamkhoj.in/hireease/internal/entity"
	notifRepo "kaamkhoj.in/hireease/internal/modules/notification/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
	"kaamkhoj.in/hireease/pkg/dto"
)

type fakeNotifRepo struct {
	created       []*entity.Notification
	outbox        []*entity.EmailOutbox
	rows          []entity.Notification
	store         map[uuid.UUID]*entity.Notification
	total         int64
	lastFilter    notifRepo.ListFilter
	markAffected  int64
	lastMarkAll   [3]string
	unread        int64
	sweeps        int
	sweepAffected int64
}

func (f *fakeNotifRepo) seed(n *entity.Notification) {
	if f.store == nil {
		f.store = make(map[uuid.UUID]*entity.Notification)
	}
	f.store[n.ID] = n
}

func (f *fakeNotifRepo) Create(ctx context.Context, n *entity.Notification) error {
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotifRepo) CreateWithOutbox(ctx context.Context, n *entity.Notification, e *entity.EmailOutbox) error {
	f.created = append(f.created, n)
	f.outbox = append(f.outbox, e)
	return nil
}

func (f *fakeNotifRepo) GetByUserID(ctx context.Context, userID uuid.UUID, filter notifRepo.ListFilter) ([]entity.Notification, int64, error) {
	f.lastFilter = filter
	return f.rows, f.total, nil
}

func (f *fakeNotifRepo) MarkAsRead(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	n, ok := f.store[id]
	if !ok || n.UserID != userID || n.IsRead {
		return 0, nil
	}
	n.IsRead = true
	return 1, nil
}

func (f *fakeNotifRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID, notifType, category string) (int64, error) {
	f.lastMarkAll = [3]string{userID.String(), notifType, category}
	return f.markAffected, nil
}

func (f *fakeNotifRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.unread, nil
}

func (f *fakeNotifRepo) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	n, ok := f.store[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	delete(f.store, id)
	return 1, nil
}

func (f *fakeNotifRepo) DeleteExpired(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	f.sweeps++
	return f.sweepAffected, nil
}

func (f *fakeNotifRepo) DeleteAllExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func TestCreateNormalizesTypeAndStampsExpiry(t *testing.T) {
	repo := &fakeNotifRepo{}
	svc := NewNotificationService(repo, nil, 30*24*time.Hour)

	n := &entity.Notification{
		UserID:  uuid.New(),
		Message: "hello",
		Type:    "some_legacy_tag",
	}
	if err := svc.Create(context.Background(), n); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if n.Type != entity.TypeOther {
		t.Errorf("type = %q, want %q", n.Type, entity.TypeOther)
	}
	if n.Priority != entity.PriorityMedium {
		t.Errorf("priority = %q, want default medium", n.Priority)
	}
	if n.ExpiresAt == nil {
		t.Fatal("expires_at not stamped")
	}
	until := time.Until(*n.ExpiresAt)
	if until < 29*24*time.Hour || until > 31*24*time.Hour {
		t.Errorf("expires_at %v not about 30 days out", until)
	}
}

func TestCreateWithoutTTLLeavesExpiryUnset(t *testing.T) {
	repo := &fakeNotifRepo{}
	svc := NewNotificationService(repo, nil, 0)

	n := &entity.Notification{UserID: uuid.New(), Message: "m", Type: entity.TypeSystem}
	if err := svc.Create(context.Background(), n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.ExpiresAt != nil {
		t.Error("expires_at should stay nil when TTL is disabled")
	}
}

func TestCreateAndEmailQueuesOutboxRow(t *testing.T) {
	repo := &fakeNotifRepo{}
	svc := NewNotificationService(repo, nil, 0)

	related := uuid.New()
	n := &entity.Notification{
		UserID:    uuid.New(),
		Message:   "You were hired",
		Type:      entity.TypeJobAccepted,
		RelatedID: &related,
	}
	if err := svc.CreateAndEmail(context.Background(), n); err != nil {
		t.Fatalf("CreateAndEmail: %v", err)
	}

	if len(repo.outbox) != 1 {
		t.Fatalf("outbox rows = %d, want 1", len(repo.outbox))
	}
	email := repo.outbox[0]
	if email.Status != entity.OutboxPending {
		t.Errorf("status = %q, want pending", email.Status)
	}
	if email.UserID != n.UserID || email.Type != string(entity.TypeJobAccepted) {
		t.Error("outbox row does not mirror the notification")
	}

	var payload map[string]any
	if err := json.Unmarshal(email.Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["sendEmail"] != true {
		t.Error("payload must request email delivery")
	}
	if payload["relatedId"] != related.String() {
		t.Errorf("payload relatedId = %v, want %s", payload["relatedId"], related)
	}
}

func TestListSweepsExpiredAndAppliesFilter(t *testing.T) {
	repo := &fakeNotifRepo{
		rows:  []entity.Notification{{Message: "a"}, {Message: "b"}},
		total: 12,
	}
	svc := NewNotificationService(repo, nil, 0)

	userID := uuid.New()
	res, err := svc.List(context.Background(), userID, dto.NotificationFilter{
		Type:     "job_accepted",
		Category: "application",
		Limit:    5,
		Offset:   5,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if repo.sweeps != 1 {
		t.Errorf("expired sweep ran %d times, want 1", repo.sweeps)
	}
	if repo.lastFilter.Type != "job_accepted" || repo.lastFilter.Category != "application" {
		t.Errorf("filter not passed through: %+v", repo.lastFilter)
	}
	if repo.lastFilter.Limit != 5 || repo.lastFilter.Offset != 5 {
		t.Errorf("pagination not passed through: %+v", repo.lastFilter)
	}

	if len(res.Items) != 2 {
		t.Errorf("items = %d, want 2", len(res.Items))
	}
	if res.Meta.TotalItems != 12 {
		t.Errorf("meta total = %d, want 12", res.Meta.TotalItems)
	}
	if res.Meta.CurrentPage != 2 || res.Meta.TotalPages != 3 {
		t.Errorf("meta pages = %d/%d, want 2/3", res.Meta.CurrentPage, res.Meta.TotalPages)
	}
}

func TestListDefaultsLimit(t *testing.T) {
	repo := &fakeNotifRepo{}
	svc := NewNotificationService(repo, nil, 0)

	if _, err := svc.List(context.Background(), uuid.New(), dto.NotificationFilter{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.lastFilter.Limit != 20 {
		t.Errorf("default limit = %d, want 20", repo.lastFilter.Limit)
	}
}

func TestMarkAllAsReadForwardsFilter(t *testing.T) {
	repo := &fakeNotifRepo{markAffected: 3}
	svc := NewNotificationService(repo, nil, 0)

	userID := uuid.New()
	affected, err := svc.MarkAllAsRead(context.Background(), userID, "message", "chat")
	if err != nil {
		t.Fatalf("MarkAllAsRead: %v", err)
	}
	if affected != 3 {
		t.Errorf("affected = %d, want 3", affected)
	}
	if repo.lastMarkAll != [3]string{userID.String(), "message", "chat"} {
		t.Errorf("filter not forwarded: %v", repo.lastMarkAll)
	}
}

func TestMarkAsReadIdempotent(t *testing.T) {
	repo := &fakeNotifRepo{}
	svc := NewNotificationService(repo, nil, 0)

	userID := uuid.New()
	n := &entity.Notification{ID: uuid.New(), UserID: userID, IsRead: true}
	repo.seed(n)

	// Marking an already-read row affects nothing and is not an error.
	if err := svc.MarkAsRead(context.Background(), userID, n.ID); err != nil {
		t.Fatalf("MarkAsRead on read row: %v", err)
	}
}

func TestDeleteForeignUsersNotificationIsNoOp(t *testing.T) {
	repo := &fakeNotifRepo{}
	svc := NewNotificationService(repo, nil, 0)

	owner := uuid.New()
	n := &entity.Notification{ID: uuid.New(), UserID: owner, Message: "yours"}
	repo.seed(n)

	err := svc.Delete(context.Background(), uuid.New(), n.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, ok := repo.store[n.ID]; !ok {
		t.Fatal("foreign delete removed the row")
	}

	if err := svc.Delete(context.Background(), owner, n.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, ok := repo.store[n.ID]; ok {
		t.Error("owner delete left the row behind")
	}
}

func TestMarkAsReadForeignUserLeavesRowUnread(t *testing.T) {
	repo := &fakeNotifRepo{}
	svc := NewNotificationService(repo, nil, 0)

	owner := uuid.New()
	n := &entity.Notification{ID: uuid.New(), UserID: owner, Message: "unread"}
	repo.seed(n)

	if err := svc.MarkAsRead(context.Background(), uuid.New(), n.ID); err != nil {
		t.Fatalf("foreign MarkAsRead: %v", err)
	}
	if n.IsRead {
		t.Fatal("foreign user marked another user's row read")
	}

	if err := svc.MarkAsRead(context.Background(), owner, n.ID); err != nil {
		t.Fatalf("owner MarkAsRead: %v", err)
	}
	if !n.IsRead {
		t.Error("owner mark did not stick")
	}
}

func TestUnreadCountComesFromRepository(t *testing.T) {
	repo := &fakeNotifRepo{unread: 7}
	svc := NewNotificationService(repo, nil, 0)

	count, err := svc.UnreadCount(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 7 {
		t.Errorf("count = %d, want 7", count)
	}
}
