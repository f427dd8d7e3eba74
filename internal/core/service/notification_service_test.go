package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/settleup/settleup-api/internal/core/domain"
)

type stubNotificationRepo struct {
	items     []*domain.Notification
	createErr error
	lastLimit int
}

func (r *stubNotificationRepo) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	clone := *n
	clone.ID = fmt.Sprintf("n_%d", len(r.items)+1)
	r.items = append(r.items, &clone)
	out := clone
	return &out, nil
}

func (r *stubNotificationRepo) find(id, userID string) (*domain.Notification, error) {
	for _, n := range r.items {
		if n.ID == id && n.UserID == userID {
			return n, nil
		}
	}
	return nil, domain.ErrNotificationNotFound
}

func (r *stubNotificationRepo) List(_ context.Context, userID string, limit int, unreadOnly bool) ([]*domain.Notification, error) {
	r.lastLimit = limit
	var out []*domain.Notification
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		n := r.items[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		clone := *n
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubNotificationRepo) MarkRead(_ context.Context, id, userID string) (*domain.Notification, error) {
	n, err := r.find(id, userID)
	if err != nil {
		return nil, err
	}
	n.IsRead = true
	clone := *n
	return &clone, nil
}

func (r *stubNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (r *stubNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *stubNotificationRepo) Delete(_ context.Context, id, userID string) error {
	for i, n := range r.items {
		if n.ID == id && n.UserID == userID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

type stubPusher struct {
	pushed []*domain.Notification
	accept bool
}

func (p *stubPusher) Push(n *domain.Notification) bool {
	p.pushed = append(p.pushed, n)
	return p.accept
}

func TestNotificationService_Emit_PersistsThenPushes(t *testing.T) {
	repo := &stubNotificationRepo{}
	pusher := &stubPusher{accept: true}
	svc := NewNotificationService(repo, pusher, discardLogger)
	svc.now = fixedClock

	n, err := svc.Emit(context.Background(), "user_1", domain.NotificationPaymentDue, "Due", "Pay up", map[string]any{"client_id": "c1"})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if n.ID == "" || n.IsRead || !n.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected persisted notification")
	}
	if len(pusher.pushed) != 1 || pusher.pushed[0].ID != n.ID {
		t.Fatalf("expected persisted notification to be pushed")
	}
}

func TestNotificationService_Emit_DroppedPushStillSucceeds(t *testing.T) {
	repo := &stubNotificationRepo{}
	svc := NewNotificationService(repo, &stubPusher{accept: false}, discardLogger)

	if _, err := svc.Emit(context.Background(), "user_1", domain.NotificationPaymentDue, "t", "m", nil); err != nil {
		t.Fatalf("Emit should succeed when push is dropped: %v", err)
	}
	if len(repo.items) != 1 {
		t.Fatalf("notification must still be stored")
	}
}

func TestNotificationService_Emit_StoreFailureNotPushed(t *testing.T) {
	repo := &stubNotificationRepo{createErr: errors.New("mongo down")}
	pusher := &stubPusher{accept: true}
	svc := NewNotificationService(repo, pusher, discardLogger)

	if _, err := svc.Emit(context.Background(), "user_1", domain.NotificationPaymentDue, "t", "m", nil); err == nil {
		t.Fatalf("expected error")
	}
	if len(pusher.pushed) != 0 {
		t.Fatalf("unsaved notification must not be pushed")
	}
}

func TestNotificationService_Emit_RequiresRecipient(t *testing.T) {
	svc := NewNotificationService(&stubNotificationRepo{}, nil, discardLogger)

	if _, err := svc.Emit(context.Background(), "", domain.NotificationPaymentDue, "t", "m", nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNotificationService_List_ClampsLimit(t *testing.T) {
	repo := &stubNotificationRepo{}
	svc := NewNotificationService(repo, nil, discardLogger)

	cases := []struct{ in, want int }{{0, 50}, {-3, 50}, {20, 20}, {500, 100}}
	for _, tc := range cases {
		if _, err := svc.List(context.Background(), "user_1", tc.in, false); err != nil {
			t.Fatalf("List: %v", err)
		}
		if repo.lastLimit != tc.want {
			t.Fatalf("limit %d: expected %d, got %d", tc.in, tc.want, repo.lastLimit)
		}
	}
}

func TestNotificationService_ScopedToOwner(t *testing.T) {
	repo := &stubNotificationRepo{}
	svc := NewNotificationService(repo, nil, discardLogger)
	ctx := context.Background()

	n, _ := svc.Emit(ctx, "user_1", domain.NotificationPaymentDue, "t", "m", nil)
	_, _ = svc.Emit(ctx, "user_1", domain.NotificationPaymentDue, "t", "m", nil)

	if _, err := svc.MarkRead(ctx, n.ID, "user_2"); !errors.Is(err, domain.ErrNotificationNotFound) {
		t.Fatalf("cross-user MarkRead must be not found, got %v", err)
	}
	if err := svc.Delete(ctx, n.ID, "user_2"); !errors.Is(err, domain.ErrNotificationNotFound) {
		t.Fatalf("cross-user Delete must be not found, got %v", err)
	}

	if _, err := svc.MarkRead(ctx, n.ID, "user_1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if count, _ := svc.UnreadCount(ctx, "user_1"); count != 1 {
		t.Fatalf("expected 1 unread, got %d", count)
	}
	if updated, _ := svc.MarkAllRead(ctx, "user_1"); updated != 1 {
		t.Fatalf("expected 1 updated, got %d", updated)
	}
	if count, _ := svc.UnreadCount(ctx, "user_1"); count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}
}
