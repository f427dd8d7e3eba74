package ports

import (
	"context"

	"github.com/settleup/settleup-api/internal/core/domain"
)

// NotificationRepository defines persistence operations for notifications.
// Every lookup is scoped to userID; a foreign or malformed id is
// ErrNotificationNotFound.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
}
