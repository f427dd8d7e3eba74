package ports

import (
	"context"

	"github.com/settleup/settleup-api/internal/core/domain"
)

// NotificationEmitter is the narrow interface other services use to notify users.
type NotificationEmitter interface {
	Emit(ctx context.Context, userID string, typ domain.NotificationType, title, message string, data map[string]any) (*domain.Notification, error)
}

type NotificationService interface {
	NotificationEmitter
	List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
}

// NotificationPusher hands a persisted notification to the real-time path.
// Push never blocks; it reports false when the notification was dropped.
type NotificationPusher interface {
	Push(n *domain.Notification) bool
}

// NotificationPublisher delivers a notification on the user's real-time topic.
type NotificationPublisher interface {
	Publish(ctx context.Context, n *domain.Notification) error
}

// NotificationStream lets a connected user receive notifications as they are published.
type NotificationStream interface {
	Subscribe(ctx context.Context, userID string) (<-chan *domain.Notification, func(), error)
}
