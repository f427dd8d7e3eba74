package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
	"github.com/settleup/settleup-api/internal/pkg/metrics"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

// NotificationService persists notifications and hands them to the
// real-time push path.
type NotificationService struct {
	repo   ports.NotificationRepository
	pusher ports.NotificationPusher
	log    zerolog.Logger
	now    func() time.Time
}

// NewNotificationService returns a NotificationService. pusher may be nil, in
// which case notifications are only persisted.
func NewNotificationService(repo ports.NotificationRepository, pusher ports.NotificationPusher, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		pusher: pusher,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Emit stores the notification first; a failed or dropped push never fails the call.
func (s *NotificationService) Emit(ctx context.Context, userID string, typ domain.NotificationType, title, message string, data map[string]any) (*domain.Notification, error) {
	if userID == "" {
		return nil, domain.ValidationError("notification recipient is required")
	}

	created, err := s.repo.Create(ctx, &domain.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("emit notification: %w", err)
	}
	metrics.NotificationsEmittedTotal.WithLabelValues(string(typ)).Inc()

	if s.pusher != nil && !s.pusher.Push(created) {
		s.log.Warn().
			Str("user_id", userID).
			Str("notification_id", created.ID).
			Msg("real-time push dropped")
	}

	s.log.Debug().
		Str("user_id", userID).
		Str("type", string(typ)).
		Msg("notification emitted")

	return created, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	return s.repo.List(ctx, userID, limit, unreadOnly)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	return s.repo.Delete(ctx, id, userID)
}
