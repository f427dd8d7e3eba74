package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/pkg/metrics"
)

const subscriberBuffer = 16

// Hub fans notifications out over Redis pub/sub so that every API replica
// can serve the real-time stream of any user.
// Channel format: settleup:notifications:<user_id>
type Hub struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewHub(client *redis.Client, log zerolog.Logger) *Hub {
	return &Hub{client: client, log: log}
}

func channelFor(userID string) string {
	return "settleup:notifications:" + userID
}

// Publish sends n to its recipient's channel.
func (h *Hub) Publish(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := h.client.Publish(ctx, channelFor(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Subscribe returns a channel of notifications for userID and a function that
// releases the subscription. The channel is closed once ctx is done or the
// release function is called.
func (h *Hub) Subscribe(ctx context.Context, userID string) (<-chan *domain.Notification, func(), error) {
	sub := h.client.Subscribe(ctx, channelFor(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	metrics.RealtimeSubscribers.Inc()
	out := make(chan *domain.Notification, subscriberBuffer)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer metrics.RealtimeSubscribers.Dec()
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var n domain.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					h.log.Warn().Err(err).Str("user_id", userID).Msg("discarding malformed notification")
					continue
				}
				select {
				case out <- &n:
				default:
					h.log.Warn().Str("user_id", userID).Str("notification_id", n.ID).Msg("subscriber too slow, notification dropped")
				}
			}
		}
	}()

	return out, cancel, nil
}
