package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
	"github.com/settleup/settleup-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
	publishTimeout = 5 * time.Second
)

// Dispatcher routes persisted notifications to a fixed set of workers using
// consistent hashing on the recipient id, so each user sees their
// notifications in emission order.
type Dispatcher struct {
	workers   []chan *domain.Notification
	publisher ports.NotificationPublisher
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher ports.NotificationPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan *domain.Notification, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan *domain.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Push hands n to the worker responsible for its recipient. It never blocks:
// when that worker's buffer is full the notification is dropped and false is
// returned. The notification stays persisted either way.
func (d *Dispatcher) Push(n *domain.Notification) bool {
	idx := d.shardIndex(n.UserID)
	select {
	case d.workers[idx] <- n:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		metrics.NotificationPushTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan *domain.Notification) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.publish(ctx, id, n)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, worker int, n *domain.Notification) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	err := d.publisher.Publish(ctx, n)
	metrics.NotificationPushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.NotificationPushTotal.WithLabelValues("error").Inc()
		d.log.Error().Err(err).
			Str("notification_id", n.ID).
			Str("user_id", n.UserID).
			Int("worker_id", worker).
			Msg("notification publish failed")
		return
	}
	metrics.NotificationPushTotal.WithLabelValues("published").Inc()
}
