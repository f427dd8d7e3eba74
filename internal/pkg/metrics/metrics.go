// Package metrics defines and registers all custom Prometheus metrics for the
// SettleUp API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "settleup"

// ── Client metrics ────────────────────────────────────────────────────────────

// ClientsCreatedTotal counts newly created clients.
// Label:
//   - status: initial status, "pending" when the counterpart is a registered user, else "active"
var ClientsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clients_created_total",
		Help:      "Total number of clients created, by initial status.",
	},
	[]string{"status"},
)

// ClientResponsesTotal counts counterpart responses to add requests.
// Label:
//   - result: "accepted" or "rejected"
var ClientResponsesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_responses_total",
		Help:      "Total number of client add requests answered, by result.",
	},
	[]string{"result"},
)

// ClientVersionConflictsTotal counts optimistic-concurrency retries on client writes.
var ClientVersionConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_version_conflicts_total",
		Help:      "Total number of client writes retried after a concurrent modification.",
	},
)

// ── Payment metrics ───────────────────────────────────────────────────────────

// SchedulesCreatedTotal counts payment schedules created.
// Label:
//   - frequency: "one-time", "weekly", "monthly", "quarterly", "yearly"
var SchedulesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "schedules_created_total",
		Help:      "Total number of payment schedules created, by frequency.",
	},
	[]string{"frequency"},
)

// PaymentsMarkedPaidTotal counts schedules transitioned to paid.
// Label:
//   - source: "manual" (owner action) or "provider" (webhook)
var PaymentsMarkedPaidTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_marked_paid_total",
		Help:      "Total number of payment schedules marked as paid, by source.",
	},
	[]string{"source"},
)

// SchedulesOverdueTotal counts schedules flipped to overdue by the sweep.
var SchedulesOverdueTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "schedules_overdue_total",
		Help:      "Total number of payment schedules marked overdue.",
	},
)

// WebhookEventsTotal counts provider webhook deliveries.
// Label:
//   - result: "applied", "duplicate", "ignored", "invalid_signature" or "error"
var WebhookEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Total number of payment provider webhook events, by result.",
	},
	[]string{"result"},
)

// ── Reminder metrics ──────────────────────────────────────────────────────────

// RemindersTotal counts reminder lifecycle events.
// Label:
//   - result: "scheduled", "sent", "skipped" or "failed"
var RemindersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_total",
		Help:      "Total number of payment reminders, by lifecycle result.",
	},
	[]string{"result"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsEmittedTotal counts persisted notifications.
// Label:
//   - type: notification type tag (e.g. "payment_due")
var NotificationsEmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_emitted_total",
		Help:      "Total number of notifications persisted, by type.",
	},
	[]string{"type"},
)

// NotificationPushTotal counts real-time push outcomes.
// Label:
//   - result: "published", "dropped" or "error"
var NotificationPushTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_push_total",
		Help:      "Total number of real-time notification pushes, by result.",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks the number of notifications waiting in each push worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each push worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationPushDuration measures how long publishing a single notification takes.
var NotificationPushDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_push_duration_seconds",
		Help:      "Duration of a real-time notification publish.",
		Buckets:   prometheus.DefBuckets,
	},
)

// RealtimeSubscribers tracks currently connected notification stream clients.
var RealtimeSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_subscribers",
		Help:      "Number of open real-time notification streams.",
	},
)
