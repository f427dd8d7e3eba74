package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/settleup/settleup-api/internal/core/domain"
)

type CreateScheduleInput struct {
	OwnerID     string
	ClientID    string
	Description string
	Amount      decimal.Decimal
	Currency    string
	DueDate     time.Time
	Frequency   domain.Frequency
}

// UpdateScheduleInput is a partial update; nil fields are left untouched.
type UpdateScheduleInput struct {
	Description *string
	Amount      *decimal.Decimal
	Currency    *string
	DueDate     *time.Time
	Frequency   *domain.Frequency
	Status      *domain.ScheduleStatus
}

type PaymentLinkInput struct {
	OwnerID    string
	ClientID   string
	Ref        domain.ScheduleRef
	SuccessURL string
	CancelURL  string
}

type PaymentLink struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// ReminderTask identifies one delayed payment_due reminder.
type ReminderTask struct {
	ClientID   string    `json:"client_id"`
	ScheduleID string    `json:"schedule_id"`
	OffsetDays int       `json:"offset_days"`
	DueDate    time.Time `json:"due_date"`
}

type PaymentService interface {
	CreateSchedule(ctx context.Context, in CreateScheduleInput) (*domain.PaymentSchedule, error)
	ListSchedules(ctx context.Context, ownerID, clientID, status string) ([]domain.PaymentSchedule, error)
	UpdateSchedule(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef, patch UpdateScheduleInput) (*domain.PaymentSchedule, error)
	MarkPaid(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef) (*domain.PaymentSchedule, error)
	ApplyExternalPayment(ctx context.Context, clientID string, ref domain.ScheduleRef, paidAt time.Time, notifyUserID string) error
	CreatePaymentLink(ctx context.Context, in PaymentLinkInput) (*PaymentLink, error)
	HandleProviderEvent(ctx context.Context, payload []byte, signature string) error
	SendReminder(ctx context.Context, task ReminderTask) error
	MarkOverdue(ctx context.Context) (int64, error)
}

// ReminderScheduler enqueues durable delayed reminders. Enqueueing the same
// task twice must be a no-op.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, task ReminderTask, at time.Time) error
}
