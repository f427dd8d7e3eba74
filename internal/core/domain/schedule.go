package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency describes how often a payment recurs.
type Frequency string

const (
	FrequencyOneTime   Frequency = "one-time"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOneTime, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// ScheduleStatus is the lifecycle state of a payment schedule.
type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	SchedulePaid      ScheduleStatus = "paid"
	ScheduleOverdue   ScheduleStatus = "overdue"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case SchedulePending, SchedulePaid, ScheduleOverdue, ScheduleCancelled:
		return true
	}
	return false
}

// DefaultCurrency is used when neither the request nor the client region names one.
const DefaultCurrency = "USD"

// PaymentSchedule is a single payment obligation embedded in a Client.
type PaymentSchedule struct {
	ID             string          `json:"id"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	DueDate        time.Time       `json:"due_date"`
	Frequency      Frequency       `json:"frequency"`
	Status         ScheduleStatus  `json:"status"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	LastNotifiedAt *time.Time      `json:"last_notified_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Amount limits. Two decimal places and a ceiling below one trillion keep
// every amount representable as Decimal128 and as int64 minor units.
const AmountScale = 2

var MaxAmount = decimal.New(1, 12)

// ValidateAmount rejects negative amounts, amounts with more than
// AmountScale decimal places and amounts at or above MaxAmount.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ValidationError("amount must not be negative")
	}
	if d.GreaterThanOrEqual(MaxAmount) {
		return ValidationError("amount must be less than %s", MaxAmount.String())
	}
	if !d.Equal(d.Truncate(AmountScale)) {
		return ValidationError("amount must have at most %d decimal places", AmountScale)
	}
	return nil
}

// ReminderOffsets are the number of days before the due date at which a
// payment_due reminder is sent.
var ReminderOffsets = []int{7, 3, 1}

// Reminder is a single pending reminder for a schedule.
type Reminder struct {
	OffsetDays int
	At         time.Time
}

// UpcomingReminders returns the reminders for due that are still in the
// future relative to now, ordered by offset.
func UpcomingReminders(due, now time.Time) []Reminder {
	out := make([]Reminder, 0, len(ReminderOffsets))
	for _, days := range ReminderOffsets {
		at := due.AddDate(0, 0, -days)
		if at.After(now) {
			out = append(out, Reminder{OffsetDays: days, At: at})
		}
	}
	return out
}

// ScheduleRef addresses a schedule within a client either by its position
// or by its stable id.
type ScheduleRef struct {
	Index int
	ID    string
}

// ParseScheduleRef interprets raw as a zero-based index when it is an
// integer and as a schedule id otherwise.
func ParseScheduleRef(raw string) (ScheduleRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ScheduleRef{}, ValidationError("schedule reference is required")
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return ScheduleRef{}, ValidationError("schedule index must not be negative")
		}
		return ScheduleRef{Index: n}, nil
	}
	return ScheduleRef{Index: -1, ID: raw}, nil
}

func (r ScheduleRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return strconv.Itoa(r.Index)
}
