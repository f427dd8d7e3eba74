package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientStatus represents the relationship state between an owner and a counterpart.
type ClientStatus string

const (
	ClientPending  ClientStatus = "pending"
	ClientActive   ClientStatus = "active"
	ClientRejected ClientStatus = "rejected"
	ClientInactive ClientStatus = "inactive"
)

// Valid reports whether s is a known client status.
func (s ClientStatus) Valid() bool {
	switch s {
	case ClientPending, ClientActive, ClientRejected, ClientInactive:
		return true
	}
	return false
}

// Client is the aggregate root for a billing relationship. Payment schedules
// are embedded and only ever change together with their client document.
type Client struct {
	ID               string            `json:"id"`
	OwnerID          string            `json:"added_by"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	CompanyName      string            `json:"company_name"`
	Status           ClientStatus      `json:"status"`
	Region           *Region           `json:"region,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	PaymentSchedules []PaymentSchedule `json:"payment_schedules"`
	Version          int64             `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Currency returns the client's region currency, or "" when no region is set.
func (c *Client) Currency() string {
	if c.Region == nil {
		return ""
	}
	return c.Region.Currency
}

// ResolveSchedule locates a schedule by position or by stable id.
func (c *Client) ResolveSchedule(ref ScheduleRef) (int, *PaymentSchedule, error) {
	if ref.ID != "" {
		for i := range c.PaymentSchedules {
			if c.PaymentSchedules[i].ID == ref.ID {
				return i, &c.PaymentSchedules[i], nil
			}
		}
		return -1, nil, ErrScheduleNotFound
	}
	if ref.Index < 0 || ref.Index >= len(c.PaymentSchedules) {
		return -1, nil, ErrScheduleNotFound
	}
	return ref.Index, &c.PaymentSchedules[ref.Index], nil
}

// ClientStats summarises the schedules of one active client.
type ClientStats struct {
	ClientID         string          `json:"client_id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	CompanyName      string          `json:"company_name"`
	TotalSchedules   int             `json:"total_schedules"`
	PendingSchedules int             `json:"pending_schedules"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}
