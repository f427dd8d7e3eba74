package domain

import "time"

type NotificationType string

const (
	NotificationClientAddRequest  NotificationType = "client_add_request"
	NotificationClientAddResponse NotificationType = "client_add_response"
	NotificationPaymentDue        NotificationType = "payment_due"
	NotificationPaymentReceived   NotificationType = "payment_received"
)

// Notification is a persisted message addressed to exactly one user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
