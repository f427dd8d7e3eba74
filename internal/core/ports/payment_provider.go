package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const ProviderEventCheckoutCompleted = "checkout.session.completed"

type CheckoutRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// ProviderEvent is a verified webhook event reduced to what the core needs.
type ProviderEvent struct {
	ID         string
	Type       string
	Metadata   map[string]string
	OccurredAt time.Time
}

// PaymentProvider abstracts the hosted checkout provider.
type PaymentProvider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*PaymentLink, error)
	// VerifyEvent returns domain.ErrInvalidSignature when the payload was not
	// signed by the provider.
	VerifyEvent(payload []byte, signature string) (*ProviderEvent, error)
}

// EventDeduplicator remembers provider event ids that were already applied.
type EventDeduplicator interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}
