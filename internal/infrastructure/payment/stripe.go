package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

// zeroDecimal lists currencies Stripe charges in whole units.
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
	"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// Config holds the Stripe credentials.
type Config struct {
	SecretKey     string
	WebhookSecret string
}

// StripeProvider creates hosted Checkout sessions and verifies webhook deliveries.
type StripeProvider struct {
	newSession    sessionCreator
	webhookSecret string
	log           zerolog.Logger
}

// NewStripeProvider returns nil when no secret key is configured, which
// disables payment links.
func NewStripeProvider(cfg Config, log zerolog.Logger) *StripeProvider {
	if cfg.SecretKey == "" {
		return nil
	}
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &StripeProvider{
		newSession:    sc.CheckoutSessions.New,
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// minorUnits converts amount to the smallest unit of currency.
func minorUnits(amount decimal.Decimal, currency string) (int64, error) {
	units := amount.Shift(2)
	if zeroDecimal[strings.ToUpper(currency)] {
		units = amount
	}
	units = units.Round(0)
	if units.IsNegative() || units.GreaterThan(maxMinorUnits) {
		return 0, domain.ValidationError("amount %s %s cannot be charged", amount.String(), currency)
	}
	return units.IntPart(), nil
}

func (p *StripeProvider) CreateCheckout(ctx context.Context, req ports.CheckoutRequest) (*ports.PaymentLink, error) {
	unitAmount, err := minorUnits(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(strings.ToLower(req.Currency)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
				UnitAmount: stripe.Int64(unitAmount),
			},
			Quantity: stripe.Int64(1),
		}},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := p.newSession(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}

	p.log.Info().Str("session_id", sess.ID).Str("client_id", req.Metadata["client_id"]).Msg("checkout session created")
	return &ports.PaymentLink{
		URL:       sess.URL,
		SessionID: sess.ID,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC(),
	}, nil
}

// VerifyEvent checks the Stripe-Signature header and reduces the event to
// its id, type and, for checkout sessions, the session metadata.
func (p *StripeProvider) VerifyEvent(payload []byte, signature string) (*ports.ProviderEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	out := &ports.ProviderEvent{
		ID:         event.ID,
		Type:       string(event.Type),
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}
	if event.Type == stripe.EventTypeCheckoutSessionCompleted && event.Data != nil {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, domain.ValidationError("malformed checkout session: %v", err)
		}
		out.Metadata = sess.Metadata
	}
	return out, nil
}
