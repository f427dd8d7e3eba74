package payment

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

const testWebhookSecret = "whsec_test"

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"120.50", "USD", 12050},
		{"0.005", "usd", 1},
		{"999", "INR", 99900},
		{"1500", "JPY", 1500},
		{"1500.6", "jpy", 1501},
	}
	for _, tc := range cases {
		got, err := minorUnits(decimal.RequireFromString(tc.amount), tc.currency)
		require.NoError(t, err, "%s %s", tc.amount, tc.currency)
		assert.Equal(t, tc.want, got, "%s %s", tc.amount, tc.currency)
	}
}

func TestMinorUnits_RejectsOverflow(t *testing.T) {
	_, err := minorUnits(decimal.RequireFromString("1e7000"), "USD")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = minorUnits(decimal.RequireFromString("92233720368547758.08"), "USD")
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := minorUnits(decimal.RequireFromString("92233720368547758.07"), "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)
}

func TestNewStripeProvider_DisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewStripeProvider(Config{}, zerolog.Nop()))
}

func TestCreateCheckout_BuildsSession(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	p := &StripeProvider{
		log: zerolog.Nop(),
		newSession: func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			captured = params
			return &stripe.CheckoutSession{ID: "cs_123", URL: "https://checkout.stripe.com/c/cs_123", ExpiresAt: 1700000000}, nil
		},
	}

	link, err := p.CreateCheckout(context.Background(), ports.CheckoutRequest{
		Amount:        decimal.RequireFromString("49.99"),
		Currency:      "EUR",
		Description:   "March retainer",
		CustomerEmail: "payer@example.com",
		SuccessURL:    "https://app.example.com/ok",
		CancelURL:     "https://app.example.com/cancel",
		Metadata:      map[string]string{"client_id": "c1", "schedule_id": "s1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_123", link.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_123", link.URL)
	assert.True(t, link.ExpiresAt.Equal(time.Unix(1700000000, 0)))

	require.NotNil(t, captured)
	require.Len(t, captured.LineItems, 1)
	item := captured.LineItems[0]
	assert.Equal(t, "eur", *item.PriceData.Currency)
	assert.Equal(t, int64(4999), *item.PriceData.UnitAmount)
	assert.Equal(t, "March retainer", *item.PriceData.ProductData.Name)
	assert.Equal(t, "payer@example.com", *captured.CustomerEmail)
	assert.Equal(t, "c1", captured.Metadata["client_id"])
	assert.Equal(t, "s1", captured.Metadata["schedule_id"])
}

func TestCreateCheckout_ProviderError(t *testing.T) {
	p := &StripeProvider{
		log: zerolog.Nop(),
		newSession: func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return nil, errors.New("card_declined")
		},
	}
	_, err := p.CreateCheckout(context.Background(), ports.CheckoutRequest{Amount: decimal.NewFromInt(1), Currency: "USD"})
	assert.Error(t, err)
}

const checkoutEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "created": 1700000000,
  "api_version": "2020-08-27",
  "data": {
    "object": {
      "id": "cs_1",
      "object": "checkout.session",
      "payment_status": "paid",
      "metadata": {"client_id": "c1", "schedule_id": "s1", "user_id": "u1"}
    }
  }
}`

func signed(t *testing.T, payload string) string {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return sp.Header
}

func TestVerifyEvent_CheckoutCompleted(t *testing.T) {
	p := &StripeProvider{webhookSecret: testWebhookSecret, log: zerolog.Nop()}

	ev, err := p.VerifyEvent([]byte(checkoutEvent), signed(t, checkoutEvent))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, ports.ProviderEventCheckoutCompleted, ev.Type)
	assert.Equal(t, "c1", ev.Metadata["client_id"])
	assert.Equal(t, "s1", ev.Metadata["schedule_id"])
}

func TestVerifyEvent_BadSignature(t *testing.T) {
	p := &StripeProvider{webhookSecret: testWebhookSecret, log: zerolog.Nop()}

	_, err := p.VerifyEvent([]byte(checkoutEvent), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}
