package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

func TestPaymentHandler_CreateSchedule(t *testing.T) {
	stub := &stubPaymentService{
		createFn: func(ctx context.Context, in ports.CreateScheduleInput) (*domain.PaymentSchedule, error) {
			if in.OwnerID != testUserID || in.ClientID != "c1" {
				t.Fatalf("unexpected input %+v", in)
			}
			if !in.Amount.Equal(decimal.RequireFromString("120.50")) {
				t.Fatalf("amount not decoded exactly: %s", in.Amount)
			}
			if in.Frequency != domain.FrequencyMonthly {
				t.Fatalf("unexpected frequency %q", in.Frequency)
			}
			return &domain.PaymentSchedule{ID: "s1", Amount: in.Amount, DueDate: in.DueDate}, nil
		},
	}
	handler := NewPaymentHandler(stub)

	c, rec := newContext(http.MethodPost, "/payments/schedule",
		`{"client_id":"c1","description":"Retainer","amount":"120.50","currency":"USD","due_date":"2025-04-01T00:00:00Z","frequency":"monthly"}`, testUserID)

	if err := handler.CreateSchedule(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestPaymentHandler_CreateSchedule_RejectsUnknownFrequency(t *testing.T) {
	handler := NewPaymentHandler(&stubPaymentService{})

	c, _ := newContext(http.MethodPost, "/payments/schedule",
		`{"client_id":"c1","description":"x","amount":"1","due_date":"2025-04-01T00:00:00Z","frequency":"daily"}`, testUserID)

	if err := handler.CreateSchedule(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPaymentHandler_UpdateSchedule_ByID(t *testing.T) {
	stub := &stubPaymentService{
		updateFn: func(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef, patch ports.UpdateScheduleInput) (*domain.PaymentSchedule, error) {
			if ref.ID != "sched-1" || ref.Index != -1 {
				t.Fatalf("unexpected ref %+v", ref)
			}
			if patch.Status == nil || *patch.Status != domain.ScheduleCancelled {
				t.Fatalf("status not forwarded: %+v", patch)
			}
			return &domain.PaymentSchedule{ID: ref.ID, Status: *patch.Status}, nil
		},
	}
	handler := NewPaymentHandler(stub)

	c, rec := newContext(http.MethodPut, "/payments/schedule/c1/sched-1", `{"status":"cancelled"}`, testUserID)
	c.SetParamNames("id", "index")
	c.SetParamValues("c1", "sched-1")

	if err := handler.UpdateSchedule(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPaymentHandler_MarkPaid_ByIndex(t *testing.T) {
	stub := &stubPaymentService{
		markPaidFn: func(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef) (*domain.PaymentSchedule, error) {
			if clientID != "c1" || ref.Index != 2 {
				t.Fatalf("unexpected args %s %+v", clientID, ref)
			}
			return &domain.PaymentSchedule{ID: "s3", Status: domain.SchedulePaid}, nil
		},
	}
	handler := NewPaymentHandler(stub)

	c, rec := newContext(http.MethodPost, "/payments/c1/2/mark-paid", "", testUserID)
	c.SetParamNames("id", "index")
	c.SetParamValues("c1", "2")

	if err := handler.MarkPaid(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp scheduleResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.PaymentSchedule == nil || resp.PaymentSchedule.Status != domain.SchedulePaid {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPaymentHandler_MarkPaid_NegativeIndex(t *testing.T) {
	handler := NewPaymentHandler(&stubPaymentService{})

	c, _ := newContext(http.MethodPost, "/payments/c1/-1/mark-paid", "", testUserID)
	c.SetParamNames("id", "index")
	c.SetParamValues("c1", "-1")

	if err := handler.MarkPaid(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPaymentHandler_CreatePaymentLink(t *testing.T) {
	stub := &stubPaymentService{
		linkFn: func(ctx context.Context, in ports.PaymentLinkInput) (*ports.PaymentLink, error) {
			if in.Ref.Index != 0 || in.ClientID != "c1" {
				t.Fatalf("unexpected input %+v", in)
			}
			return &ports.PaymentLink{URL: "https://checkout.stripe.com/c/pay/cs_test", SessionID: "cs_test", ExpiresAt: fixedTime}, nil
		},
	}
	handler := NewPaymentHandler(stub)

	c, rec := newContext(http.MethodPost, "/payments/create-payment-link", `{"client_id":"c1","schedule_index":"0"}`, testUserID)

	if err := handler.CreatePaymentLink(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp paymentLinkResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.PaymentLink == "" || resp.SessionID != "cs_test" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPaymentHandler_CreatePaymentLink_Disabled(t *testing.T) {
	stub := &stubPaymentService{
		linkFn: func(ctx context.Context, in ports.PaymentLinkInput) (*ports.PaymentLink, error) {
			return nil, domain.ErrPaymentsDisabled
		},
	}
	handler := NewPaymentHandler(stub)

	c, _ := newContext(http.MethodPost, "/payments/create-payment-link", `{"client_id":"c1","schedule_index":"0"}`, testUserID)

	if err := handler.CreatePaymentLink(c); !errors.Is(err, domain.ErrPaymentsDisabled) {
		t.Fatalf("expected ErrPaymentsDisabled, got %v", err)
	}
}

func TestPaymentHandler_Webhook_PassesRawBodyAndSignature(t *testing.T) {
	const payload = `{"id":"evt_1","type":"checkout.session.completed"}`
	stub := &stubPaymentService{
		eventFn: func(ctx context.Context, body []byte, signature string) error {
			if string(body) != payload {
				t.Fatalf("body altered: %s", body)
			}
			if signature != "t=1,v1=abc" {
				t.Fatalf("unexpected signature %q", signature)
			}
			return nil
		},
	}
	handler := NewPaymentHandler(stub)

	c, rec := newContext(http.MethodPost, "/payments/webhook", payload, "")
	c.Request().Header.Set(signatureHeader, "t=1,v1=abc")

	if err := handler.Webhook(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp webhookResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Received {
		t.Fatalf("expected received=true")
	}
}

func TestPaymentHandler_Webhook_BadSignature(t *testing.T) {
	stub := &stubPaymentService{
		eventFn: func(ctx context.Context, body []byte, signature string) error {
			return domain.ErrInvalidSignature
		},
	}
	handler := NewPaymentHandler(stub)

	c, _ := newContext(http.MethodPost, "/payments/webhook", `{}`, "")

	if err := handler.Webhook(c); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
