package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
	"github.com/settleup/settleup-api/internal/pkg/metrics"
)

// PaymentDeps groups the collaborators of PaymentService. Reminders,
// Provider and Dedup are optional.
type PaymentDeps struct {
	Clients     ports.ClientRepository
	Users       ports.UserRepository
	Notifier    ports.NotificationEmitter
	Reminders   ports.ReminderScheduler
	Provider    ports.PaymentProvider
	Dedup       ports.EventDeduplicator
	FrontendURL string
}

// PaymentService manages payment schedules embedded in clients.
type PaymentService struct {
	deps  PaymentDeps
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

func NewPaymentService(deps PaymentDeps, log zerolog.Logger) *PaymentService {
	deps.FrontendURL = strings.TrimRight(deps.FrontendURL, "/")
	return &PaymentService{
		deps:  deps,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (s *PaymentService) CreateSchedule(ctx context.Context, in ports.CreateScheduleInput) (*domain.PaymentSchedule, error) {
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.DueDate.IsZero() {
		return nil, domain.ValidationError("due date is required")
	}
	frequency := in.Frequency
	if frequency == "" {
		frequency = domain.FrequencyOneTime
	}
	if !frequency.Valid() {
		return nil, domain.ValidationError("unknown frequency %q", frequency)
	}

	client, err := s.deps.Clients.FindOwned(ctx, in.OwnerID, in.ClientID)
	if err != nil {
		return nil, err
	}
	if client.Status != domain.ClientActive {
		return nil, fmt.Errorf("%w: cannot schedule payments for %s clients", domain.ErrInvalidState, client.Status)
	}

	currency := in.Currency
	if currency == "" {
		currency = client.Currency()
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	currency = strings.ToUpper(currency)
	if err := validateCurrency(currency); err != nil {
		return nil, err
	}

	now := s.now()
	schedule := domain.PaymentSchedule{
		ID:          s.newID(),
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Currency:    currency,
		DueDate:     in.DueDate.UTC(),
		Frequency:   frequency,
		Status:      domain.SchedulePending,
		CreatedAt:   now,
	}

	if err := s.deps.Clients.AppendSchedule(ctx, client.ID, schedule); err != nil {
		return nil, err
	}
	metrics.SchedulesCreatedTotal.WithLabelValues(string(frequency)).Inc()

	if !schedule.DueDate.Before(now) {
		s.emitDue(ctx, client, schedule, 0)
		s.scheduleReminders(ctx, client.ID, schedule)
	}

	s.log.Info().
		Str("client_id", client.ID).
		Str("schedule_id", schedule.ID).
		Time("due_date", schedule.DueDate).
		Msg("payment schedule created")

	return &schedule, nil
}

func (s *PaymentService) ListSchedules(ctx context.Context, ownerID, clientID, status string) ([]domain.PaymentSchedule, error) {
	if status != "" && !domain.ScheduleStatus(status).Valid() {
		return nil, domain.ValidationError("unknown schedule status %q", status)
	}

	client, err := s.deps.Clients.FindOwned(ctx, ownerID, clientID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PaymentSchedule, 0, len(client.PaymentSchedules))
	for _, sch := range client.PaymentSchedules {
		if status != "" && string(sch.Status) != status {
			continue
		}
		out = append(out, sch)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *PaymentService) UpdateSchedule(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef, patch ports.UpdateScheduleInput) (*domain.PaymentSchedule, error) {
	if err := validateSchedulePatch(&patch); err != nil {
		return nil, err
	}

	var (
		updated    domain.PaymentSchedule
		dueChanged bool
	)
	client, err := mutateClient(ctx, s.deps.Clients, s.now, func(ctx context.Context) (*domain.Client, error) {
		return s.deps.Clients.FindOwned(ctx, ownerID, clientID)
	}, func(c *domain.Client) error {
		_, sch, err := c.ResolveSchedule(ref)
		if err != nil {
			return err
		}
		dueChanged = patch.DueDate != nil && !patch.DueDate.Equal(sch.DueDate)

		if patch.Description != nil {
			sch.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Amount != nil {
			sch.Amount = *patch.Amount
		}
		if patch.Currency != nil {
			sch.Currency = *patch.Currency
		}
		if patch.DueDate != nil {
			sch.DueDate = patch.DueDate.UTC()
		}
		if patch.Frequency != nil {
			sch.Frequency = *patch.Frequency
		}
		if patch.Status != nil {
			sch.Status = *patch.Status
			if sch.Status == domain.SchedulePaid && sch.PaidAt == nil {
				paidAt := s.now()
				sch.PaidAt = &paidAt
			}
		}
		updated = *sch
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dueChanged && updated.Status == domain.SchedulePending {
		s.scheduleReminders(ctx, client.ID, updated)
	}
	return &updated, nil
}

// MarkPaid is idempotent on state but not on side effects: every call
// notifies the counterpart again.
func (s *PaymentService) MarkPaid(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef) (*domain.PaymentSchedule, error) {
	var (
		paid  domain.PaymentSchedule
		index int
	)
	client, err := mutateClient(ctx, s.deps.Clients, s.now, func(ctx context.Context) (*domain.Client, error) {
		return s.deps.Clients.FindOwned(ctx, ownerID, clientID)
	}, func(c *domain.Client) error {
		i, sch, err := c.ResolveSchedule(ref)
		if err != nil {
			return err
		}
		paidAt := s.now()
		sch.Status = domain.SchedulePaid
		sch.PaidAt = &paidAt
		paid, index = *sch, i
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.PaymentsMarkedPaidTotal.WithLabelValues("manual").Inc()

	counterpart, err := s.deps.Users.FindByEmail(ctx, client.Email)
	switch {
	case err == nil:
		s.emit(ctx, counterpart.ID, domain.NotificationPaymentReceived,
			"Payment Marked as Paid",
			fmt.Sprintf("%s marked a payment as paid: %s", s.ownerName(ctx, ownerID), paid.Description),
			map[string]any{
				"client_id":      client.ID,
				"schedule_id":    paid.ID,
				"schedule_index": index,
				"amount":         paid.Amount.String(),
				"currency":       paid.Currency,
			})
	case !errors.Is(err, domain.ErrUserNotFound):
		s.log.Error().Err(err).Str("client_id", client.ID).Msg("failed to look up counterpart")
	}

	s.log.Info().Str("client_id", client.ID).Str("schedule_id", paid.ID).Msg("payment marked as paid")
	return &paid, nil
}

// ApplyExternalPayment records a payment confirmed by the provider and
// notifies notifyUserID, or the owner when it is empty.
func (s *PaymentService) ApplyExternalPayment(ctx context.Context, clientID string, ref domain.ScheduleRef, paidAt time.Time, notifyUserID string) error {
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	var paid domain.PaymentSchedule
	client, err := mutateClient(ctx, s.deps.Clients, s.now, func(ctx context.Context) (*domain.Client, error) {
		return s.deps.Clients.FindByID(ctx, clientID)
	}, func(c *domain.Client) error {
		_, sch, err := c.ResolveSchedule(ref)
		if err != nil {
			return err
		}
		at := paidAt.UTC()
		sch.Status = domain.SchedulePaid
		sch.PaidAt = &at
		paid = *sch
		return nil
	})
	if err != nil {
		return err
	}
	metrics.PaymentsMarkedPaidTotal.WithLabelValues("provider").Inc()

	if notifyUserID == "" {
		notifyUserID = client.OwnerID
	}
	s.emit(ctx, notifyUserID, domain.NotificationPaymentReceived,
		"Payment Received",
		fmt.Sprintf("Payment received from %s for %s", client.Name, paid.Description),
		map[string]any{
			"client_id":   client.ID,
			"schedule_id": paid.ID,
			"amount":      paid.Amount.String(),
			"currency":    paid.Currency,
		})
	return nil
}

func (s *PaymentService) CreatePaymentLink(ctx context.Context, in ports.PaymentLinkInput) (*ports.PaymentLink, error) {
	if s.deps.Provider == nil {
		return nil, domain.ErrPaymentsDisabled
	}

	client, err := s.deps.Clients.FindOwned(ctx, in.OwnerID, in.ClientID)
	if err != nil {
		return nil, err
	}
	index, sch, err := client.ResolveSchedule(in.Ref)
	if err != nil {
		return nil, err
	}
	if sch.Status == domain.SchedulePaid || sch.Status == domain.ScheduleCancelled {
		return nil, fmt.Errorf("%w: schedule is %s", domain.ErrInvalidState, sch.Status)
	}

	successURL := in.SuccessURL
	if successURL == "" {
		successURL = s.deps.FrontendURL + "/dashboard/payments/success"
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = s.deps.FrontendURL + "/dashboard/payments"
	}
	description := sch.Description
	if description == "" {
		description = "Payment"
	}

	link, err := s.deps.Provider.CreateCheckout(ctx, ports.CheckoutRequest{
		Amount:        sch.Amount,
		Currency:      sch.Currency,
		Description:   description,
		CustomerEmail: client.Email,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata: map[string]string{
			"client_id":      client.ID,
			"schedule_id":    sch.ID,
			"schedule_index": strconv.Itoa(index),
			"user_id":        in.OwnerID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	return link, nil
}

// HandleProviderEvent verifies and applies a webhook delivery. An event is
// remembered as processed only after it was applied, so a failed delivery is
// retried by the provider.
func (s *PaymentService) HandleProviderEvent(ctx context.Context, payload []byte, signature string) error {
	if s.deps.Provider == nil {
		return domain.ErrPaymentsDisabled
	}

	evt, err := s.deps.Provider.VerifyEvent(payload, signature)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("invalid_signature").Inc()
		return err
	}

	if s.deps.Dedup != nil {
		dup, err := s.deps.Dedup.IsDuplicate(ctx, evt.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", evt.ID).Msg("dedup check failed, processing anyway")
		} else if dup {
			metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
			s.log.Debug().Str("event_id", evt.ID).Msg("duplicate webhook event skipped")
			return nil
		}
	}

	result := "applied"
	switch evt.Type {
	case ports.ProviderEventCheckoutCompleted:
		if err := s.applyCheckout(ctx, evt); err != nil {
			metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("apply %s: %w", evt.Type, err)
		}
	default:
		result = "ignored"
		s.log.Debug().Str("event_id", evt.ID).Str("type", evt.Type).Msg("unhandled webhook event type")
	}
	metrics.WebhookEventsTotal.WithLabelValues(result).Inc()

	if s.deps.Dedup != nil {
		if err := s.deps.Dedup.Mark(ctx, evt.ID); err != nil {
			s.log.Warn().Err(err).Str("event_id", evt.ID).Msg("failed to set dedup key")
		}
	}
	return nil
}

// applyCheckout acknowledges events whose target no longer exists; retrying
// them cannot succeed.
func (s *PaymentService) applyCheckout(ctx context.Context, evt *ports.ProviderEvent) error {
	clientID := evt.Metadata["client_id"]
	ref, err := scheduleRefFromMetadata(evt.Metadata)
	if clientID == "" || err != nil {
		s.log.Warn().Str("event_id", evt.ID).Msg("checkout event without schedule metadata")
		return nil
	}

	err = s.ApplyExternalPayment(ctx, clientID, ref, evt.OccurredAt, evt.Metadata["user_id"])
	if errors.Is(err, domain.ErrClientNotFound) || errors.Is(err, domain.ErrScheduleNotFound) {
		s.log.Warn().Err(err).Str("event_id", evt.ID).Str("client_id", clientID).Msg("checkout event target not found")
		return nil
	}
	return err
}

// SendReminder delivers one delayed payment_due reminder. Reminders for
// schedules that were paid, cancelled, removed or moved are dropped.
func (s *PaymentService) SendReminder(ctx context.Context, task ports.ReminderTask) error {
	skip := func(reason string) error {
		metrics.RemindersTotal.WithLabelValues("skipped").Inc()
		s.log.Debug().
			Str("client_id", task.ClientID).
			Str("schedule_id", task.ScheduleID).
			Str("reason", reason).
			Msg("reminder skipped")
		return nil
	}

	ref := domain.ScheduleRef{Index: -1, ID: task.ScheduleID}
	client, err := s.deps.Clients.FindByID(ctx, task.ClientID)
	if errors.Is(err, domain.ErrClientNotFound) {
		return skip("client deleted")
	}
	if err != nil {
		return err
	}
	_, sch, err := client.ResolveSchedule(ref)
	if err != nil {
		return skip("schedule removed")
	}
	if sch.Status != domain.SchedulePending {
		return skip("schedule " + string(sch.Status))
	}
	if !sch.DueDate.Equal(task.DueDate.UTC()) {
		return skip("due date changed")
	}

	if _, err := s.deps.Notifier.Emit(ctx, client.OwnerID, domain.NotificationPaymentDue,
		"Payment Due Reminder",
		fmt.Sprintf("Payment due in %d day(s) for %s: %s", task.OffsetDays, client.Name, sch.Description),
		dueData(client, *sch, task.OffsetDays),
	); err != nil {
		metrics.RemindersTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("send reminder: %w", err)
	}
	metrics.RemindersTotal.WithLabelValues("sent").Inc()

	_, err = mutateClient(ctx, s.deps.Clients, s.now, func(ctx context.Context) (*domain.Client, error) {
		return s.deps.Clients.FindByID(ctx, task.ClientID)
	}, func(c *domain.Client) error {
		_, sch, err := c.ResolveSchedule(ref)
		if err != nil {
			return err
		}
		at := s.now()
		sch.LastNotifiedAt = &at
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("schedule_id", task.ScheduleID).Msg("failed to stamp reminder time")
	}
	return nil
}

func (s *PaymentService) MarkOverdue(ctx context.Context) (int64, error) {
	n, err := s.deps.Clients.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	metrics.SchedulesOverdueTotal.Add(float64(n))
	if n > 0 {
		s.log.Info().Int64("clients", n).Msg("overdue schedules flagged")
	}
	return n, nil
}

func (s *PaymentService) scheduleReminders(ctx context.Context, clientID string, sch domain.PaymentSchedule) {
	if s.deps.Reminders == nil {
		return
	}
	for _, r := range domain.UpcomingReminders(sch.DueDate, s.now()) {
		task := ports.ReminderTask{
			ClientID:   clientID,
			ScheduleID: sch.ID,
			OffsetDays: r.OffsetDays,
			DueDate:    sch.DueDate,
		}
		if err := s.deps.Reminders.ScheduleReminder(ctx, task, r.At); err != nil {
			metrics.RemindersTotal.WithLabelValues("failed").Inc()
			s.log.Warn().Err(err).
				Str("schedule_id", sch.ID).
				Int("offset_days", r.OffsetDays).
				Msg("failed to schedule reminder")
			continue
		}
		metrics.RemindersTotal.WithLabelValues("scheduled").Inc()
	}
}

func (s *PaymentService) emitDue(ctx context.Context, client *domain.Client, sch domain.PaymentSchedule, offsetDays int) {
	s.emit(ctx, client.OwnerID, domain.NotificationPaymentDue,
		"Payment Due Reminder",
		fmt.Sprintf("Payment due for %s: %s", client.Name, sch.Description),
		dueData(client, sch, offsetDays))
}

func (s *PaymentService) emit(ctx context.Context, userID string, typ domain.NotificationType, title, message string, data map[string]any) {
	if _, err := s.deps.Notifier.Emit(ctx, userID, typ, title, message, data); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("type", string(typ)).Msg("failed to emit notification")
	}
}

func (s *PaymentService) ownerName(ctx context.Context, ownerID string) string {
	owner, err := s.deps.Users.FindByID(ctx, ownerID)
	if err != nil {
		return "Your contact"
	}
	return owner.Name
}

func dueData(client *domain.Client, sch domain.PaymentSchedule, offsetDays int) map[string]any {
	data := map[string]any{
		"client_id":   client.ID,
		"schedule_id": sch.ID,
		"due_date":    sch.DueDate,
		"amount":      sch.Amount.String(),
		"currency":    sch.Currency,
	}
	if offsetDays > 0 {
		data["days_before"] = offsetDays
	}
	return data
}

func validateSchedulePatch(p *ports.UpdateScheduleInput) error {
	if p.Amount != nil {
		if err := domain.ValidateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Frequency != nil && !p.Frequency.Valid() {
		return domain.ValidationError("unknown frequency %q", *p.Frequency)
	}
	if p.Status != nil && !p.Status.Valid() {
		return domain.ValidationError("unknown schedule status %q", *p.Status)
	}
	if p.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*p.Currency))
		if err := validateCurrency(c); err != nil {
			return err
		}
		p.Currency = &c
	}
	if p.DueDate != nil && p.DueDate.IsZero() {
		return domain.ValidationError("due date must not be empty")
	}
	return nil
}

func scheduleRefFromMetadata(md map[string]string) (domain.ScheduleRef, error) {
	if id := md["schedule_id"]; id != "" {
		return domain.ScheduleRef{Index: -1, ID: id}, nil
	}
	return domain.ParseScheduleRef(md["schedule_index"])
}
