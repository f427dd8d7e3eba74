package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBytes = 64 << 10
)

// PaymentHandler handles payment schedule, checkout and webhook requests.
type PaymentHandler struct {
	service ports.PaymentService
}

func NewPaymentHandler(service ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// CreateSchedule adds a payment schedule to an active client.
//
// @Summary      Create a payment schedule
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createScheduleRequest  true  "Schedule"
// @Success      201   {object}  scheduleResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /payments/schedule [post]
func (h *PaymentHandler) CreateSchedule(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req createScheduleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sch, err := h.service.CreateSchedule(c.Request().Context(), ports.CreateScheduleInput{
		OwnerID:     userID,
		ClientID:    req.ClientID,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		DueDate:     req.DueDate,
		Frequency:   domain.Frequency(req.Frequency),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, scheduleResponse{
		Success:         true,
		Message:         "Payment schedule created successfully",
		PaymentSchedule: sch,
	})
}

// ListSchedules returns a client's schedules ordered by due date.
//
// @Summary      List payment schedules
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true   "Client id"
// @Param        status  query     string  false  "Filter by schedule status"
// @Success      200     {object}  scheduleListResponse
// @Failure      404     {object}  errorResponse
// @Router       /payments/client/{id} [get]
func (h *PaymentHandler) ListSchedules(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	schedules, err := h.service.ListSchedules(c.Request().Context(), userID, c.Param("id"), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scheduleListResponse{Success: true, PaymentSchedules: schedules})
}

// UpdateSchedule patches a schedule addressed by index or id.
//
// @Summary      Update a payment schedule
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string                 true  "Client id"
// @Param        index  path      string                 true  "Schedule index or id"
// @Param        body   body      updateScheduleRequest  true  "Fields to change"
// @Success      200    {object}  scheduleResponse
// @Failure      400    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /payments/schedule/{id}/{index} [put]
func (h *PaymentHandler) UpdateSchedule(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	ref, err := domain.ParseScheduleRef(c.Param("index"))
	if err != nil {
		return err
	}
	var req updateScheduleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	patch := ports.UpdateScheduleInput{
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		DueDate:     req.DueDate,
	}
	if req.Frequency != nil {
		f := domain.Frequency(*req.Frequency)
		patch.Frequency = &f
	}
	if req.Status != nil {
		s := domain.ScheduleStatus(*req.Status)
		patch.Status = &s
	}

	sch, err := h.service.UpdateSchedule(c.Request().Context(), userID, c.Param("id"), ref, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scheduleResponse{
		Success:         true,
		Message:         "Payment schedule updated successfully",
		PaymentSchedule: sch,
	})
}

// MarkPaid records a manual payment.
//
// @Summary      Mark a schedule as paid
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true  "Client id"
// @Param        index  path      string  true  "Schedule index or id"
// @Success      200    {object}  scheduleResponse
// @Failure      404    {object}  errorResponse
// @Router       /payments/{id}/{index}/mark-paid [post]
func (h *PaymentHandler) MarkPaid(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	ref, err := domain.ParseScheduleRef(c.Param("index"))
	if err != nil {
		return err
	}

	sch, err := h.service.MarkPaid(c.Request().Context(), userID, c.Param("id"), ref)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scheduleResponse{
		Success:         true,
		Message:         "Payment marked as paid",
		PaymentSchedule: sch,
	})
}

// CreatePaymentLink opens a hosted checkout session for a schedule.
//
// @Summary      Create a payment link
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      paymentLinkRequest  true  "Target schedule"
// @Success      200   {object}  paymentLinkResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /payments/create-payment-link [post]
func (h *PaymentHandler) CreatePaymentLink(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req paymentLinkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ref, err := domain.ParseScheduleRef(req.ScheduleIndex)
	if err != nil {
		return err
	}

	link, err := h.service.CreatePaymentLink(c.Request().Context(), ports.PaymentLinkInput{
		OwnerID:    userID,
		ClientID:   req.ClientID,
		Ref:        ref,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paymentLinkResponse{
		Success:     true,
		PaymentLink: link.URL,
		SessionID:   link.SessionID,
		ExpiresAt:   link.ExpiresAt,
	})
}

// Webhook receives signed payment provider events.
//
// @Summary      Payment provider webhook
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Provider signature"
// @Success      200               {object}  webhookResponse
// @Failure      400               {object}  errorResponse
// @Router       /payments/webhook [post]
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	if err := h.service.HandleProviderEvent(c.Request().Context(), payload, c.Request().Header.Get(signatureHeader)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, webhookResponse{Received: true})
}
