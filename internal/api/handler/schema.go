package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/settleup/settleup-api/internal/core/domain"
)

// errorResponse documents the envelope written by the central error handler.
type errorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// --- auth ---

type registerRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Password    string `json:"password"     validate:"required,min=8"`
	Name        string `json:"name"         validate:"required"`
	CompanyName string `json:"company_name" validate:"required"`
	Timezone    string `json:"timezone"     validate:"omitempty,timezone"`
	Currency    string `json:"currency"     validate:"omitempty,iso4217"`
	Country     string `json:"country"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type regionRequest struct {
	Timezone string `json:"timezone" validate:"required,timezone"`
	Currency string `json:"currency" validate:"required,iso4217"`
	Country  string `json:"country"  validate:"required"`
}

type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token,omitempty"`
	User    *domain.User `json:"user,omitempty"`
}

type regionResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Region  domain.Region `json:"region"`
}

// --- clients ---

type createClientRequest struct {
	Name        string         `json:"name"         validate:"required"`
	Email       string         `json:"email"        validate:"required,email"`
	CompanyName string         `json:"company_name"`
	Notes       string         `json:"notes"`
	Region      *regionRequest `json:"region"`
}

type respondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

type updateClientRequest struct {
	Name        *string        `json:"name"         validate:"omitempty,min=1"`
	CompanyName *string        `json:"company_name"`
	Notes       *string        `json:"notes"`
	Region      *regionRequest `json:"region"`
	Status      *string        `json:"status"       validate:"omitempty,oneof=pending active rejected inactive"`
}

type clientResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Client  *domain.Client `json:"client"`
}

type clientListResponse struct {
	Success bool             `json:"success"`
	Clients []*domain.Client `json:"clients"`
}

type clientSearchResponse struct {
	Success        bool             `json:"success"`
	Clients        []*domain.Client `json:"clients"`
	PotentialUsers []*domain.User   `json:"potential_users"`
}

type clientStatsResponse struct {
	Success bool                 `json:"success"`
	Stats   []domain.ClientStats `json:"stats"`
}

// --- payments ---

type createScheduleRequest struct {
	ClientID    string          `json:"client_id"   validate:"required"`
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount"      swaggertype:"number" example:"120.5"`
	Currency    string          `json:"currency"    validate:"omitempty,iso4217"`
	DueDate     time.Time       `json:"due_date"    validate:"required"`
	Frequency   string          `json:"frequency"   validate:"omitempty,oneof=one-time weekly monthly quarterly yearly"`
}

type updateScheduleRequest struct {
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"    swaggertype:"number"`
	Currency    *string          `json:"currency"  validate:"omitempty,iso4217"`
	DueDate     *time.Time       `json:"due_date"`
	Frequency   *string          `json:"frequency" validate:"omitempty,oneof=one-time weekly monthly quarterly yearly"`
	Status      *string          `json:"status"    validate:"omitempty,oneof=pending paid overdue cancelled"`
}

type paymentLinkRequest struct {
	ClientID      string `json:"client_id"      validate:"required"`
	ScheduleIndex string `json:"schedule_index" validate:"required"`
	SuccessURL    string `json:"success_url"    validate:"omitempty,url"`
	CancelURL     string `json:"cancel_url"     validate:"omitempty,url"`
}

type scheduleResponse struct {
	Success         bool                    `json:"success"`
	Message         string                  `json:"message,omitempty"`
	PaymentSchedule *domain.PaymentSchedule `json:"payment_schedule"`
}

type scheduleListResponse struct {
	Success          bool                     `json:"success"`
	PaymentSchedules []domain.PaymentSchedule `json:"payment_schedules"`
}

type paymentLinkResponse struct {
	Success     bool      `json:"success"`
	PaymentLink string    `json:"payment_link"`
	SessionID   string    `json:"session_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type webhookResponse struct {
	Received bool `json:"received"`
}

// --- notifications ---

type notificationListResponse struct {
	Success       bool                   `json:"success"`
	Notifications []*domain.Notification `json:"notifications"`
}

type notificationResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	Notification *domain.Notification `json:"notification"`
}

type countResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}
