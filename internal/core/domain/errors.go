package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access forbidden")

	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")

	ErrClientNotFound   = errors.New("client not found")
	ErrDuplicateClient  = errors.New("client already exists")
	ErrInvalidState     = errors.New("client is not in a valid state for this operation")
	ErrVersionConflict  = errors.New("client was modified concurrently")
	ErrScheduleNotFound = errors.New("payment schedule not found")

	ErrNotificationNotFound = errors.New("notification not found")

	ErrPaymentsDisabled = errors.New("payment provider is not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// ValidationError wraps ErrValidation with a field-level message.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
