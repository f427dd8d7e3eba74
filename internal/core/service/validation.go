package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/settleup/settleup-api/internal/core/domain"
)

var validate = validator.New()

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return domain.ValidationError("email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return domain.ValidationError("email must be a valid email")
	}
	return nil
}

func validateCurrency(code string) error {
	if err := validate.Var(code, "iso4217"); err != nil {
		return domain.ValidationError("currency must be an ISO 4217 code")
	}
	return nil
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.ValidationError("%s is required", name)
	}
	return nil
}
