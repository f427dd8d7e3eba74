package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// currentUser extracts the identity injected by the Auth middleware and
// fails fast before any service call when it is missing.
func currentUser(c echo.Context) (userID, role string, err error) {
	userID, _ = c.Get("user_id").(string)
	if userID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ = c.Get("role").(string)
	return userID, role, nil
}

func currentUserID(c echo.Context) (string, error) {
	userID, _, err := currentUser(c)
	return userID, err
}

// bindAndValidate decodes the request body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
