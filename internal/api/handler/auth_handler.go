package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
	"github.com/settleup/settleup-api/pkg/logger"
)

// IdentityProvider runs an external OAuth handshake.
type IdentityProvider interface {
	Begin(w http.ResponseWriter, r *http.Request)
	Complete(w http.ResponseWriter, r *http.Request) (*domain.ExternalIdentity, error)
}

type AuthHandler struct {
	authService ports.AuthService
	google      IdentityProvider
	frontendURL string
}

// NewAuthHandler builds the auth handler. google may be nil when Google
// sign-in is not configured.
func NewAuthHandler(authService ports.AuthService, google IdentityProvider, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, google: google, frontendURL: frontendURL}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Timezone:    req.Timezone,
		Currency:    req.Currency,
		Country:     req.Country,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{
		Success: true,
		Message: "Registration successful",
		Token:   res.Token,
		User:    res.User,
	})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		Token:   res.Token,
		User:    res.User,
	})
}

// Me returns the authenticated user's profile.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  authResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Success: true, User: user})
}

// UpdateRegion replaces the authenticated user's region settings.
//
// @Summary      Update region settings
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      regionRequest  true  "Region"
// @Success      200   {object}  regionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/region [put]
func (h *AuthHandler) UpdateRegion(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req regionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.UpdateRegion(c.Request().Context(), userID, domain.Region{
		Timezone: req.Timezone,
		Currency: req.Currency,
		Country:  req.Country,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, regionResponse{
		Success: true,
		Message: "Region settings updated",
		Region:  user.Region,
	})
}

// GoogleBegin redirects to Google's consent screen.
//
// @Summary      Start Google sign-in
// @Tags         auth
// @Success      302
// @Failure      503  {object}  errorResponse
// @Router       /auth/google [get]
func (h *AuthHandler) GoogleBegin(c echo.Context) error {
	if h.google == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "google sign-in is not configured")
	}
	h.google.Begin(c.Response(), c.Request())
	return nil
}

// GoogleCallback completes Google sign-in and redirects to the frontend
// with a bearer token, or to the login page on failure.
//
// @Summary      Google sign-in callback
// @Tags         auth
// @Success      302
// @Router       /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if h.google == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "google sign-in is not configured")
	}
	log := logger.FromEcho(c)

	identity, err := h.google.Complete(c.Response(), c.Request())
	if err != nil {
		log.Warn().Err(err).Msg("google sign-in failed")
		return c.Redirect(http.StatusFound, h.frontendURL+"/login?error=auth_failed")
	}

	res, err := h.authService.LoginWithIdentity(c.Request().Context(), *identity)
	if err != nil {
		log.Warn().Err(err).Str("email", identity.Email).Msg("google sign-in rejected")
		return c.Redirect(http.StatusFound, h.frontendURL+"/login?error=auth_failed")
	}

	return c.Redirect(http.StatusFound, h.frontendURL+"/auth/callback?token="+url.QueryEscape(res.Token))
}
