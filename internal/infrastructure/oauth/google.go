package oauth

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog"

	"github.com/settleup/settleup-api/internal/core/domain"
)

const providerGoogle = "google"

// Config holds the Google OAuth client settings.
type Config struct {
	ClientID      string
	ClientSecret  string
	CallbackURL   string
	SessionSecret string
	Secure        bool
}

// Google runs the Google OAuth handshake through goth. The short-lived
// handshake state lives in a signed cookie; the API itself stays stateless.
type Google struct{}

// NewGoogle configures gothic and registers the Google provider. It returns
// nil when no client id is configured.
func NewGoogle(cfg Config, log zerolog.Logger) *Google {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	if cfg.ClientID == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID not set, Google sign-in disabled")
		return nil
	}

	goth.UseProviders(google.New(cfg.ClientID, cfg.ClientSecret, cfg.CallbackURL, "email", "profile"))
	log.Info().Msg("oauth providers initialized: google")
	return &Google{}
}

// withProvider sets the "provider" query parameter gothic requires.
func withProvider(r *http.Request) *http.Request {
	q := r.URL.Query()
	q.Set("provider", providerGoogle)
	r.URL.RawQuery = q.Encode()
	return r
}

// Begin redirects the browser to Google's consent screen.
func (g *Google) Begin(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, withProvider(r))
}

// Complete finishes the handshake and returns the verified identity.
func (g *Google) Complete(w http.ResponseWriter, r *http.Request) (*domain.ExternalIdentity, error) {
	user, err := gothic.CompleteUserAuth(w, withProvider(r))
	if err != nil {
		return nil, fmt.Errorf("google callback: %w", err)
	}
	if user.Email == "" {
		return nil, fmt.Errorf("google callback: %w", domain.ErrInvalidCredentials)
	}
	return &domain.ExternalIdentity{
		Provider:   providerGoogle,
		ProviderID: user.UserID,
		Email:      user.Email,
		Name:       user.Name,
	}, nil
}
