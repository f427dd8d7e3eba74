package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

const (
	defaultTokenTTL   = 7 * 24 * time.Hour
	minPasswordLength = 8
)

// AuthService implements registration, password login and identity-provider login.
type AuthService struct {
	repo      ports.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(repo ports.UserRepository, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{
		repo:      repo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.ValidationError("password must be at least %d characters", minPasswordLength)
	}
	if err := requireField("name", in.Name); err != nil {
		return nil, err
	}
	if err := requireField("company name", in.CompanyName); err != nil {
		return nil, err
	}

	region := domain.DefaultRegion
	if in.Timezone != "" {
		region.Timezone = in.Timezone
	}
	if in.Currency != "" {
		region.Currency = strings.ToUpper(in.Currency)
	}
	if in.Country != "" {
		region.Country = in.Country
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		CompanyName:  strings.TrimSpace(in.CompanyName),
		Role:         domain.RoleUser,
		Region:       region,
		IsActive:     true,
		Clients:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return s.issue(created)
}

// Login reports an unknown email and a wrong password identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrForbidden
	}

	s.touchLogin(ctx, user)
	return s.issue(user)
}

// LoginWithIdentity resolves an OAuth profile to a user: by provider id
// first, then by email (linking the provider id), else by creating a new
// account.
func (s *AuthService) LoginWithIdentity(ctx context.Context, identity domain.ExternalIdentity) (*ports.AuthResult, error) {
	email := normalizeEmail(identity.Email)
	if identity.ProviderID == "" {
		return nil, domain.ValidationError("identity provider id is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByGoogleID(ctx, identity.ProviderID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		user, err = s.linkOrCreate(ctx, identity, email)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !user.IsActive {
		return nil, domain.ErrForbidden
	}

	s.touchLogin(ctx, user)
	return s.issue(user)
}

func (s *AuthService) linkOrCreate(ctx context.Context, identity domain.ExternalIdentity, email string) (*domain.User, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		if err := s.repo.LinkGoogleID(ctx, existing.ID, identity.ProviderID); err != nil {
			return nil, fmt.Errorf("link identity: %w", err)
		}
		existing.GoogleID = identity.ProviderID
		s.log.Info().Str("user_id", existing.ID).Msg("identity linked to existing user")
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Email:       email,
		GoogleID:    identity.ProviderID,
		Name:        name,
		CompanyName: strings.Fields(name)[0] + " Co.",
		Role:        domain.RoleUser,
		Region:      domain.IdentityRegion,
		IsActive:    true,
		Clients:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", created.ID).Str("provider", identity.Provider).Msg("user created from identity")
	return created, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *AuthService) UpdateRegion(ctx context.Context, userID string, region domain.Region) (*domain.User, error) {
	if err := requireField("timezone", region.Timezone); err != nil {
		return nil, err
	}
	region.Currency = strings.ToUpper(strings.TrimSpace(region.Currency))
	if err := validateCurrency(region.Currency); err != nil {
		return nil, err
	}
	if err := requireField("country", region.Country); err != nil {
		return nil, err
	}
	return s.repo.UpdateRegion(ctx, userID, region)
}

// touchLogin records the login time; a failure here must not block sign-in.
func (s *AuthService) touchLogin(ctx context.Context, user *domain.User) {
	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to update last login")
		return
	}
	user.LastLogin = &now
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
