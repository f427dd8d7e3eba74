package ports

import (
	"context"

	"github.com/settleup/settleup-api/internal/core/domain"
)

type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	CompanyName string
	Timezone    string
	Currency    string
	Country     string
}

// AuthResult is returned by every successful sign-in path.
type AuthResult struct {
	Token string
	User  *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	LoginWithIdentity(ctx context.Context, identity domain.ExternalIdentity) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	UpdateRegion(ctx context.Context, userID string, region domain.Region) (*domain.User, error)
}
