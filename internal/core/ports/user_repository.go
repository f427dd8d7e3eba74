package ports

import (
	"context"
	"time"

	"github.com/settleup/settleup-api/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	// SearchByEmail returns users whose email contains fragment, excluding excludeID.
	SearchByEmail(ctx context.Context, fragment, excludeID string, limit int) ([]*domain.User, error)
	LinkGoogleID(ctx context.Context, id, googleID string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateRegion(ctx context.Context, id string, region domain.Region) (*domain.User, error)
	AddClient(ctx context.Context, userID, clientID string) error
	RemoveClient(ctx context.Context, userID, clientID string) error
}
