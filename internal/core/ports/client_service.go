package ports

import (
	"context"

	"github.com/settleup/settleup-api/internal/core/domain"
)

type CreateClientInput struct {
	OwnerID     string
	Name        string
	Email       string
	CompanyName string
	Notes       string
	Region      *domain.Region
}

// UpdateClientInput is a partial update; nil fields are left untouched.
type UpdateClientInput struct {
	Name        *string
	CompanyName *string
	Notes       *string
	Region      *domain.Region
	Status      *domain.ClientStatus
}

type ClientSearchResult struct {
	Clients        []*domain.Client
	PotentialUsers []*domain.User
}

type ClientService interface {
	Create(ctx context.Context, in CreateClientInput) (*domain.Client, error)
	Respond(ctx context.Context, clientID, responderID string, accept bool) (*domain.Client, error)
	Get(ctx context.Context, ownerID, clientID string) (*domain.Client, error)
	List(ctx context.Context, filter ListClientsFilter) ([]*domain.Client, error)
	Update(ctx context.Context, ownerID, clientID string, patch UpdateClientInput) (*domain.Client, error)
	Delete(ctx context.Context, ownerID, clientID string) error
	SearchByEmail(ctx context.Context, ownerID, fragment string) (*ClientSearchResult, error)
	Stats(ctx context.Context, ownerID string) ([]domain.ClientStats, error)
}
