package ports

import (
	"context"
	"time"

	"github.com/settleup/settleup-api/internal/core/domain"
)

// ListClientsFilter carries the query parameters for listing clients.
// OwnerID is always enforced by the service layer.
type ListClientsFilter struct {
	OwnerID string
	Status  string // optional: exact status match
	Search  string // optional: case-insensitive match on name, email or company name
}

// ClientRepository defines persistence operations for clients and their
// embedded payment schedules.
type ClientRepository interface {
	Create(ctx context.Context, c *domain.Client) (*domain.Client, error)
	FindByID(ctx context.Context, id string) (*domain.Client, error)
	// FindOwned reports a client owned by someone else as ErrClientNotFound.
	FindOwned(ctx context.Context, ownerID, id string) (*domain.Client, error)
	FindByOwnerAndEmail(ctx context.Context, ownerID, email string) (*domain.Client, error)
	List(ctx context.Context, filter ListClientsFilter) ([]*domain.Client, error)
	SearchByEmail(ctx context.Context, ownerID, fragment string, limit int) ([]*domain.Client, error)
	// Update replaces the mutable fields of c when the stored version still
	// equals c.Version, otherwise it returns ErrVersionConflict. On success
	// c.Version is advanced.
	Update(ctx context.Context, c *domain.Client) error
	// AppendSchedule pushes s onto the client's schedules only while the
	// client is active; otherwise it returns ErrInvalidState.
	AppendSchedule(ctx context.Context, clientID string, s domain.PaymentSchedule) error
	Delete(ctx context.Context, ownerID, id string) error
	// MarkOverdue flips every pending schedule due before the given time to
	// overdue and reports how many clients were touched.
	MarkOverdue(ctx context.Context, before time.Time) (int64, error)
	Stats(ctx context.Context, ownerID string) ([]domain.ClientStats, error)
}
