package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
	"github.com/settleup/settleup-api/internal/pkg/metrics"
)

const (
	maxWriteAttempts  = 3
	searchResultLimit = 10
)

// ClientService manages owner/counterpart relationships.
type ClientService struct {
	clients  ports.ClientRepository
	users    ports.UserRepository
	notifier ports.NotificationEmitter
	log      zerolog.Logger
	now      func() time.Time
}

func NewClientService(
	clients ports.ClientRepository,
	users ports.UserRepository,
	notifier ports.NotificationEmitter,
	log zerolog.Logger,
) *ClientService {
	return &ClientService{
		clients:  clients,
		users:    users,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a counterpart for the owner. A counterpart that already
// holds an account starts pending and is asked to confirm; anyone else is
// active immediately.
func (s *ClientService) Create(ctx context.Context, in ports.CreateClientInput) (*domain.Client, error) {
	email := normalizeEmail(in.Email)
	if err := requireField("name", in.Name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := requireField("company name", in.CompanyName); err != nil {
		return nil, err
	}
	region, err := normalizeRegion(in.Region)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.FindByID(ctx, in.OwnerID)
	if err != nil {
		return nil, err
	}

	_, err = s.clients.FindByOwnerAndEmail(ctx, owner.ID, email)
	if err == nil {
		return nil, domain.ErrDuplicateClient
	}
	if !errors.Is(err, domain.ErrClientNotFound) {
		return nil, err
	}

	counterpart, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	status := domain.ClientActive
	if counterpart != nil {
		status = domain.ClientPending
	}

	now := s.now()
	created, err := s.clients.Create(ctx, &domain.Client{
		OwnerID:          owner.ID,
		Name:             strings.TrimSpace(in.Name),
		Email:            email,
		CompanyName:      strings.TrimSpace(in.CompanyName),
		Status:           status,
		Region:           region,
		Notes:            in.Notes,
		PaymentSchedules: []domain.PaymentSchedule{},
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.users.AddClient(ctx, owner.ID, created.ID); err != nil {
		return nil, fmt.Errorf("add client to owner: %w", err)
	}
	metrics.ClientsCreatedTotal.WithLabelValues(string(status)).Inc()

	if counterpart != nil {
		s.emit(ctx, counterpart.ID, domain.NotificationClientAddRequest,
			"New Client Request",
			fmt.Sprintf("%s wants to add you as a client", owner.Name),
			map[string]any{
				"client_id":     created.ID,
				"added_by":      owner.ID,
				"added_by_name": owner.Name,
				"company_name":  owner.CompanyName,
			})
	}

	s.log.Info().
		Str("client_id", created.ID).
		Str("owner_id", owner.ID).
		Str("status", string(status)).
		Msg("client created")

	return created, nil
}

// Respond records the counterpart's answer to an add request. It is not
// idempotent: every call re-applies the transition and notifies the owner.
func (s *ClientService) Respond(ctx context.Context, clientID, responderID string, accept bool) (*domain.Client, error) {
	responder, err := s.users.FindByID(ctx, responderID)
	if err != nil {
		return nil, err
	}

	next := domain.ClientRejected
	if accept {
		next = domain.ClientActive
	}

	client, err := s.mutate(ctx, func(ctx context.Context) (*domain.Client, error) {
		return s.clients.FindByID(ctx, clientID)
	}, func(c *domain.Client) error {
		if c.Email != normalizeEmail(responder.Email) {
			return domain.ErrForbidden
		}
		c.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := "accepted"
	if !accept {
		result = "rejected"
		if err := s.users.RemoveClient(ctx, client.OwnerID, client.ID); err != nil {
			return nil, fmt.Errorf("remove client from owner: %w", err)
		}
	}
	metrics.ClientResponsesTotal.WithLabelValues(result).Inc()

	title := "Client Request Accepted"
	if !accept {
		title = "Client Request Rejected"
	}
	s.emit(ctx, client.OwnerID, domain.NotificationClientAddResponse,
		title,
		fmt.Sprintf("%s has %s your client request", client.Name, result),
		map[string]any{
			"client_id": client.ID,
			"status":    string(client.Status),
		})

	s.log.Info().Str("client_id", client.ID).Str("result", result).Msg("client request answered")
	return client, nil
}

func (s *ClientService) Get(ctx context.Context, ownerID, clientID string) (*domain.Client, error) {
	return s.clients.FindOwned(ctx, ownerID, clientID)
}

func (s *ClientService) List(ctx context.Context, filter ports.ListClientsFilter) ([]*domain.Client, error) {
	if filter.Status != "" && !domain.ClientStatus(filter.Status).Valid() {
		return nil, domain.ValidationError("unknown client status %q", filter.Status)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.clients.List(ctx, filter)
}

// Update applies a partial patch. Email is the relationship key and cannot change.
func (s *ClientService) Update(ctx context.Context, ownerID, clientID string, patch ports.UpdateClientInput) (*domain.Client, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.ValidationError("unknown client status %q", *patch.Status)
	}
	region, err := normalizeRegion(patch.Region)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, func(ctx context.Context) (*domain.Client, error) {
		return s.clients.FindOwned(ctx, ownerID, clientID)
	}, func(c *domain.Client) error {
		if patch.Name != nil {
			if err := requireField("name", *patch.Name); err != nil {
				return err
			}
			c.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.CompanyName != nil {
			if err := requireField("company name", *patch.CompanyName); err != nil {
				return err
			}
			c.CompanyName = strings.TrimSpace(*patch.CompanyName)
		}
		if patch.Notes != nil {
			c.Notes = *patch.Notes
		}
		if region != nil {
			c.Region = region
		}
		if patch.Status != nil {
			c.Status = *patch.Status
		}
		return nil
	})
}

func (s *ClientService) Delete(ctx context.Context, ownerID, clientID string) error {
	if err := s.clients.Delete(ctx, ownerID, clientID); err != nil {
		return err
	}
	if err := s.users.RemoveClient(ctx, ownerID, clientID); err != nil {
		return fmt.Errorf("remove client from owner: %w", err)
	}
	s.log.Info().Str("client_id", clientID).Str("owner_id", ownerID).Msg("client deleted")
	return nil
}

// SearchByEmail returns the owner's matching clients plus registered users
// that could be added, excluding the owner.
func (s *ClientService) SearchByEmail(ctx context.Context, ownerID, fragment string) (*ports.ClientSearchResult, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, domain.ValidationError("email query parameter is required")
	}

	clients, err := s.clients.SearchByEmail(ctx, ownerID, fragment, searchResultLimit)
	if err != nil {
		return nil, err
	}
	users, err := s.users.SearchByEmail(ctx, fragment, ownerID, searchResultLimit)
	if err != nil {
		return nil, err
	}
	return &ports.ClientSearchResult{Clients: clients, PotentialUsers: users}, nil
}

func (s *ClientService) Stats(ctx context.Context, ownerID string) ([]domain.ClientStats, error) {
	return s.clients.Stats(ctx, ownerID)
}

func (s *ClientService) mutate(ctx context.Context, load func(context.Context) (*domain.Client, error), apply func(*domain.Client) error) (*domain.Client, error) {
	return mutateClient(ctx, s.clients, s.now, load, apply)
}

func (s *ClientService) emit(ctx context.Context, userID string, typ domain.NotificationType, title, message string, data map[string]any) {
	if _, err := s.notifier.Emit(ctx, userID, typ, title, message, data); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("type", string(typ)).Msg("failed to emit notification")
	}
}

// mutateClient runs a read-modify-write cycle on a client guarded by its
// version counter, reloading and re-applying on a concurrent modification.
func mutateClient(
	ctx context.Context,
	repo ports.ClientRepository,
	now func() time.Time,
	load func(context.Context) (*domain.Client, error),
	apply func(*domain.Client) error,
) (*domain.Client, error) {
	for attempt := 1; ; attempt++ {
		c, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := apply(c); err != nil {
			return nil, err
		}
		c.UpdatedAt = now()

		err = repo.Update(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) || attempt >= maxWriteAttempts {
			return nil, err
		}
		metrics.ClientVersionConflictsTotal.Inc()
	}
}

func normalizeRegion(r *domain.Region) (*domain.Region, error) {
	if r == nil {
		return nil, nil
	}
	out := *r
	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	if out.Currency != "" {
		if err := validateCurrency(out.Currency); err != nil {
			return nil, err
		}
	}
	return &out, nil
}
