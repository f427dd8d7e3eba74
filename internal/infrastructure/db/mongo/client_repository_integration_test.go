//go:build integration

package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/settleup/settleup-api/internal/core/domain"
)

// Run with: MONGO_TEST_URI=mongodb://localhost:27017 go test -tags integration ./internal/infrastructure/db/mongo/
func newIntegrationRepo(t *testing.T) *ClientRepository {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, db, err := Connect(ctx, Config{URI: uri, Database: "settleup_test_" + primitive.NewObjectID().Hex()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	repo := NewClientRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	return repo
}

func seedClient(t *testing.T, repo *ClientRepository, status domain.ClientStatus, schedules ...domain.PaymentSchedule) *domain.Client {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	c, err := repo.Create(context.Background(), &domain.Client{
		OwnerID:          primitive.NewObjectID().Hex(),
		Name:             "Acme",
		Email:            "billing@acme.test",
		Status:           status,
		PaymentSchedules: schedules,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return c
}

func TestClientRepository_UpdateDetectsStaleVersion(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()
	c := seedClient(t, repo, domain.ClientActive)

	first, _ := repo.FindByID(ctx, c.ID)
	second, _ := repo.FindByID(ctx, c.ID)

	first.Name = "Acme Ltd"
	if err := repo.Update(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}
	second.Name = "Acme Inc"
	if err := repo.Update(ctx, second); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, c.ID)
	if stored.Name != "Acme Ltd" || stored.Version != 1 {
		t.Fatalf("unexpected stored client: %+v", stored)
	}

	missing := *stored
	missing.ID = primitive.NewObjectID().Hex()
	if err := repo.Update(ctx, &missing); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestClientRepository_AppendScheduleRequiresActive(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()
	pending := seedClient(t, repo, domain.ClientPending)

	s := domain.PaymentSchedule{ID: "s1", Amount: decimal.RequireFromString("120.50"), Currency: "USD", Status: domain.SchedulePending, DueDate: time.Now().UTC()}
	if err := repo.AppendSchedule(ctx, pending.ID, s); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	active := seedClient(t, repo, domain.ClientActive)
	if err := repo.AppendSchedule(ctx, active.ID, s); err != nil {
		t.Fatalf("append: %v", err)
	}
	stored, _ := repo.FindByID(ctx, active.ID)
	if len(stored.PaymentSchedules) != 1 || !stored.PaymentSchedules[0].Amount.Equal(s.Amount) {
		t.Fatalf("unexpected schedules: %+v", stored.PaymentSchedules)
	}
	if stored.Version != 1 {
		t.Fatalf("expected version bump, got %d", stored.Version)
	}
}

func TestClientRepository_MarkOverdueOnlyTouchesPastPending(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	c := seedClient(t, repo, domain.ClientActive,
		domain.PaymentSchedule{ID: "past", Amount: decimal.NewFromInt(1), Status: domain.SchedulePending, DueDate: now.AddDate(0, 0, -2)},
		domain.PaymentSchedule{ID: "future", Amount: decimal.NewFromInt(1), Status: domain.SchedulePending, DueDate: now.AddDate(0, 0, 2)},
		domain.PaymentSchedule{ID: "paid", Amount: decimal.NewFromInt(1), Status: domain.SchedulePaid, DueDate: now.AddDate(0, 0, -2)},
	)

	n, err := repo.MarkOverdue(ctx, now)
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 client modified, got %d", n)
	}

	stored, _ := repo.FindByID(ctx, c.ID)
	want := map[string]domain.ScheduleStatus{"past": domain.ScheduleOverdue, "future": domain.SchedulePending, "paid": domain.SchedulePaid}
	for _, s := range stored.PaymentSchedules {
		if s.Status != want[s.ID] {
			t.Fatalf("schedule %s: expected %s, got %s", s.ID, want[s.ID], s.Status)
		}
	}
}
