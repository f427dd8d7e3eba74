package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "settleup", cmd.Use)
	assert.Contains(t, cmd.Long, "JWT_SECRET")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"serve", "worker", "seed"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	level := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "", level.DefValue)

	pretty := cmd.PersistentFlags().Lookup("pretty")
	require.NotNil(t, pretty)
	assert.Equal(t, "false", pretty.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	serve, _, err := NewRootCommand().Find([]string{"serve"})
	require.NoError(t, err)

	flag := serve.Flags().Lookup("embedded-worker")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestWorkerCommandFlags(t *testing.T) {
	worker, _, err := NewRootCommand().Find([]string{"worker"})
	require.NoError(t, err)

	flag := worker.Flags().Lookup("sweep")
	require.NotNil(t, flag)
	assert.Equal(t, "@every 1h", flag.DefValue)
}

func TestSeedCommandFlags(t *testing.T) {
	seed, _, err := NewRootCommand().Find([]string{"seed"})
	require.NoError(t, err)

	for _, name := range []string{"admin-email", "admin-password", "demo-email", "demo-password"} {
		assert.NotNil(t, seed.Flags().Lookup(name), "flag %s", name)
	}
}

type seedRepo struct {
	ports.UserRepository
	created []*domain.User
	exists  bool
}

func (r *seedRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if r.exists {
		return nil, domain.ErrUserExists
	}
	r.created = append(r.created, u)
	return u, nil
}

func TestSeedUser_CreatesHashedAccount(t *testing.T) {
	repo := &seedRepo{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	created, err := seedUser(context.Background(), repo, seedAccount{
		email: " Admin@SettleUp.local ", password: "s3cret-admin", name: "Administrator", role: domain.RoleAdmin,
	}, now)
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, repo.created, 1)

	u := repo.created[0]
	assert.Equal(t, "admin@settleup.local", u.Email)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-admin")))
}

func TestSeedUser_SkipsExisting(t *testing.T) {
	repo := &seedRepo{exists: true}

	created, err := seedUser(context.Background(), repo, seedAccount{
		email: "demo@settleup.local", password: "demo-pass", role: domain.RoleUser,
	}, time.Now())
	require.NoError(t, err)
	assert.False(t, created)
}
