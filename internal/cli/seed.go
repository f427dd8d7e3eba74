package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	AdminEmail    string
	AdminPassword string
	DemoEmail     string
	DemoPassword  string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create indexes and bootstrap accounts",
		Long: `Create the MongoDB indexes and, when passwords are given, an admin and a
demo account. Existing accounts are left untouched.

Example:
  settleup seed --admin-password 's3cret-admin' --demo-password 'demo-pass'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.AdminEmail, "admin-email", "admin@settleup.local", "admin account email")
	cmd.Flags().StringVar(&opts.AdminPassword, "admin-password", "", "admin account password (skipped when empty)")
	cmd.Flags().StringVar(&opts.DemoEmail, "demo-email", "demo@settleup.local", "demo account email")
	cmd.Flags().StringVar(&opts.DemoPassword, "demo-password", "", "demo account password (skipped when empty)")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(ctx, opts.RootOptions, "settleup-seed")
	if err != nil {
		return err
	}
	defer rt.Close()

	accounts := []seedAccount{
		{email: opts.AdminEmail, password: opts.AdminPassword, name: "Administrator", role: domain.RoleAdmin},
		{email: opts.DemoEmail, password: opts.DemoPassword, name: "Demo User", role: domain.RoleUser},
	}
	for _, a := range accounts {
		if a.password == "" {
			continue
		}
		created, err := seedUser(ctx, rt.users, a, time.Now().UTC())
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s account %s\n", a.role, a.email)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, skipped\n", a.email)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "seed complete")
	return nil
}

type seedAccount struct {
	email    string
	password string
	name     string
	role     string
}

// seedUser reports false when the account already exists.
func seedUser(ctx context.Context, users ports.UserRepository, a seedAccount, now time.Time) (bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
	if err != nil {
		return false, wrap("hash password", err)
	}

	_, err = users.Create(ctx, &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(a.email)),
		PasswordHash: string(hash),
		Name:         a.name,
		CompanyName:  "SettleUp",
		Role:         a.role,
		Region:       domain.DefaultRegion,
		IsActive:     true,
		Clients:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrUserExists) {
		return false, nil
	}
	if err != nil {
		return false, wrap("create "+a.email, err)
	}
	return true, nil
}
