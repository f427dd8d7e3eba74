package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/settleup/settleup-api/internal/api"
	"github.com/settleup/settleup-api/internal/api/handler"
	"github.com/settleup/settleup-api/internal/core/service"
	"github.com/settleup/settleup-api/internal/infrastructure/oauth"
	"github.com/settleup/settleup-api/internal/infrastructure/queue"
)

const shutdownTimeout = 15 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	EmbeddedWorker bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

With --embedded-worker the reminder worker and the overdue sweep run in the
same process, which is convenient for local development.

Example:
  JWT_SECRET=dev settleup serve --embedded-worker`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.EmbeddedWorker, "embedded-worker", false, "run the background worker in-process")

	return cmd
}

func runServe(parent context.Context, opts *ServeOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, opts.RootOptions, "settleup-api")
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.log

	if opts.EmbeddedWorker {
		stopWorker, err := queue.NewWorker(queue.WorkerConfig{
			Redis:       redisOpt(rt.cfg),
			Concurrency: rt.cfg.Notify.WorkerConcurrency,
		}, rt.payments, log).Start()
		if err != nil {
			return err
		}
		defer stopWorker()

		stopScheduler, err := queue.StartScheduler(redisOpt(rt.cfg), queue.OverdueSweepSpec, log)
		if err != nil {
			return err
		}
		defer stopScheduler()
	}

	deps := api.Deps{
		JWTSecret:     rt.cfg.JWTSecret,
		FrontendURL:   rt.cfg.FrontendURL,
		Logger:        log,
		Auth:          service.NewAuthService(rt.users, rt.cfg.JWTSecret, rt.cfg.TokenTTL, log),
		Clients:       service.NewClientService(rt.clients, rt.users, rt.notifications, log),
		Payments:      rt.payments,
		Notifications: rt.notifications,
		Stream:        rt.hub,
		Checks: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return rt.mongo.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rt.redis.Ping(ctx).Err() },
		},
	}
	if g := oauth.NewGoogle(oauth.Config{
		ClientID:      rt.cfg.Google.ClientID,
		ClientSecret:  rt.cfg.Google.ClientSecret,
		CallbackURL:   rt.cfg.Google.CallbackURL,
		SessionSecret: rt.cfg.Google.SessionSecret,
		Secure:        rt.cfg.IsProduction(),
	}, log); g != nil {
		deps.Google = g
	}

	e := api.NewRouter(deps)
	srv := &http.Server{
		Addr:              ":" + rt.cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return wrap("http server", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return wrap("http shutdown", err)
	}
	log.Info().Msg("http server stopped gracefully")
	return nil
}
