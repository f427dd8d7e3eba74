package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/settleup/settleup-api/internal/infrastructure/queue"
)

// WorkerOptions holds flags for the worker command.
type WorkerOptions struct {
	*RootOptions
	SweepSpec string
}

// NewWorkerCommand creates the worker command.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WorkerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process payment reminders and the overdue sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.SweepSpec, "sweep", queue.OverdueSweepSpec, "cron spec for the overdue sweep")

	return cmd
}

func runWorker(parent context.Context, opts *WorkerOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, opts.RootOptions, "settleup-worker")
	if err != nil {
		return err
	}
	defer rt.Close()

	stopScheduler, err := queue.StartScheduler(redisOpt(rt.cfg), opts.SweepSpec, rt.log)
	if err != nil {
		return err
	}
	defer stopScheduler()

	stopWorker, err := queue.NewWorker(queue.WorkerConfig{
		Redis:       redisOpt(rt.cfg),
		Concurrency: rt.cfg.Notify.WorkerConcurrency,
	}, rt.payments, rt.log).Start()
	if err != nil {
		return err
	}
	defer stopWorker()

	<-ctx.Done()
	rt.log.Info().Msg("worker shutting down")
	return nil
}
