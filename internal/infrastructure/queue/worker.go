package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/settleup/settleup-api/internal/core/ports"
)

const (
	defaultConcurrency = 5
	shutdownTimeout    = 30 * time.Second
)

// PaymentJobs is the part of the payment service driven by background tasks.
type PaymentJobs interface {
	SendReminder(ctx context.Context, task ports.ReminderTask) error
	MarkOverdue(ctx context.Context) (int64, error)
}

// WorkerConfig configures the asynq worker server.
type WorkerConfig struct {
	Redis       asynq.RedisClientOpt
	Concurrency int
}

// Worker processes reminder and overdue tasks.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
	log zerolog.Logger
}

// NewWorker builds the asynq server and registers the task handlers.
func NewWorker(cfg WorkerConfig, jobs PaymentJobs, log zerolog.Logger) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	srv := asynq.NewServer(
		cfg.Redis,
		asynq.Config{
			Concurrency:     concurrency,
			ShutdownTimeout: shutdownTimeout,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(log)),
			Logger:          newAsynqLogger(log),
		},
	)

	return &Worker{srv: srv, mux: NewServeMux(jobs, log), log: log}
}

// NewServeMux routes task types to their handlers.
func NewServeMux(jobs PaymentJobs, log zerolog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPaymentReminder, handlePaymentReminder(jobs, log))
	mux.HandleFunc(TaskMarkOverdue, handleMarkOverdue(jobs, log))
	return mux
}

// Run starts the worker and blocks until a shutdown signal is received.
func (w *Worker) Run() error {
	w.log.Info().Msg("worker starting")
	return w.srv.Run(w.mux)
}

// Start starts the worker in non-blocking mode and returns a stop function.
func (w *Worker) Start() (stop func(), err error) {
	if err := w.srv.Start(w.mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	w.log.Info().Msg("embedded worker started")
	return w.srv.Shutdown, nil
}

func handlePaymentReminder(jobs PaymentJobs, log zerolog.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		task, err := decodeReminder(t.Payload())
		if err != nil {
			log.Error().Err(err).Msg("invalid reminder payload")
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		if err := jobs.SendReminder(ctx, task); err != nil {
			return fmt.Errorf("reminder %s: %w", task.ScheduleID, err)
		}
		return nil
	}
}

func handleMarkOverdue(jobs PaymentJobs, log zerolog.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := jobs.MarkOverdue(ctx)
		if err != nil {
			return err
		}
		log.Debug().Int64("clients", n).Msg("overdue sweep finished")
		return nil
	}
}

func makeErrorHandler(log zerolog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		log.Error().Err(err).
			Str("task_type", task.Type()).
			Int("retry_count", retried).
			Int("max_retry", maxRetry).
			Msg("task execution failed")

		if retried >= maxRetry {
			log.Error().
				Str("task_type", task.Type()).
				Str("payload", string(task.Payload())).
				Msg("task archived after exhausting retries")
		}
	}
}
