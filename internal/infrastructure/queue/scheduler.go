package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// OverdueSweepSpec is how often pending schedules past their due date are flagged.
const OverdueSweepSpec = "@every 1h"

// StartScheduler registers the periodic overdue sweep and starts the asynq
// scheduler. It returns a stop function for graceful shutdown.
func StartScheduler(redis asynq.RedisClientOpt, spec string, log zerolog.Logger) (stop func(), err error) {
	if spec == "" {
		spec = OverdueSweepSpec
	}

	scheduler := asynq.NewScheduler(
		redis,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   newAsynqLogger(log),
		},
	)

	task := asynq.NewTask(
		TaskMarkOverdue,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(30*time.Minute),
	)

	entryID, err := scheduler.Register(spec, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register overdue sweep: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info().Str("schedule", spec).Str("entry_id", entryID).Msg("scheduler started")
	return scheduler.Shutdown, nil
}
