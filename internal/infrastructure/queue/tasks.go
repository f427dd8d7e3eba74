package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/settleup/settleup-api/internal/core/ports"
)

// Task type constants
const (
	TaskPaymentReminder = "payment:reminder"
	TaskMarkOverdue     = "payment:mark_overdue"
)

const (
	reminderMaxRetry  = 5
	reminderTimeout   = time.Minute
	reminderRetention = 24 * time.Hour
)

// enqueuer is the subset of *asynq.Client used to schedule reminders.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReminderQueue schedules payment reminders as delayed asynq tasks. Tasks are
// keyed by schedule, offset and due date, so re-scheduling the same reminder
// is a no-op and a moved due date gets fresh reminders.
type ReminderQueue struct {
	client enqueuer
}

// NewReminderQueue wraps an asynq client. The caller owns the client and closes it.
func NewReminderQueue(client *asynq.Client) *ReminderQueue {
	return &ReminderQueue{client: client}
}

func reminderTaskID(task ports.ReminderTask) string {
	return fmt.Sprintf("reminder:%s:%d:%d", task.ScheduleID, task.OffsetDays, task.DueDate.Unix())
}

// ScheduleReminder enqueues task to run at the given time.
func (q *ReminderQueue) ScheduleReminder(ctx context.Context, task ports.ReminderTask, at time.Time) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}

	t := asynq.NewTask(TaskPaymentReminder, payload)
	opts := []asynq.Option{
		asynq.TaskID(reminderTaskID(task)),
		asynq.ProcessAt(at),
		asynq.MaxRetry(reminderMaxRetry),
		asynq.Timeout(reminderTimeout),
		asynq.Retention(reminderRetention),
	}

	if _, err := q.client.EnqueueContext(ctx, t, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}

func decodeReminder(payload []byte) (ports.ReminderTask, error) {
	var task ports.ReminderTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return task, err
	}
	if task.ClientID == "" || task.ScheduleID == "" || task.OffsetDays <= 0 {
		return task, errors.New("incomplete reminder payload")
	}
	return task, nil
}
