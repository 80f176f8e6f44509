package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/labels"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLabelPrint sends one label to the printer bridge.
	TaskLabelPrint = "label:print"
	// TaskIdempotencyCleanup prunes expired Idempotency-Key reservations.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// LabelPrintPayload describes a queued label.
type LabelPrintPayload struct {
	Label      labels.Label `json:"label"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
}

// NewLabelPrintTask constructs an Asynq task. Prints go stale quickly, so
// retries are bounded and the task expires after an hour.
func NewLabelPrintTask(label labels.Label, now time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(LabelPrintPayload{Label: label, EnqueuedAt: now})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLabelPrint, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Deadline(now.Add(time.Hour)),
	), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}
