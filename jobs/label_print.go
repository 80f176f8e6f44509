package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/jobs"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/labels"
)

// Printer is implemented by labels.Client.
type Printer interface {
	Print(ctx context.Context, label labels.Label) error
}

// LabelPrintJob drives queued labels to the printer bridge.
type LabelPrintJob struct {
	Printer Printer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLabelPrintJob initialises the handler.
func NewLabelPrintJob(printer Printer, logger *slog.Logger, metrics *jobmetrics.Metrics) *LabelPrintJob {
	return &LabelPrintJob{Printer: printer, Logger: logger, Metrics: metrics}
}

// Handle prints one label. Client errors from the bridge are not retried.
func (j *LabelPrintJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Printer == nil {
		return errors.New("label print: handler not configured")
	}
	var payload LabelPrintPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("label print: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	queued := j.sinceEnqueued(payload)
	j.Metrics.ObserveQueueLatency(TaskLabelPrint, queued)
	tracker := j.Metrics.Track(TaskLabelPrint)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("product", payload.Label.ProductName), slog.String("sku", payload.Label.SKU))
	if err = j.Printer.Print(ctx, payload.Label); err != nil {
		var bridgeErr *labels.BridgeError
		if errors.As(err, &bridgeErr) && !bridgeErr.Retryable() {
			logger.Error("label rejected by printer bridge", slog.Any("error", err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		logger.Warn("label print failed", slog.Any("error", err))
		return err
	}
	logger.Info("label printed", slog.Duration("queued_for", queued))
	return nil
}

func (j *LabelPrintJob) sinceEnqueued(p LabelPrintPayload) time.Duration {
	if p.EnqueuedAt.IsZero() {
		return 0
	}
	return time.Since(p.EnqueuedAt)
}

func (j *LabelPrintJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
