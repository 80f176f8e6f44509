package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/jobs"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/labels"
)

type fakePrinter struct {
	printed []labels.Label
	err     error
}

func (p *fakePrinter) Print(_ context.Context, l labels.Label) error {
	if p.err != nil {
		return p.err
	}
	p.printed = append(p.printed, l)
	return nil
}

func labelTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewLabelPrintTask(labels.Label{ProductName: "Oplader 20W", Price: decimal.RequireFromString("19.95")}, time.Now())
	require.NoError(t, err)
	return task
}

func TestLabelPrintTaskPayload(t *testing.T) {
	task := labelTask(t)
	assert.Equal(t, TaskLabelPrint, task.Type())

	var payload LabelPrintPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "Oplader 20W", payload.Label.ProductName)
	assert.False(t, payload.EnqueuedAt.IsZero())
}

func TestLabelPrintJobPrints(t *testing.T) {
	printer := &fakePrinter{}
	job := NewLabelPrintJob(printer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	require.NoError(t, job.Handle(context.Background(), labelTask(t)))
	require.Len(t, printer.printed, 1)
	assert.Equal(t, "19.95", printer.printed[0].Price.StringFixed(2))
}

func TestLabelPrintJobRetryPolicy(t *testing.T) {
	printer := &fakePrinter{err: &labels.BridgeError{Status: http.StatusBadRequest, Message: "unknown template"}}
	job := NewLabelPrintJob(printer, nil, nil)

	err := job.Handle(context.Background(), labelTask(t))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	printer.err = &labels.BridgeError{Status: http.StatusServiceUnavailable}
	err = job.Handle(context.Background(), labelTask(t))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	printer.err = errors.New("dial tcp: connection refused")
	err = job.Handle(context.Background(), labelTask(t))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestLabelPrintJobRejectsGarbage(t *testing.T) {
	job := NewLabelPrintJob(&fakePrinter{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskLabelPrint, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeCleaner struct {
	retention time.Duration
}

func (c *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) error {
	c.retention = olderThan
	return nil
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, nil, nil)

	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, DefaultIdempotencyRetention, cleaner.retention)

	task, err = NewIdempotencyCleanupTask(24 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 24*time.Hour, cleaner.retention)
}
