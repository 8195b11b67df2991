package jobs

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "short error", truncateError("short error"))
	assert.Equal(t, "", truncateError(""))
	assert.Equal(t, strings.Repeat("a", 500), truncateError(strings.Repeat("a", 500)))
	assert.Equal(t, strings.Repeat("a", 500), truncateError(strings.Repeat("a", 2000)))
}

func TestDefaultQueueConfig(t *testing.T) {
	config := DefaultQueueConfig("crm.risk_evaluation_jobs", "opportunity_id")

	assert.Equal(t, "crm.risk_evaluation_jobs", config.TableName)
	assert.Equal(t, "opportunity_id", config.EntityIDColumn)
	assert.Equal(t, 0, config.MaxAttempts, "retries are unlimited unless capped")
	assert.Equal(t, 60, config.BaseRetryDelaySec)
	assert.Equal(t, 3600, config.MaxRetryDelaySec)
	assert.Equal(t, 10, config.BatchSize)
}

func TestDefaultWorkerConfig(t *testing.T) {
	config := DefaultWorkerConfig("risk-evaluation-worker")

	assert.Equal(t, "risk-evaluation-worker", config.Name)
	assert.Equal(t, 5*time.Second, config.PollInterval)
	assert.Equal(t, 10, config.BatchSize)
	assert.Equal(t, 10, config.StaleThresholdMinutes)
	assert.True(t, config.RecoverStaleOnStart)
}

func TestWorkerCounters(t *testing.T) {
	w := &Worker{}

	w.IncrementProcessed()
	w.IncrementProcessed()
	w.IncrementProcessed()
	w.IncrementSuccess()
	w.IncrementSuccess()
	w.IncrementFailure()

	metrics := w.Metrics()
	assert.Equal(t, int64(3), metrics.Processed)
	assert.Equal(t, int64(2), metrics.Succeeded)
	assert.Equal(t, int64(1), metrics.Failed)
}

func TestWorkerCountersConcurrent(t *testing.T) {
	w := &Worker{}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				w.IncrementProcessed()
				w.IncrementProcessed()
				w.IncrementSuccess()
				w.IncrementFailure()
				_ = w.Metrics()
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	metrics := w.Metrics()
	assert.Equal(t, int64(2000), metrics.Processed)
	assert.Equal(t, int64(1000), metrics.Succeeded)
	assert.Equal(t, int64(1000), metrics.Failed)
}

func TestWorkerLifecycle(t *testing.T) {
	var calls atomic.Int64
	cfg := DefaultWorkerConfig("lifecycle-test")
	cfg.PollInterval = 5 * time.Millisecond

	w := NewWorker(cfg, slog.New(slog.DiscardHandler), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	assert.False(t, w.IsRunning())

	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())
	require.NoError(t, w.Start(ctx), "second Start is a no-op")

	assert.Eventually(t, func() bool {
		return calls.Load() > 0
	}, time.Second, 5*time.Millisecond, "process callback should run on the poll interval")

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop(stopCtx), "second Stop is a no-op")
}

func TestNewWorkerDefaults(t *testing.T) {
	w := NewWorker(WorkerConfig{Name: "bare"}, slog.New(slog.DiscardHandler), func(context.Context) error { return nil })

	assert.Equal(t, 5*time.Second, w.config.PollInterval)
	assert.Equal(t, 10, w.config.BatchSize)
	assert.Equal(t, 10, w.config.StaleThresholdMinutes)
}
