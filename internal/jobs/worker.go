package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerConfig controls a polling worker's behavior.
type WorkerConfig struct {
	// Name identifies the worker in log lines.
	Name string
	// PollInterval is the time between dequeue attempts.
	PollInterval time.Duration
	// BatchSize is how many jobs each poll may claim.
	BatchSize int
	// StaleThresholdMinutes is how long a job may sit in 'processing'
	// before recovery treats it as abandoned.
	StaleThresholdMinutes int
	// RecoverStaleOnStart requeues abandoned jobs when the worker boots.
	RecoverStaleOnStart bool
}

// DefaultWorkerConfig returns the standard worker settings.
func DefaultWorkerConfig(name string) WorkerConfig {
	return WorkerConfig{
		Name:                  name,
		PollInterval:          5 * time.Second,
		BatchSize:             10,
		StaleThresholdMinutes: 10,
		RecoverStaleOnStart:   true,
	}
}

// WorkerMetrics is a snapshot of a worker's lifetime counters.
type WorkerMetrics struct {
	Processed int64 `json:"processed"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Worker polls a queue on a fixed interval and hands each batch to the
// process callback. Stop waits for the in-flight batch before returning,
// up to the caller's context deadline.
type Worker struct {
	config    WorkerConfig
	log       *slog.Logger
	process   func(ctx context.Context) error
	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	mu        sync.Mutex
	wg        sync.WaitGroup

	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewWorker builds a worker; zero config fields fall back to the defaults.
func NewWorker(config WorkerConfig, log *slog.Logger, process func(ctx context.Context) error) *Worker {
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.StaleThresholdMinutes == 0 {
		config.StaleThresholdMinutes = 10
	}

	return &Worker{
		config:    config,
		log:       log.With(slog.String("worker", config.Name)),
		process:   process,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the polling loop. Starting a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.stoppedCh = make(chan struct{})
	w.mu.Unlock()

	w.log.Info("worker starting",
		slog.Duration("poll_interval", w.config.PollInterval),
		slog.Int("batch_size", w.config.BatchSize))

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop signals the loop to exit and waits for the current batch, or
// gives up when ctx expires.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	select {
	case <-w.stoppedCh:
		w.log.Info("worker stopped gracefully")
	case <-ctx.Done():
		w.log.Warn("worker stop timeout, forcing shutdown")
	}

	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.stoppedCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.process(ctx); err != nil {
				w.log.Warn("process batch failed", slog.String("error", err.Error()))
			}
		}
	}
}

// IsRunning reports whether the polling loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Metrics returns a snapshot of the lifetime counters.
func (w *Worker) Metrics() WorkerMetrics {
	return WorkerMetrics{
		Processed: w.processed.Load(),
		Succeeded: w.succeeded.Load(),
		Failed:    w.failed.Load(),
	}
}

// IncrementProcessed counts a claimed job, regardless of outcome.
func (w *Worker) IncrementProcessed() {
	w.processed.Add(1)
}

// IncrementSuccess counts a completed job.
func (w *Worker) IncrementSuccess() {
	w.succeeded.Add(1)
}

// IncrementFailure counts a failed job.
func (w *Worker) IncrementFailure() {
	w.failed.Add(1)
}
