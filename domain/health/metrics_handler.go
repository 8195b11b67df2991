package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/latticehq/lattice-core/internal/jobs"
)

// queueStats and workerStats narrow *jobs.Queue and *jobs.Worker to
// what the handler reads; tests substitute fakes.
type queueStats interface {
	GetStats(ctx context.Context) (*jobs.Stats, error)
}

type workerStats interface {
	Metrics() jobs.WorkerMetrics
}

// MetricsHandler exposes queue depth and worker throughput for
// operational dashboards.
type MetricsHandler struct {
	riskQueue  queueStats
	riskWorker workerStats
}

func NewMetricsHandler(riskQueue *jobs.Queue, riskWorker *jobs.Worker) *MetricsHandler {
	return &MetricsHandler{riskQueue: riskQueue, riskWorker: riskWorker}
}

// QueueMetrics represents metrics for a single job queue
type QueueMetrics struct {
	Queue      string `json:"queue"`
	Pending    int64  `json:"pending"`
	Processing int64  `json:"processing"`
	Completed  int64  `json:"completed"`
	Failed     int64  `json:"failed"`
}

// WorkerMetrics reports one worker's lifetime job counters.
type WorkerMetrics struct {
	Worker    string `json:"worker"`
	Processed int64  `json:"processed"`
	Succeeded int64  `json:"succeeded"`
	Failed    int64  `json:"failed"`
}

// JobMetricsResponse contains metrics for all job queues and workers.
type JobMetricsResponse struct {
	Queues    []QueueMetrics  `json:"queues"`
	Workers   []WorkerMetrics `json:"workers"`
	Timestamp string          `json:"timestamp"`
}

// JobMetrics returns queue and worker statistics for the background jobs.
// GET /api/metrics/jobs
func (h *MetricsHandler) JobMetrics(c echo.Context) error {
	stats, err := h.riskQueue.GetStats(c.Request().Context())
	if err != nil {
		return err
	}

	wm := h.riskWorker.Metrics()

	return c.JSON(http.StatusOK, JobMetricsResponse{
		Queues: []QueueMetrics{
			{
				Queue:      "risk_evaluation",
				Pending:    stats.Pending,
				Processing: stats.Processing,
				Completed:  stats.Completed,
				Failed:     stats.Failed,
			},
		},
		Workers: []WorkerMetrics{
			{
				Worker:    "risk-evaluation-worker",
				Processed: wm.Processed,
				Succeeded: wm.Succeeded,
				Failed:    wm.Failed,
			},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
