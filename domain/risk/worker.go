package risk

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/latticehq/lattice-core/internal/config"
	"github.com/latticehq/lattice-core/internal/jobs"
	"github.com/latticehq/lattice-core/pkg/logger"
)

const jobsTable = "crm.risk_evaluation_jobs"

// NewJobQueue creates the queue over the evaluation jobs table.
func NewJobQueue(db bun.IDB, cfg *config.Config, log *slog.Logger) *jobs.Queue {
	qc := jobs.DefaultQueueConfig(jobsTable, "opportunity_id")
	qc.MaxAttempts = cfg.Risk.MaxAttempts
	qc.BatchSize = cfg.Risk.WorkerBatchSize
	return jobs.NewQueue(db, qc, log.With(logger.Scope("risk.queue")))
}

// NewEvaluationWorker builds the polling worker that drains the
// evaluation queue: dequeue pending jobs, evaluate, mark completed or
// schedule a retry with backoff. Per-job outcomes feed the worker's
// counters, exposed through the jobs metrics endpoint.
func NewEvaluationWorker(queue *jobs.Queue, svc *Service, cfg *config.Config, log *slog.Logger) *jobs.Worker {
	scopedLog := log.With(logger.Scope("risk.worker"))

	// The closure runs only after Start, so assigning worker below is safe.
	var worker *jobs.Worker
	process := func(ctx context.Context) error {
		ids, err := queue.Dequeue(ctx, cfg.Risk.WorkerBatchSize)
		if err != nil {
			return err
		}

		for _, id := range ids {
			worker.IncrementProcessed()

			var job EvaluationJob
			if err := queue.GetJobByID(ctx, id, &job); err != nil {
				worker.IncrementFailure()
				scopedLog.Error("failed to load dequeued job", logger.Error(err), slog.String("job_id", id))
				continue
			}

			if _, err := svc.Evaluate(ctx, job.TenantID, job.OpportunityID); err != nil {
				worker.IncrementFailure()
				scopedLog.Warn("evaluation job failed", logger.Error(err),
					slog.String("job_id", id),
					slog.String("opportunity_id", job.OpportunityID.String()))
				if markErr := queue.MarkFailed(ctx, id, job.AttemptCount, err.Error()); markErr != nil {
					scopedLog.Error("failed to mark job failed", logger.Error(markErr), slog.String("job_id", id))
				}
				continue
			}

			worker.IncrementSuccess()
			if err := queue.MarkCompleted(ctx, id); err != nil {
				scopedLog.Error("failed to mark job completed", logger.Error(err), slog.String("job_id", id))
			}
		}

		return nil
	}

	wc := jobs.DefaultWorkerConfig("risk-evaluation-worker")
	wc.PollInterval = cfg.Risk.WorkerInterval()
	wc.BatchSize = cfg.Risk.WorkerBatchSize
	worker = jobs.NewWorker(wc, scopedLog, process)
	return worker
}

// RegisterWorker ties the evaluation worker into the fx lifecycle and
// requeues jobs abandoned by a previous process before starting.
func RegisterWorker(lc fx.Lifecycle, queue *jobs.Queue, worker *jobs.Worker, log *slog.Logger) {
	scopedLog := log.With(logger.Scope("risk.worker"))
	wc := jobs.DefaultWorkerConfig("risk-evaluation-worker")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if wc.RecoverStaleOnStart {
				if _, err := queue.RecoverStaleJobs(ctx, wc.StaleThresholdMinutes); err != nil {
					scopedLog.Warn("stale job recovery failed", logger.Error(err))
				}
			}
			return worker.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			return worker.Stop(ctx)
		},
	})
}
