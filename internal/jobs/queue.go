// Package jobs implements a PostgreSQL-backed job queue. Dequeue claims
// rows with FOR UPDATE SKIP LOCKED so concurrent workers never double-
// process, failed jobs retry with quadratic backoff, and jobs abandoned
// mid-flight are recovered on worker startup.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/uptrace/bun"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// QueueConfig binds a Queue to its backing table.
type QueueConfig struct {
	// TableName is the schema-qualified table, e.g. "crm.risk_evaluation_jobs".
	TableName string
	// EntityIDColumn names the column holding the id of the entity the
	// job operates on, e.g. "opportunity_id".
	EntityIDColumn string
	// MaxAttempts caps retries; 0 retries forever.
	MaxAttempts int
	// BaseRetryDelaySec seeds the backoff curve (default 60).
	BaseRetryDelaySec int
	// MaxRetryDelaySec caps the backoff curve (default 3600).
	MaxRetryDelaySec int
	// BatchSize is the dequeue size when the caller passes none (default 10).
	BatchSize int
}

// DefaultQueueConfig returns the standard queue settings for a table.
func DefaultQueueConfig(tableName, entityIDColumn string) QueueConfig {
	return QueueConfig{
		TableName:         tableName,
		EntityIDColumn:    entityIDColumn,
		MaxAttempts:       0,
		BaseRetryDelaySec: 60,
		MaxRetryDelaySec:  3600,
		BatchSize:         10,
	}
}

// Queue issues the queue operations against one jobs table.
type Queue struct {
	db     bun.IDB
	config QueueConfig
	log    *slog.Logger
}

// NewQueue builds a queue; zero config fields fall back to the defaults.
func NewQueue(db bun.IDB, config QueueConfig, log *slog.Logger) *Queue {
	if config.BaseRetryDelaySec == 0 {
		config.BaseRetryDelaySec = 60
	}
	if config.MaxRetryDelaySec == 0 {
		config.MaxRetryDelaySec = 3600
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	return &Queue{
		db:     db,
		config: config,
		log:    log,
	}
}

// Dequeue atomically claims up to batchSize due jobs and returns their
// ids. SKIP LOCKED lets concurrent workers claim disjoint sets; rows
// locked by another worker's transaction are passed over, not waited on.
func (q *Queue) Dequeue(ctx context.Context, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		batchSize = q.config.BatchSize
	}

	// Raw SQL: bun's builder cannot express the locking CTE.
	query := fmt.Sprintf(`
		WITH cte AS (
			SELECT id FROM %s
			WHERE status='pending' AND (scheduled_at IS NULL OR scheduled_at <= now())
			ORDER BY priority DESC, scheduled_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		)
		UPDATE %s j
		SET status='processing', started_at=now(), updated_at=now()
		FROM cte WHERE j.id = cte.id
		RETURNING j.id`,
		q.config.TableName, q.config.TableName)

	var ids []string
	_, err := q.db.NewRaw(query, batchSize).Exec(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("dequeue failed: %w", err)
	}

	return ids, nil
}

// MarkCompleted marks a job as completed
func (q *Queue) MarkCompleted(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'completed',
			completed_at = now(),
			updated_at = now()
		WHERE id = $1`,
		q.config.TableName)

	_, err := q.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark completed failed: %w", err)
	}

	return nil
}

// MarkFailed marks a job as failed and schedules for retry with exponential backoff.
// If maxAttempts is configured and reached, the job is permanently marked as failed.
func (q *Queue) MarkFailed(ctx context.Context, id string, attemptCount int, errMsg string) error {
	attempt := attemptCount + 1

	// Check if we've exceeded max attempts
	if q.config.MaxAttempts > 0 && attempt >= q.config.MaxAttempts {
		query := fmt.Sprintf(`
			UPDATE %s
			SET status = 'failed',
				attempt_count = $2,
				last_error = $3,
				updated_at = now()
			WHERE id = $1`,
			q.config.TableName)

		_, err := q.db.ExecContext(ctx, query, id, attempt, truncateError(errMsg))
		if err != nil {
			return fmt.Errorf("mark failed (permanent) failed: %w", err)
		}

		q.log.Warn("job permanently failed after max attempts",
			slog.String("job_id", id),
			slog.Int("attempts", attempt),
			slog.String("error", errMsg))

		return nil
	}

	// Calculate exponential backoff: baseDelay * attempt^2, capped at maxRetryDelaySec
	delay := math.Min(
		float64(q.config.MaxRetryDelaySec),
		float64(q.config.BaseRetryDelaySec)*float64(attempt)*float64(attempt),
	)

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'pending',
			attempt_count = $2,
			last_error = $3,
			scheduled_at = now() + ($4 || ' seconds')::interval,
			updated_at = now()
		WHERE id = $1`,
		q.config.TableName)

	_, err := q.db.ExecContext(ctx, query, id, attempt, truncateError(errMsg), fmt.Sprintf("%d", int(delay)))
	if err != nil {
		return fmt.Errorf("mark failed (retry) failed: %w", err)
	}

	q.log.Debug("job scheduled for retry",
		slog.String("job_id", id),
		slog.Int("attempt", attempt),
		slog.Duration("delay", time.Duration(delay)*time.Second))

	return nil
}

// RecoverStaleJobs recovers jobs stuck in 'processing' status.
// This can happen when the server restarts while jobs are being processed.
// Returns the number of jobs recovered.
func (q *Queue) RecoverStaleJobs(ctx context.Context, staleThresholdMinutes int) (int, error) {
	if staleThresholdMinutes <= 0 {
		staleThresholdMinutes = 10
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'pending',
			started_at = NULL,
			scheduled_at = now(),
			updated_at = now()
		WHERE status = 'processing'
			AND started_at < now() - ($1 || ' minutes')::interval`,
		q.config.TableName)

	result, err := q.db.ExecContext(ctx, query, fmt.Sprintf("%d", staleThresholdMinutes))
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs failed: %w", err)
	}

	count, _ := result.RowsAffected()

	if count > 0 {
		q.log.Warn("recovered stale jobs",
			slog.Int64("count", count),
			slog.Int("threshold_minutes", staleThresholdMinutes))
	}

	return int(count), nil
}

// Stats represents queue statistics
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// GetStats returns queue statistics
func (q *Queue) GetStats(ctx context.Context) (*Stats, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') as pending,
			COUNT(*) FILTER (WHERE status = 'processing') as processing,
			COUNT(*) FILTER (WHERE status = 'completed') as completed,
			COUNT(*) FILTER (WHERE status = 'failed') as failed
		FROM %s`,
		q.config.TableName)

	stats := &Stats{}
	err := q.db.QueryRowContext(ctx, query).Scan(&stats.Pending, &stats.Processing, &stats.Completed, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("get stats failed: %w", err)
	}

	return stats, nil
}

// GetJobByID retrieves a job by its ID. Returns nil if not found.
// The result is scanned into the provided destination.
func (q *Queue) GetJobByID(ctx context.Context, id string, dest interface{}) error {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, q.config.TableName)
	err := q.db.NewRaw(query, id).Scan(ctx, dest)
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

// truncateError truncates an error message to 500 characters
func truncateError(msg string) string {
	if len(msg) > 500 {
		return msg[:500]
	}
	return msg
}
