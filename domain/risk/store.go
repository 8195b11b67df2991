package risk

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/logger"
)

// CatalogSource supplies the applicable risk definitions for a tenant
// and industry. The Redis-backed cache and the test fakes implement the
// same interface as the bun store.
type CatalogSource interface {
	ListApplicable(ctx context.Context, tenantID uuid.UUID, industry string) ([]*RiskDefinition, error)
}

// EvaluationStore persists evaluations and the async job rows.
type EvaluationStore interface {
	Save(ctx context.Context, eval *RiskEvaluation) error
	Latest(ctx context.Context, tenantID, opportunityID uuid.UUID) (*RiskEvaluation, error)
	LatestBefore(ctx context.Context, tenantID, opportunityID uuid.UUID, before time.Time) (*RiskEvaluation, error)
	LatestPerOpportunity(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]*RiskEvaluation, error)
	RecentHighRisk(ctx context.Context, threshold float64, since time.Time) ([]*RiskEvaluation, error)
	EnqueueJob(ctx context.Context, job *EvaluationJob) error
	GetJob(ctx context.Context, tenantID, id uuid.UUID) (*EvaluationJob, error)
}

// Store is the bun-backed catalog and evaluation store.
type Store struct {
	db  bun.IDB
	log *slog.Logger
}

// NewStore creates a new risk store.
func NewStore(db bun.IDB, log *slog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With(logger.Scope("risk.store")),
	}
}

var (
	_ CatalogSource   = (*Store)(nil)
	_ EvaluationStore = (*Store)(nil)
)

// ListApplicable returns the active definitions visible to a tenant:
// global ones, industry-scoped ones matching the opportunity's industry,
// and the tenant's own.
func (s *Store) ListApplicable(ctx context.Context, tenantID uuid.UUID, industry string) ([]*RiskDefinition, error) {
	var defs []*RiskDefinition
	err := s.db.NewSelect().
		Model(&defs).
		Where("active").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("scope = ?", ScopeGlobal).
				WhereOr("(scope = ? AND industry = ?)", ScopeIndustry, industry).
				WhereOr("(scope = ? AND tenant_id = ?)", ScopeTenant, tenantID)
		}).
		Order("weight DESC", "code ASC").
		Scan(ctx)

	if err != nil && err != sql.ErrNoRows {
		s.log.Error("failed to list risk definitions", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return defs, nil
}

// Save persists an evaluation result.
func (s *Store) Save(ctx context.Context, eval *RiskEvaluation) error {
	if eval.ID == uuid.Nil {
		eval.ID = uuid.New()
	}
	if eval.EvaluatedAt.IsZero() {
		eval.EvaluatedAt = time.Now()
	}
	if eval.Detected == nil {
		eval.Detected = []DetectedRisk{}
	}

	_, err := s.db.NewInsert().
		Model(eval).
		Exec(ctx)

	if err != nil {
		s.log.Error("failed to save evaluation", logger.Error(err),
			slog.String("opportunity_id", eval.OpportunityID.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// Latest returns the most recent evaluation for an opportunity.
func (s *Store) Latest(ctx context.Context, tenantID, opportunityID uuid.UUID) (*RiskEvaluation, error) {
	eval := new(RiskEvaluation)
	err := s.db.NewSelect().
		Model(eval).
		Where("tenant_id = ?", tenantID).
		Where("opportunity_id = ?", opportunityID).
		Order("evaluated_at DESC").
		Limit(1).
		Scan(ctx)

	if err == sql.ErrNoRows {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get latest evaluation", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return eval, nil
}

// LatestBefore returns the most recent evaluation strictly older than
// the given time, or ErrNotFound when the opportunity had none.
func (s *Store) LatestBefore(ctx context.Context, tenantID, opportunityID uuid.UUID, before time.Time) (*RiskEvaluation, error) {
	eval := new(RiskEvaluation)
	err := s.db.NewSelect().
		Model(eval).
		Where("tenant_id = ?", tenantID).
		Where("opportunity_id = ?", opportunityID).
		Where("evaluated_at < ?", before).
		Order("evaluated_at DESC").
		Limit(1).
		Scan(ctx)

	if err == sql.ErrNoRows {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get prior evaluation", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return eval, nil
}

// LatestPerOpportunity returns each opportunity's newest evaluation for
// a tenant, keyed by opportunity id.
func (s *Store) LatestPerOpportunity(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]*RiskEvaluation, error) {
	var evals []*RiskEvaluation
	err := s.db.NewSelect().
		Model(&evals).
		DistinctOn("opportunity_id").
		Where("tenant_id = ?", tenantID).
		Order("opportunity_id", "evaluated_at DESC").
		Scan(ctx)

	if err != nil && err != sql.ErrNoRows {
		s.log.Error("failed to list latest evaluations", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	byOpp := make(map[uuid.UUID]*RiskEvaluation, len(evals))
	for _, e := range evals {
		byOpp[e.OpportunityID] = e
	}
	return byOpp, nil
}

// RecentHighRisk returns, across all tenants, the newest evaluation per
// opportunity among those recorded since the given time with a score at
// or above the threshold. Feeds the early-warning sweep.
func (s *Store) RecentHighRisk(ctx context.Context, threshold float64, since time.Time) ([]*RiskEvaluation, error) {
	var evals []*RiskEvaluation
	err := s.db.NewSelect().
		Model(&evals).
		DistinctOn("tenant_id, opportunity_id").
		Where("evaluated_at >= ?", since).
		Where("score >= ?", threshold).
		Order("tenant_id", "opportunity_id", "evaluated_at DESC").
		Scan(ctx)

	if err != nil && err != sql.ErrNoRows {
		s.log.Error("failed to list high-risk evaluations", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return evals, nil
}

// EnqueueJob inserts a pending evaluation job.
func (s *Store) EnqueueJob(ctx context.Context, job *EvaluationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = "pending"
	now := time.Now()
	job.ScheduledAt = &now

	_, err := s.db.NewInsert().
		Model(job).
		Exec(ctx)

	if err != nil {
		s.log.Error("failed to enqueue evaluation job", logger.Error(err),
			slog.String("opportunity_id", job.OpportunityID.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// GetJob returns an evaluation job by id, scoped to the tenant.
func (s *Store) GetJob(ctx context.Context, tenantID, id uuid.UUID) (*EvaluationJob, error) {
	job := new(EvaluationJob)
	err := s.db.NewSelect().
		Model(job).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)

	if err == sql.ErrNoRows {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get evaluation job", logger.Error(err), slog.String("id", id.String()))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return job, nil
}
