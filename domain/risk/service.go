package risk

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/latticehq/lattice-core/domain/relationships"
	"github.com/latticehq/lattice-core/pkg/logger"
	"github.com/latticehq/lattice-core/pkg/mathutil"
	"github.com/latticehq/lattice-core/pkg/monitoring"
	"github.com/latticehq/lattice-core/pkg/tracing"
)

// OpportunitySource supplies the opportunity views the pipeline scores.
// Backed by the shard store in production and by fakes in tests.
type OpportunitySource interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (*Opportunity, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*Opportunity, error)
}

// Service runs risk evaluations and owns the async queue entry point.
type Service struct {
	catalog   CatalogSource
	evals     EvaluationStore
	opps      OpportunitySource
	edges     relationships.EdgeStore
	providers Providers
	log       *slog.Logger
}

// NewService creates the risk evaluation service. Providers fields may
// be nil; evaluation degrades gracefully without them.
func NewService(catalog CatalogSource, evals EvaluationStore, opps OpportunitySource, edges relationships.EdgeStore, providers Providers, log *slog.Logger) *Service {
	return &Service{
		catalog:   catalog,
		evals:     evals,
		opps:      opps,
		edges:     edges,
		providers: providers,
		log:       log.With(logger.Scope("risk.service")),
	}
}

// Evaluate scores an opportunity synchronously, persists the result and
// returns it.
func (s *Service) Evaluate(ctx context.Context, tenantID, opportunityID uuid.UUID) (*RiskEvaluation, error) {
	start := time.Now()

	ctx, span := tracing.Start(ctx, "risk.evaluate",
		attribute.String("lattice.tenant.id", tenantID.String()),
		attribute.String("lattice.opportunity.id", opportunityID.String()),
	)
	defer span.End()

	opp, err := s.opps.Get(ctx, tenantID, opportunityID)
	if err != nil {
		return nil, err
	}

	detected, err := s.detect(ctx, opp)
	if err != nil {
		return nil, err
	}

	score := FuseScore(detected)
	eval := &RiskEvaluation{
		TenantID:      tenantID,
		OpportunityID: opportunityID,
		Score:         score,
		RiskLevel:     LevelFor(score),
		Detected:      detected,
	}

	if err := s.evals.Save(ctx, eval); err != nil {
		return nil, err
	}

	if s.providers.Audit != nil {
		if err := s.providers.Audit.RecordEvaluation(ctx, eval); err != nil {
			s.log.Warn("audit sink rejected evaluation", logger.Error(err),
				slog.String("opportunity_id", opportunityID.String()))
		}
	}

	monitoring.RiskEvaluations.WithLabelValues(string(eval.RiskLevel)).Inc()
	monitoring.RiskEvaluationDuration.Observe(time.Since(start).Seconds())

	return eval, nil
}

// detect gathers signals from the catalog, the relationship graph and
// the optional providers. Provider failures are logged and skipped, not
// propagated.
func (s *Service) detect(ctx context.Context, opp *Opportunity) ([]DetectedRisk, error) {
	detected := []DetectedRisk{}

	defs, err := s.catalog.ListApplicable(ctx, opp.TenantID, opp.Industry)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if matchesDefinition(def, opp) {
			detected = append(detected, DetectedRisk{
				Code:       def.Code,
				Name:       def.Name,
				Category:   def.Category,
				Severity:   def.Severity,
				Weight:     def.Weight,
				Confidence: 1,
				Source:     "catalog",
			})
		}
	}

	detected = append(detected, s.graphSignals(ctx, opp)...)

	if s.providers.History != nil {
		volatility, err := s.providers.History.RevisionVolatility(ctx, opp.TenantID, opp.ID)
		if err != nil {
			s.log.Warn("history provider failed, skipping", logger.Error(err))
		} else if volatility >= 0.3 {
			severity := SeverityMedium
			if volatility >= 0.7 {
				severity = SeverityHigh
			}
			detected = append(detected, DetectedRisk{
				Code:       "history.volatile_revisions",
				Name:       "Frequent late revisions",
				Category:   "history",
				Severity:   severity,
				Weight:     volatility * 8,
				Confidence: volatility,
				Source:     "history",
			})
		}
	}

	if s.providers.AI != nil {
		signals, err := s.providers.AI.DetectSignals(ctx, opp.TenantID, opp)
		if err != nil {
			s.log.Warn("ai provider failed, skipping", logger.Error(err))
		} else {
			for _, sig := range signals {
				detected = append(detected, DetectedRisk{
					Code:       sig.Code,
					Name:       sig.Name,
					Category:   "ai",
					Severity:   sig.Severity,
					Weight:     sig.Weight,
					Confidence: sig.Confidence,
					Source:     "ai",
				})
			}
		}
	}

	return detected, nil
}

// graphSignals derives risk from the opportunity's relationship
// neighborhood: open blockers and heavy dependency fan-out. Graph reads
// failing is a degradation, not an evaluation failure.
func (s *Service) graphSignals(ctx context.Context, opp *Opportunity) []DetectedRisk {
	var out []DetectedRisk

	blockers, err := s.edges.ListByShard(ctx, opp.TenantID, opp.ID,
		relationships.DirectionIncoming, []relationships.RelationshipType{relationships.TypeBlocks})
	if err != nil {
		s.log.Warn("graph blocker lookup failed, skipping", logger.Error(err))
	} else if len(blockers) > 0 {
		weight := 3 + 2*float64(len(blockers))
		if weight > 10 {
			weight = 10
		}
		out = append(out, DetectedRisk{
			Code:       "graph.blocked",
			Name:       "Blocked by open items",
			Category:   "graph",
			Severity:   SeverityHigh,
			Weight:     weight,
			Confidence: 1,
			Source:     "graph",
		})
	}

	deps, err := s.edges.ListByShard(ctx, opp.TenantID, opp.ID,
		relationships.DirectionOutgoing, []relationships.RelationshipType{relationships.TypeDependsOn})
	if err != nil {
		s.log.Warn("graph dependency lookup failed, skipping", logger.Error(err))
	} else if len(deps) >= 3 {
		weight := float64(len(deps))
		if weight > 6 {
			weight = 6
		}
		out = append(out, DetectedRisk{
			Code:       "graph.dependency_fanout",
			Name:       "Depends on many open items",
			Category:   "graph",
			Severity:   SeverityMedium,
			Weight:     weight,
			Confidence: 1,
			Source:     "graph",
		})
	}

	return out
}

// matchesDefinition applies a definition's attribute rules to an
// opportunity. A definition with no signals matches unconditionally.
func matchesDefinition(def *RiskDefinition, opp *Opportunity) bool {
	if stages, ok := def.Signals["stages"].([]any); ok {
		found := false
		for _, st := range stages {
			if name, ok := st.(string); ok && name == opp.Stage {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if min, ok := numberSignal(def.Signals, "min_deal_value"); ok && opp.DealValue < min {
		return false
	}
	if max, ok := numberSignal(def.Signals, "max_deal_value"); ok && opp.DealValue > max {
		return false
	}
	if minAge, ok := numberSignal(def.Signals, "min_age_days"); ok && float64(opp.AgeDays) < minAge {
		return false
	}

	return true
}

// numberSignal reads a numeric rule value, tolerating the float64/int
// ambiguity of decoded JSON.
func numberSignal(signals map[string]any, key string) (float64, bool) {
	switch v := signals[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// FuseScore folds detected risks into a 0-100 score. The raw
// confidence-weighted sum is squashed through a sigmoid so a single
// heavy signal registers clearly while stacked signals saturate instead
// of growing without bound.
func FuseScore(detected []DetectedRisk) float64 {
	if len(detected) == 0 {
		return 0
	}

	var raw float64
	for _, d := range detected {
		raw += d.Weight * d.Confidence
	}

	return 100 * float64(mathutil.Sigmoid(float32(raw/4-2)))
}

// LevelFor maps a fused score to its risk level.
func LevelFor(score float64) RiskLevel {
	switch {
	case score < 25:
		return LevelLow
	case score < 50:
		return LevelMedium
	case score < 75:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// EnqueueEvaluation queues an async evaluation and returns the job row.
// The opportunity must exist; the work itself happens in the background
// worker.
func (s *Service) EnqueueEvaluation(ctx context.Context, tenantID, opportunityID uuid.UUID, priority int) (*EvaluationJob, error) {
	if _, err := s.opps.Get(ctx, tenantID, opportunityID); err != nil {
		return nil, err
	}

	job := &EvaluationJob{
		TenantID:      tenantID,
		OpportunityID: opportunityID,
		Priority:      priority,
	}
	if err := s.evals.EnqueueJob(ctx, job); err != nil {
		return nil, err
	}

	return job, nil
}

// GetEvaluation returns the latest stored evaluation for an opportunity.
func (s *Service) GetEvaluation(ctx context.Context, tenantID, opportunityID uuid.UUID) (*RiskEvaluation, error) {
	return s.evals.Latest(ctx, tenantID, opportunityID)
}

// GetJob returns an async evaluation job by id.
func (s *Service) GetJob(ctx context.Context, tenantID, id uuid.UUID) (*EvaluationJob, error) {
	return s.evals.GetJob(ctx, tenantID, id)
}

// evaluateView scores an opportunity without persisting anything. Used
// by simulation.
func (s *Service) evaluateView(ctx context.Context, opp *Opportunity) (float64, RiskLevel, []DetectedRisk, error) {
	detected, err := s.detect(ctx, opp)
	if err != nil {
		return 0, "", nil, err
	}
	score := FuseScore(detected)
	return score, LevelFor(score), detected, nil
}
