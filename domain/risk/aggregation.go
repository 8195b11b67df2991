package risk

import (
	"context"

	"github.com/google/uuid"

	"github.com/latticehq/lattice-core/pkg/apperror"
)

// AggregationScope selects the rollup granularity of a revenue-at-risk
// report.
type AggregationScope string

const (
	ScopeUser       AggregationScope = "user"
	ScopeTeam       AggregationScope = "team"
	ScopeTenantWide AggregationScope = "tenant"
)

// IsValid reports whether s is a known aggregation scope.
func (s AggregationScope) IsValid() bool {
	switch s {
	case ScopeUser, ScopeTeam, ScopeTenantWide:
		return true
	}
	return false
}

// RevenueAtRiskReport is the portfolio rollup for one scope.
type RevenueAtRiskReport struct {
	Scope   AggregationScope `json:"scope"`
	ScopeID *uuid.UUID       `json:"scopeId,omitempty"`

	TotalPipeline float64 `json:"totalPipeline"`
	RevenueAtRisk float64 `json:"revenueAtRisk"`

	OpportunityCount int `json:"opportunityCount"`
	// UnevaluatedCount counts opportunities in scope with no stored
	// evaluation; they contribute to the pipeline but not to the
	// at-risk figure.
	UnevaluatedCount int `json:"unevaluatedCount"`

	ByLevel map[RiskLevel]int `json:"byLevel"`
}

// RevenueAtRisk rolls individual opportunity risk up into a portfolio
// view: each opportunity contributes dealValue x (score/100) to the
// at-risk figure, using its latest stored evaluation.
func (s *Service) RevenueAtRisk(ctx context.Context, tenantID uuid.UUID, scope AggregationScope, scopeID *uuid.UUID) (*RevenueAtRiskReport, error) {
	if !scope.IsValid() {
		return nil, apperror.ErrValidation.WithMessage("scope must be user, team or tenant")
	}
	if scope != ScopeTenantWide && scopeID == nil {
		return nil, apperror.ErrValidation.WithMessage("scopeId is required for user and team scopes")
	}

	opps, err := s.opps.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	latest, err := s.evals.LatestPerOpportunity(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := &RevenueAtRiskReport{
		Scope:   scope,
		ScopeID: scopeID,
		ByLevel: make(map[RiskLevel]int),
	}

	for _, opp := range opps {
		if !inScope(opp, scope, scopeID) {
			continue
		}

		report.OpportunityCount++
		report.TotalPipeline += opp.DealValue

		eval, ok := latest[opp.ID]
		if !ok {
			report.UnevaluatedCount++
			continue
		}

		report.RevenueAtRisk += opp.DealValue * eval.Score / 100
		report.ByLevel[eval.RiskLevel]++
	}

	return report, nil
}

// inScope reports whether an opportunity belongs to the requested
// rollup scope.
func inScope(opp *Opportunity, scope AggregationScope, scopeID *uuid.UUID) bool {
	switch scope {
	case ScopeUser:
		return opp.OwnerID != nil && *opp.OwnerID == *scopeID
	case ScopeTeam:
		return opp.TeamID != nil && *opp.TeamID == *scopeID
	default:
		return true
	}
}
