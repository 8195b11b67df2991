package risk

import (
	"context"

	"github.com/google/uuid"
)

// ScenarioOverrides are the hypothetical parameter changes applied in a
// what-if simulation. Nil fields keep the current value.
type ScenarioOverrides struct {
	DealValue *float64 `json:"dealValue,omitempty"`
	Stage     *string  `json:"stage,omitempty"`
	Industry  *string  `json:"industry,omitempty"`
	AgeDays   *int     `json:"ageDays,omitempty"`
}

// ScenarioOutcome is one side of a simulation comparison.
type ScenarioOutcome struct {
	Score     float64        `json:"score"`
	RiskLevel RiskLevel      `json:"riskLevel"`
	Detected  []DetectedRisk `json:"detected"`
}

// SimulationResult compares the current opportunity against the
// hypothetical scenario.
type SimulationResult struct {
	OpportunityID uuid.UUID       `json:"opportunityId"`
	Baseline      ScenarioOutcome `json:"baseline"`
	Simulated     ScenarioOutcome `json:"simulated"`
	ScoreDelta    float64         `json:"scoreDelta"`
}

// SimulateScenario re-runs the evaluation against modified opportunity
// parameters and reports both outcomes. Neither evaluation is
// persisted; simulations leave no trace in the evaluation history.
func (s *Service) SimulateScenario(ctx context.Context, tenantID, opportunityID uuid.UUID, overrides *ScenarioOverrides) (*SimulationResult, error) {
	opp, err := s.opps.Get(ctx, tenantID, opportunityID)
	if err != nil {
		return nil, err
	}

	baseScore, baseLevel, baseDetected, err := s.evaluateView(ctx, opp)
	if err != nil {
		return nil, err
	}

	modified := *opp
	if overrides != nil {
		if overrides.DealValue != nil {
			modified.DealValue = *overrides.DealValue
		}
		if overrides.Stage != nil {
			modified.Stage = *overrides.Stage
		}
		if overrides.Industry != nil {
			modified.Industry = *overrides.Industry
		}
		if overrides.AgeDays != nil {
			modified.AgeDays = *overrides.AgeDays
		}
	}

	simScore, simLevel, simDetected, err := s.evaluateView(ctx, &modified)
	if err != nil {
		return nil, err
	}

	return &SimulationResult{
		OpportunityID: opportunityID,
		Baseline:      ScenarioOutcome{Score: baseScore, RiskLevel: baseLevel, Detected: baseDetected},
		Simulated:     ScenarioOutcome{Score: simScore, RiskLevel: simLevel, Detected: simDetected},
		ScoreDelta:    simScore - baseScore,
	}, nil
}
