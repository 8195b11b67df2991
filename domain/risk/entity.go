// Package risk implements the opportunity risk analytics pipeline:
// catalog-driven evaluation with optional AI and historical providers,
// revenue-at-risk aggregation, what-if simulation and the early-warning
// sweep.
package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RiskScope determines which tenants a risk definition applies to.
type RiskScope string

const (
	ScopeGlobal   RiskScope = "global"
	ScopeIndustry RiskScope = "industry"
	ScopeTenant   RiskScope = "tenant"
)

// Severity classifies an individual risk signal.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskLevel classifies a fused opportunity score.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// RiskDefinition is a catalog entry: a weighted, scoped rule matched
// against opportunity attributes during evaluation.
type RiskDefinition struct {
	bun.BaseModel `bun:"table:crm.risk_definitions,alias:rd"`

	ID       uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Scope    RiskScope  `bun:"scope,notnull" json:"scope"`
	TenantID *uuid.UUID `bun:"tenant_id,type:uuid" json:"tenant_id,omitempty"`
	Industry *string    `bun:"industry" json:"industry,omitempty"`

	Code        string   `bun:"code,notnull" json:"code"`
	Name        string   `bun:"name,notnull" json:"name"`
	Description string   `bun:"description" json:"description,omitempty"`
	Category    string   `bun:"category,notnull" json:"category"`
	Weight      float64  `bun:"weight,notnull" json:"weight"`
	Severity    Severity `bun:"severity,notnull" json:"severity"`

	// Signals holds the matching rules, e.g.
	// {"stages": ["negotiation"], "min_deal_value": 50000, "min_age_days": 90}.
	Signals map[string]any `bun:"signals,type:jsonb,notnull,default:'{}'" json:"signals"`

	Active    bool      `bun:"active,notnull,default:true" json:"active"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:now()" json:"updated_at"`
}

// DetectedRisk is a single matched signal within an evaluation.
type DetectedRisk struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Severity   Severity `json:"severity"`
	Weight     float64  `json:"weight"`
	Confidence float64  `json:"confidence"`
	// Source names the detector: catalog, graph, history or ai.
	Source string `json:"source"`
}

// RiskEvaluation is a persisted scoring result for one opportunity.
type RiskEvaluation struct {
	bun.BaseModel `bun:"table:crm.risk_evaluations,alias:re"`

	ID            uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	TenantID      uuid.UUID `bun:"tenant_id,type:uuid,notnull" json:"tenant_id"`
	OpportunityID uuid.UUID `bun:"opportunity_id,type:uuid,notnull" json:"opportunity_id"`

	Score     float64        `bun:"score,notnull" json:"score"`
	RiskLevel RiskLevel      `bun:"risk_level,notnull" json:"risk_level"`
	Detected  []DetectedRisk `bun:"detected,type:jsonb,notnull,default:'[]'" json:"detected"`

	EvaluatedAt time.Time `bun:"evaluated_at,notnull,default:now()" json:"evaluated_at"`
}

// EvaluationJob is a row in the async evaluation queue.
type EvaluationJob struct {
	bun.BaseModel `bun:"table:crm.risk_evaluation_jobs,alias:rej"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	TenantID      uuid.UUID  `bun:"tenant_id,type:uuid,notnull" json:"tenant_id"`
	OpportunityID uuid.UUID  `bun:"opportunity_id,type:uuid,notnull" json:"opportunity_id"`
	Status        string     `bun:"status,notnull,default:'pending'" json:"status"`
	AttemptCount  int        `bun:"attempt_count,notnull,default:0" json:"attempt_count"`
	Priority      int        `bun:"priority,notnull,default:0" json:"priority"`
	LastError     *string    `bun:"last_error" json:"last_error,omitempty"`
	ScheduledAt   *time.Time `bun:"scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt     *time.Time `bun:"started_at" json:"started_at,omitempty"`
	CompletedAt   *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:now()" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull,default:now()" json:"updated_at"`
}

// Opportunity is the evaluation-relevant view over an opportunity shard's
// attributes.
type Opportunity struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	DealValue float64
	Stage     string
	Industry  string
	AgeDays   int
	OwnerID   *uuid.UUID
	TeamID    *uuid.UUID
}
