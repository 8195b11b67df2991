package risk

import (
	"context"

	"github.com/google/uuid"
)

// AISignal is a risk signal produced by an external AI/semantic detector.
type AISignal struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Severity   Severity `json:"severity"`
	Weight     float64  `json:"weight"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale,omitempty"`
}

// AISignalProvider detects risk signals an attribute-rule catalog cannot
// express (sentiment, semantic drift in notes, ...).
type AISignalProvider interface {
	DetectSignals(ctx context.Context, tenantID uuid.UUID, opp *Opportunity) ([]AISignal, error)
}

// HistoryProvider reports how volatile an opportunity's revision history
// has been, in [0, 1]. Frequent late-stage edits correlate with deals
// going sideways.
type HistoryProvider interface {
	RevisionVolatility(ctx context.Context, tenantID, opportunityID uuid.UUID) (float64, error)
}

// AuditSink receives completed evaluations for compliance trails.
type AuditSink interface {
	RecordEvaluation(ctx context.Context, eval *RiskEvaluation) error
}

// Providers bundles the optional evaluation capabilities. Every field
// may be nil; the evaluator checks presence before invoking and a
// provider failure degrades the evaluation instead of failing it.
type Providers struct {
	AI      AISignalProvider
	History HistoryProvider
	Audit   AuditSink
}
