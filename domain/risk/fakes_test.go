package risk

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/latticehq/lattice-core/domain/relationships"
	"github.com/latticehq/lattice-core/pkg/apperror"
)

type fakeCatalog struct {
	defs []*RiskDefinition
	err  error
}

func (f *fakeCatalog) ListApplicable(_ context.Context, tenantID uuid.UUID, industry string) ([]*RiskDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}

	var out []*RiskDefinition
	for _, d := range f.defs {
		switch d.Scope {
		case ScopeGlobal:
			out = append(out, d)
		case ScopeIndustry:
			if d.Industry != nil && *d.Industry == industry {
				out = append(out, d)
			}
		case ScopeTenant:
			if d.TenantID != nil && *d.TenantID == tenantID {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

type fakeEvalStore struct {
	saved []*RiskEvaluation
	jobs  []*EvaluationJob
	seq   int
}

func (f *fakeEvalStore) Save(_ context.Context, eval *RiskEvaluation) error {
	if eval.ID == uuid.Nil {
		eval.ID = uuid.New()
	}
	if eval.EvaluatedAt.IsZero() {
		f.seq++
		eval.EvaluatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Minute)
	}
	cp := *eval
	f.saved = append(f.saved, &cp)
	return nil
}

func (f *fakeEvalStore) Latest(_ context.Context, tenantID, opportunityID uuid.UUID) (*RiskEvaluation, error) {
	var latest *RiskEvaluation
	for _, e := range f.saved {
		if e.TenantID != tenantID || e.OpportunityID != opportunityID {
			continue
		}
		if latest == nil || e.EvaluatedAt.After(latest.EvaluatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, apperror.ErrNotFound
	}
	return latest, nil
}

func (f *fakeEvalStore) LatestBefore(_ context.Context, tenantID, opportunityID uuid.UUID, before time.Time) (*RiskEvaluation, error) {
	var latest *RiskEvaluation
	for _, e := range f.saved {
		if e.TenantID != tenantID || e.OpportunityID != opportunityID || !e.EvaluatedAt.Before(before) {
			continue
		}
		if latest == nil || e.EvaluatedAt.After(latest.EvaluatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, apperror.ErrNotFound
	}
	return latest, nil
}

func (f *fakeEvalStore) LatestPerOpportunity(_ context.Context, tenantID uuid.UUID) (map[uuid.UUID]*RiskEvaluation, error) {
	out := make(map[uuid.UUID]*RiskEvaluation)
	for _, e := range f.saved {
		if e.TenantID != tenantID {
			continue
		}
		if cur, ok := out[e.OpportunityID]; !ok || e.EvaluatedAt.After(cur.EvaluatedAt) {
			out[e.OpportunityID] = e
		}
	}
	return out, nil
}

func (f *fakeEvalStore) RecentHighRisk(_ context.Context, threshold float64, since time.Time) ([]*RiskEvaluation, error) {
	type key struct {
		tenant uuid.UUID
		opp    uuid.UUID
	}
	latest := make(map[key]*RiskEvaluation)
	for _, e := range f.saved {
		if e.EvaluatedAt.Before(since) || e.Score < threshold {
			continue
		}
		k := key{e.TenantID, e.OpportunityID}
		if cur, ok := latest[k]; !ok || e.EvaluatedAt.After(cur.EvaluatedAt) {
			latest[k] = e
		}
	}

	out := make([]*RiskEvaluation, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EvaluatedAt.Before(out[j].EvaluatedAt) })
	return out, nil
}

func (f *fakeEvalStore) EnqueueJob(_ context.Context, job *EvaluationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = "pending"
	cp := *job
	f.jobs = append(f.jobs, &cp)
	return nil
}

func (f *fakeEvalStore) GetJob(_ context.Context, tenantID, id uuid.UUID) (*EvaluationJob, error) {
	for _, j := range f.jobs {
		if j.ID == id && j.TenantID == tenantID {
			return j, nil
		}
	}
	return nil, apperror.ErrNotFound
}

type fakeOpps struct {
	m map[uuid.UUID]*Opportunity
}

func newFakeOpps() *fakeOpps {
	return &fakeOpps{m: make(map[uuid.UUID]*Opportunity)}
}

func (f *fakeOpps) add(opp *Opportunity) *Opportunity {
	if opp.ID == uuid.Nil {
		opp.ID = uuid.New()
	}
	f.m[opp.ID] = opp
	return opp
}

func (f *fakeOpps) Get(_ context.Context, tenantID, id uuid.UUID) (*Opportunity, error) {
	opp, ok := f.m[id]
	if !ok || opp.TenantID != tenantID {
		return nil, apperror.ErrNotFound
	}
	cp := *opp
	return &cp, nil
}

func (f *fakeOpps) List(_ context.Context, tenantID uuid.UUID) ([]*Opportunity, error) {
	var out []*Opportunity
	for _, opp := range f.m {
		if opp.TenantID == tenantID {
			cp := *opp
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// fakeEdges implements just enough of relationships.EdgeStore for the
// graph-signal lookups.
type fakeEdges struct {
	edges []*relationships.Edge
}

func (f *fakeEdges) link(tenantID, src, dst uuid.UUID, relType relationships.RelationshipType) {
	f.edges = append(f.edges, &relationships.Edge{
		ID:            uuid.New(),
		TenantID:      tenantID,
		SourceShardID: src,
		TargetShardID: dst,
		Type:          relType,
		Weight:        1,
	})
}

func (f *fakeEdges) ListByShard(ctx context.Context, tenantID, shardID uuid.UUID, direction relationships.Direction, types []relationships.RelationshipType) ([]*relationships.Edge, error) {
	return f.ListByShardIDs(ctx, tenantID, []uuid.UUID{shardID}, direction, types)
}

func (f *fakeEdges) ListByShardIDs(_ context.Context, tenantID uuid.UUID, shardIDs []uuid.UUID, direction relationships.Direction, types []relationships.RelationshipType) ([]*relationships.Edge, error) {
	idSet := make(map[uuid.UUID]bool, len(shardIDs))
	for _, id := range shardIDs {
		idSet[id] = true
	}
	typeSet := make(map[relationships.RelationshipType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var out []*relationships.Edge
	for _, e := range f.edges {
		if e.TenantID != tenantID {
			continue
		}
		switch direction {
		case relationships.DirectionOutgoing:
			if !idSet[e.SourceShardID] {
				continue
			}
		case relationships.DirectionIncoming:
			if !idSet[e.TargetShardID] {
				continue
			}
		default:
			if !idSet[e.SourceShardID] && !idSet[e.TargetShardID] {
				continue
			}
		}
		if len(typeSet) > 0 && !typeSet[e.Type] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEdges) Create(context.Context, *relationships.Edge) error { return nil }
func (f *fakeEdges) LinkInverse(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error {
	return nil
}
func (f *fakeEdges) GetByID(context.Context, uuid.UUID, uuid.UUID) (*relationships.Edge, error) {
	return nil, apperror.ErrNotFound
}
func (f *fakeEdges) Update(context.Context, *relationships.Edge) error { return nil }
func (f *fakeEdges) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}
func (f *fakeEdges) ExistsByTriple(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, relationships.RelationshipType) (bool, error) {
	return false, nil
}
func (f *fakeEdges) Query(context.Context, relationships.QueryParams) ([]*relationships.Edge, error) {
	return nil, nil
}
func (f *fakeEdges) Summary(context.Context, uuid.UUID, uuid.UUID) (map[relationships.RelationshipType]int64, map[relationships.RelationshipType]int64, error) {
	return nil, nil, nil
}

type fakeAI struct {
	signals []AISignal
	err     error
}

func (f *fakeAI) DetectSignals(context.Context, uuid.UUID, *Opportunity) ([]AISignal, error) {
	return f.signals, f.err
}

type fakeHistory struct {
	volatility float64
	err        error
}

func (f *fakeHistory) RevisionVolatility(context.Context, uuid.UUID, uuid.UUID) (float64, error) {
	return f.volatility, f.err
}

type fakeAudit struct {
	recorded []*RiskEvaluation
	err      error
}

func (f *fakeAudit) RecordEvaluation(_ context.Context, eval *RiskEvaluation) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, eval)
	return nil
}
