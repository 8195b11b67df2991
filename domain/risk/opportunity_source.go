package risk

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/latticehq/lattice-core/domain/shards"
	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/logger"
)

// opportunityShardType is the shard type the pipeline evaluates.
const opportunityShardType = "opportunity"

// maxScopedOpportunities caps how many opportunities one aggregation
// reads.
const maxScopedOpportunities = 1000

// ShardOpportunitySource adapts the shard store into the opportunity
// view the evaluator consumes.
type ShardOpportunitySource struct {
	store *shards.Store
	log   *slog.Logger
}

// NewShardOpportunitySource creates an OpportunitySource backed by the
// shard store.
func NewShardOpportunitySource(store *shards.Store, log *slog.Logger) *ShardOpportunitySource {
	return &ShardOpportunitySource{
		store: store,
		log:   log.With(logger.Scope("risk.opportunities")),
	}
}

var _ OpportunitySource = (*ShardOpportunitySource)(nil)

// Get returns one opportunity. A shard of any other type is rejected as
// a bad request rather than evaluated nonsensically.
func (s *ShardOpportunitySource) Get(ctx context.Context, tenantID, id uuid.UUID) (*Opportunity, error) {
	shard, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if shard.ShardTypeID != opportunityShardType {
		return nil, apperror.ErrBadRequest.WithMessage("shard is not an opportunity")
	}
	return opportunityFromShard(shard), nil
}

// List returns the tenant's opportunities.
func (s *ShardOpportunitySource) List(ctx context.Context, tenantID uuid.UUID) ([]*Opportunity, error) {
	found, err := s.store.ListByType(ctx, tenantID, opportunityShardType, maxScopedOpportunities)
	if err != nil {
		return nil, err
	}

	opps := make([]*Opportunity, len(found))
	for i, shard := range found {
		opps[i] = opportunityFromShard(shard)
	}
	return opps, nil
}

// opportunityFromShard maps shard attributes onto the evaluation view.
// Missing or mistyped attributes degrade to zero values; the catalog
// rules simply won't match them.
func opportunityFromShard(shard *shards.Shard) *Opportunity {
	opp := &Opportunity{
		ID:       shard.ID,
		TenantID: shard.TenantID,
		Name:     shard.Name,
		AgeDays:  int(time.Since(shard.CreatedAt).Hours() / 24),
	}

	attrs := shard.Attributes
	if v, ok := attrs["deal_value"].(float64); ok {
		opp.DealValue = v
	}
	if v, ok := attrs["stage"].(string); ok {
		opp.Stage = v
	}
	if v, ok := attrs["industry"].(string); ok {
		opp.Industry = v
	}
	if v, ok := attrs["owner_id"].(string); ok {
		if id, err := uuid.Parse(v); err == nil {
			opp.OwnerID = &id
		}
	}
	if v, ok := attrs["team_id"].(string); ok {
		if id, err := uuid.Parse(v); err == nil {
			opp.TeamID = &id
		}
	}

	return opp
}
