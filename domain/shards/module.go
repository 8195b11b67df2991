package shards

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/latticehq/lattice-core/domain/relationships"
)

// Module provides the shard store and its graph-facing lookup adapter.
var Module = fx.Module("shards",
	fx.Provide(
		NewStore,
		fx.Annotate(
			NewLookupAdapter,
			fx.As(new(relationships.ShardLookup)),
		),
	),
)

// LookupAdapter exposes the shard store through the narrow view the graph
// engine depends on.
type LookupAdapter struct {
	store *Store
}

// NewLookupAdapter creates a ShardLookup backed by the shard store.
func NewLookupAdapter(store *Store) *LookupAdapter {
	return &LookupAdapter{store: store}
}

// GetByIDs implements relationships.ShardLookup.
func (a *LookupAdapter) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*relationships.ShardRef, error) {
	found, err := a.store.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	refs := make([]*relationships.ShardRef, len(found))
	for i, s := range found {
		refs[i] = &relationships.ShardRef{
			ID:          s.ID,
			TenantID:    s.TenantID,
			ShardTypeID: s.ShardTypeID,
			Name:        s.Name,
			Attributes:  s.Attributes,
		}
	}
	return refs, nil
}
