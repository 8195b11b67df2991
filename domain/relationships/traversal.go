package relationships

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/logger"
	"github.com/latticehq/lattice-core/pkg/tracing"
)

// Traverser walks the relationship graph breadth-first from a root
// shard, one frontier query per level.
type Traverser struct {
	edges  EdgeStore
	shards ShardLookup
	log    *slog.Logger
}

// NewTraverser creates a new graph traverser.
func NewTraverser(edges EdgeStore, shards ShardLookup, log *slog.Logger) *Traverser {
	return &Traverser{
		edges:  edges,
		shards: shards,
		log:    log.With(logger.Scope("relationships.traverser")),
	}
}

// passesShardTypeFilter reports whether a shard survives the
// include/exclude type filters.
func passesShardTypeFilter(req *TraverseRequest, shardTypeID string) bool {
	if len(req.IncludeShardTypes) > 0 {
		ok := false
		for _, t := range req.IncludeShardTypes {
			if t == shardTypeID {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range req.ExcludeShardTypes {
		if t == shardTypeID {
			return false
		}
	}
	return true
}

// Traverse expands the subgraph reachable from root within the request's
// depth and node bounds.
//
// Each visited shard appears exactly once, at the depth it was first
// discovered; cycles are never re-entered. Shards failing the type
// filters are still recorded as nodes but their neighbors are not
// explored. The root is always expanded regardless of filters. Edges
// whose far endpoint no longer exists are skipped.
func (t *Traverser) Traverse(ctx context.Context, tenantID, rootID uuid.UUID, req *TraverseRequest) (*TraversalResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "relationships.traverse",
		attribute.String("lattice.tenant.id", tenantID.String()),
		attribute.String("lattice.shard.id", rootID.String()),
		attribute.Int("lattice.traverse.max_depth", req.MaxDepth),
		attribute.Int("lattice.traverse.max_nodes", req.MaxNodes),
	)
	defer span.End()

	roots, err := t.shards.GetByIDs(ctx, tenantID, []uuid.UUID{rootID})
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, apperror.ErrNotFound.WithMessage("root shard not found")
	}
	root := roots[0]

	resp := &TraversalResponse{
		RootNodeID: rootID,
		Nodes: []*GraphNode{{
			ID:          root.ID,
			ShardTypeID: root.ShardTypeID,
			Name:        root.Name,
			Depth:       0,
		}},
		Edges: []*EdgeResponse{},
	}

	visited := map[uuid.UUID]bool{rootID: true}
	seenEdges := map[uuid.UUID]bool{}
	frontier := []uuid.UUID{rootID}

	for depth := 1; depth <= req.MaxDepth && len(frontier) > 0; depth++ {
		levelEdges, err := t.edges.ListByShardIDs(ctx, tenantID, frontier, req.Direction, req.RelationshipTypes)
		if err != nil {
			return nil, err
		}

		inFrontier := make(map[uuid.UUID]bool, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = true
		}

		// Collect unvisited far endpoints in discovery order.
		var candidateIDs []uuid.UUID
		candidateSet := map[uuid.UUID]bool{}
		for _, e := range levelEdges {
			for _, far := range farEndpoints(e, inFrontier, req.Direction) {
				if !visited[far] && !candidateSet[far] {
					candidateSet[far] = true
					candidateIDs = append(candidateIDs, far)
				}
			}
		}

		refs, err := t.shards.GetByIDs(ctx, tenantID, candidateIDs)
		if err != nil {
			return nil, err
		}
		refByID := make(map[uuid.UUID]*ShardRef, len(refs))
		for _, ref := range refs {
			refByID[ref.ID] = ref
		}

		var nextFrontier []uuid.UUID

		for _, e := range levelEdges {
			if seenEdges[e.ID] {
				continue
			}

			// An edge is kept only when both endpoints are part of
			// the result set.
			keep := true
			for _, endpoint := range []uuid.UUID{e.SourceShardID, e.TargetShardID} {
				if visited[endpoint] {
					continue
				}
				ref, exists := refByID[endpoint]
				if !exists {
					// Dangling edge or endpoint beyond this level's scope.
					keep = false
					break
				}
				if len(resp.Nodes) >= req.MaxNodes {
					resp.Truncated = true
					keep = false
					break
				}

				visited[endpoint] = true
				resp.Nodes = append(resp.Nodes, &GraphNode{
					ID:          ref.ID,
					ShardTypeID: ref.ShardTypeID,
					Name:        ref.Name,
					Depth:       depth,
				})
				if resp.Depth < depth {
					resp.Depth = depth
				}
				if passesShardTypeFilter(req, ref.ShardTypeID) {
					nextFrontier = append(nextFrontier, endpoint)
				}
			}

			if keep {
				seenEdges[e.ID] = true
				resp.Edges = append(resp.Edges, e.ToResponse())
			}
		}

		if resp.Truncated {
			break
		}
		frontier = nextFrontier
	}

	return resp, nil
}

// farEndpoints returns the endpoints of an edge that lie on the far side
// of the current frontier, honoring the traversal direction.
func farEndpoints(e *Edge, inFrontier map[uuid.UUID]bool, direction Direction) []uuid.UUID {
	switch direction {
	case DirectionOutgoing:
		return []uuid.UUID{e.TargetShardID}
	case DirectionIncoming:
		return []uuid.UUID{e.SourceShardID}
	default:
		var out []uuid.UUID
		if !inFrontier[e.SourceShardID] {
			out = append(out, e.SourceShardID)
		}
		if !inFrontier[e.TargetShardID] {
			out = append(out, e.TargetShardID)
		}
		return out
	}
}
