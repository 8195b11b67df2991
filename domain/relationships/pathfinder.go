package relationships

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/latticehq/lattice-core/pkg/logger"
	"github.com/latticehq/lattice-core/pkg/tracing"
)

// Pathfinder answers shortest-path queries between two shards.
type Pathfinder struct {
	edges EdgeStore
	log   *slog.Logger
}

// NewPathfinder creates a new pathfinder.
func NewPathfinder(edges EdgeStore, log *slog.Logger) *Pathfinder {
	return &Pathfinder{
		edges: edges,
		log:   log.With(logger.Scope("relationships.pathfinder")),
	}
}

// step links a discovered shard back to the shard and edge it was
// reached through.
type step struct {
	prev uuid.UUID
	edge *Edge
}

// FindPath runs a breadth-first search from source to target, following
// edges in either direction. The first path discovered at the minimal
// depth wins; edges are visited in (created_at, id) order so ties break
// deterministically. Absence of a path within maxDepth is a valid
// negative result, not an error.
func (p *Pathfinder) FindPath(ctx context.Context, tenantID uuid.UUID, req *FindPathRequest) (*PathResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "relationships.find_path",
		attribute.String("lattice.tenant.id", tenantID.String()),
		attribute.String("lattice.path.source_id", req.SourceShardID.String()),
		attribute.String("lattice.path.target_id", req.TargetShardID.String()),
		attribute.Int("lattice.path.max_depth", req.MaxDepth),
	)
	defer span.End()

	if req.SourceShardID == req.TargetShardID {
		return &PathResponse{Found: true, Path: []*EdgeResponse{}}, nil
	}

	parents := map[uuid.UUID]step{req.SourceShardID: {}}
	frontier := []uuid.UUID{req.SourceShardID}

	for depth := 1; depth <= req.MaxDepth && len(frontier) > 0; depth++ {
		levelEdges, err := p.edges.ListByShardIDs(ctx, tenantID, frontier, DirectionBoth, nil)
		if err != nil {
			return nil, err
		}

		inFrontier := make(map[uuid.UUID]bool, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = true
		}

		var nextFrontier []uuid.UUID
		for _, e := range levelEdges {
			near, far := e.SourceShardID, e.TargetShardID
			if !inFrontier[near] {
				near, far = far, near
			}
			if _, seen := parents[far]; seen {
				continue
			}

			parents[far] = step{prev: near, edge: e}
			if far == req.TargetShardID {
				return reconstructPath(parents, req.SourceShardID, req.TargetShardID, depth), nil
			}
			nextFrontier = append(nextFrontier, far)
		}

		frontier = nextFrontier
	}

	p.log.Debug("no path within depth bound",
		slog.String("source_shard_id", req.SourceShardID.String()),
		slog.String("target_shard_id", req.TargetShardID.String()),
		slog.Int("max_depth", req.MaxDepth))

	return &PathResponse{Found: false, Path: []*EdgeResponse{}}, nil
}

// reconstructPath walks the parent chain from target back to source and
// reverses it into source-to-target order.
func reconstructPath(parents map[uuid.UUID]step, source, target uuid.UUID, depth int) *PathResponse {
	path := make([]*EdgeResponse, 0, depth)
	for cur := target; cur != source; {
		s := parents[cur]
		path = append(path, s.edge.ToResponse())
		cur = s.prev
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return &PathResponse{Found: true, Path: path, Depth: len(path)}
}
