package relationships

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/latticehq/lattice-core/pkg/apperror"
)

// memStore is an in-memory EdgeStore for service, traversal and
// pathfinder tests. Insertion order drives created_at so keyset
// ordering is deterministic.
type memStore struct {
	mu    sync.Mutex
	edges map[uuid.UUID]*Edge
	seq   int

	// shards, when set, backs the endpoint shard-type query filters.
	shards *memShards

	// failAtCall, when non-zero, fails the Nth Create call (1-based).
	createCalls int
	failAtCall  int
}

func newMemStore() *memStore {
	return &memStore{edges: make(map[uuid.UUID]*Edge)}
}

var memEpoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func (m *memStore) Create(_ context.Context, edge *Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.failAtCall != 0 && m.createCalls == m.failAtCall {
		return apperror.ErrDatabase
	}

	for _, e := range m.edges {
		if e.TenantID == edge.TenantID &&
			e.SourceShardID == edge.SourceShardID &&
			e.TargetShardID == edge.TargetShardID &&
			e.Type == edge.Type {
			return apperror.ErrConflict.WithMessage("relationship already exists")
		}
	}

	if edge.ID == uuid.Nil {
		edge.ID = uuid.New()
	}
	if edge.Metadata == nil {
		edge.Metadata = make(map[string]any)
	}
	edge.CreatedAt = memEpoch.Add(time.Duration(m.seq) * time.Millisecond)
	edge.UpdatedAt = edge.CreatedAt
	m.seq++

	cp := *edge
	m.edges[edge.ID] = &cp
	return nil
}

func (m *memStore) LinkInverse(_ context.Context, tenantID, edgeID, inverseID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, okA := m.edges[edgeID]
	b, okB := m.edges[inverseID]
	if !okA || !okB || a.TenantID != tenantID || b.TenantID != tenantID {
		return apperror.ErrNotFound
	}
	a.InverseID = &b.ID
	b.InverseID = &a.ID
	return nil
}

func (m *memStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.edges[id]
	if !ok || e.TenantID != tenantID {
		return nil, apperror.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, edge *Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.edges[edge.ID]
	if !ok || e.TenantID != edge.TenantID {
		return apperror.ErrNotFound
	}
	e.Label = edge.Label
	e.Weight = edge.Weight
	e.SortOrder = edge.SortOrder
	e.Metadata = edge.Metadata
	e.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.edges[id]
	if !ok || e.TenantID != tenantID {
		return apperror.ErrNotFound
	}
	delete(m.edges, id)
	return nil
}

func (m *memStore) ExistsByTriple(_ context.Context, tenantID, sourceID, targetID uuid.UUID, relType RelationshipType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.edges {
		if e.TenantID == tenantID &&
			e.SourceShardID == sourceID &&
			e.TargetShardID == targetID &&
			e.Type == relType {
			return true, nil
		}
	}
	return false, nil
}

func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].CreatedAt.Equal(edges[j].CreatedAt) {
			return edges[i].CreatedAt.Before(edges[j].CreatedAt)
		}
		return edges[i].ID.String() < edges[j].ID.String()
	})
}

func (m *memStore) Query(_ context.Context, params QueryParams) ([]*Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cursor *Cursor
	if params.Cursor != nil {
		c, err := DecodeCursor(*params.Cursor)
		if err != nil {
			return nil, apperror.ErrBadRequest.WithMessage("invalid continuationToken")
		}
		cursor = c
	}

	var out []*Edge
	for _, e := range m.edges {
		if e.TenantID != params.TenantID {
			continue
		}
		if params.SourceShardID != nil && e.SourceShardID != *params.SourceShardID {
			continue
		}
		if params.TargetShardID != nil && e.TargetShardID != *params.TargetShardID {
			continue
		}
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		if params.Bidirectional != nil && e.Bidirectional != *params.Bidirectional {
			continue
		}
		if params.SourceShardType != nil && m.shardType(e.SourceShardID) != *params.SourceShardType {
			continue
		}
		if params.TargetShardType != nil && m.shardType(e.TargetShardID) != *params.TargetShardType {
			continue
		}
		if cursor != nil {
			if e.CreatedAt.Before(cursor.CreatedAt) {
				continue
			}
			if e.CreatedAt.Equal(cursor.CreatedAt) && e.ID.String() <= cursor.ID.String() {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}

	sortEdges(out)
	if params.Limit > 0 && len(out) > params.Limit+1 {
		out = out[:params.Limit+1]
	}
	return out, nil
}

func (m *memStore) shardType(id uuid.UUID) string {
	if m.shards == nil {
		return ""
	}
	m.shards.mu.Lock()
	defer m.shards.mu.Unlock()
	if ref, ok := m.shards.shards[id]; ok {
		return ref.ShardTypeID
	}
	return ""
}

func (m *memStore) ListByShard(ctx context.Context, tenantID, shardID uuid.UUID, direction Direction, types []RelationshipType) ([]*Edge, error) {
	return m.ListByShardIDs(ctx, tenantID, []uuid.UUID{shardID}, direction, types)
}

func (m *memStore) ListByShardIDs(_ context.Context, tenantID uuid.UUID, shardIDs []uuid.UUID, direction Direction, types []RelationshipType) ([]*Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idSet := make(map[uuid.UUID]bool, len(shardIDs))
	for _, id := range shardIDs {
		idSet[id] = true
	}

	typeSet := make(map[RelationshipType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var out []*Edge
	for _, e := range m.edges {
		if e.TenantID != tenantID {
			continue
		}
		switch direction {
		case DirectionOutgoing:
			if !idSet[e.SourceShardID] {
				continue
			}
		case DirectionIncoming:
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
		cp := *e
		out = append(out, &cp)
	}

	sortEdges(out)
	return out, nil
}

func (m *memStore) Summary(_ context.Context, tenantID, shardID uuid.UUID) (map[RelationshipType]int64, map[RelationshipType]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outgoing := make(map[RelationshipType]int64)
	incoming := make(map[RelationshipType]int64)
	for _, e := range m.edges {
		if e.TenantID != tenantID {
			continue
		}
		if e.SourceShardID == shardID {
			outgoing[e.Type]++
		}
		if e.TargetShardID == shardID {
			incoming[e.Type]++
		}
	}
	return outgoing, incoming, nil
}

// memShards is an in-memory ShardLookup.
type memShards struct {
	mu     sync.Mutex
	shards map[uuid.UUID]*ShardRef
}

func newMemShards() *memShards {
	return &memShards{shards: make(map[uuid.UUID]*ShardRef)}
}

func (m *memShards) add(tenantID uuid.UUID, shardTypeID, name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	m.shards[id] = &ShardRef{
		ID:          id,
		TenantID:    tenantID,
		ShardTypeID: shardTypeID,
		Name:        name,
	}
	return id
}

func (m *memShards) remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shards, id)
}

func (m *memShards) GetByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*ShardRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*ShardRef
	for _, id := range ids {
		if ref, ok := m.shards[id]; ok && ref.TenantID == tenantID {
			cp := *ref
			out = append(out, &cp)
		}
	}
	return out, nil
}
