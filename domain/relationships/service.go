package relationships

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/logger"
	"github.com/latticehq/lattice-core/pkg/mathutil"
)

// ShardLookup is the narrow view of the shard store the graph engine
// needs for endpoint validation and node hydration.
type ShardLookup interface {
	GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*ShardRef, error)
}

// Service implements relationship lifecycle and query operations.
type Service struct {
	edges  EdgeStore
	shards ShardLookup
	log    *slog.Logger
}

// NewService creates a new relationship service.
func NewService(edges EdgeStore, shards ShardLookup, log *slog.Logger) *Service {
	return &Service{
		edges:  edges,
		shards: shards,
		log:    log.With(logger.Scope("relationships.service")),
	}
}

// resolveShards fetches the given shards and fails with ErrNotFound if
// any are missing from the tenant.
func (s *Service) resolveShards(ctx context.Context, tenantID uuid.UUID, ids ...uuid.UUID) (map[uuid.UUID]*ShardRef, error) {
	found, err := s.shards.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*ShardRef, len(found))
	for _, ref := range found {
		byID[ref.ID] = ref
	}

	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, apperror.ErrNotFound.WithMessage(fmt.Sprintf("shard %s not found", id))
		}
	}

	return byID, nil
}

// Create validates and persists a relationship. Bidirectional requests
// additionally materialize a mirrored inverse edge.
//
// The forward and inverse inserts are separate statements: if the
// inverse insert fails the forward edge survives and the failure is
// logged, not propagated.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req *CreateRelationshipRequest) (*EdgeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.resolveShards(ctx, tenantID, req.SourceShardID, req.TargetShardID); err != nil {
		return nil, err
	}

	exists, err := s.edges.ExistsByTriple(ctx, tenantID, req.SourceShardID, req.TargetShardID, req.Type)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrConflict.WithMessage("relationship already exists")
	}

	weight := 1.0
	if req.Weight != nil {
		weight = *req.Weight
	}

	edge := &Edge{
		TenantID:      tenantID,
		SourceShardID: req.SourceShardID,
		TargetShardID: req.TargetShardID,
		Type:          req.Type,
		Label:         req.Label,
		Weight:        weight,
		Bidirectional: req.Bidirectional,
		SortOrder:     req.SortOrder,
		Metadata:      req.Metadata,
	}

	if err := s.edges.Create(ctx, edge); err != nil {
		return nil, err
	}

	resp := edge.ToResponse()

	if req.Bidirectional && !req.SkipInverseCreation {
		// The inverse keeps the same type, weight and metadata; only
		// the endpoints swap.
		inverse := &Edge{
			TenantID:      tenantID,
			SourceShardID: req.TargetShardID,
			TargetShardID: req.SourceShardID,
			Type:          req.Type,
			Label:         req.Label,
			Weight:        weight,
			Bidirectional: true,
			SortOrder:     req.SortOrder,
			Metadata:      req.Metadata,
		}

		if err := s.edges.Create(ctx, inverse); err != nil {
			s.log.Warn("inverse edge creation failed, forward edge kept",
				logger.Error(err),
				slog.String("edge_id", edge.ID.String()))
			return resp, nil
		}

		if err := s.edges.LinkInverse(ctx, tenantID, edge.ID, inverse.ID); err != nil {
			s.log.Warn("failed to link inverse pair",
				logger.Error(err),
				slog.String("edge_id", edge.ID.String()),
				slog.String("inverse_id", inverse.ID.String()))
			return resp, nil
		}

		edge.InverseID = &inverse.ID
		inverse.InverseID = &edge.ID
		resp = edge.ToResponse()
		resp.Inverse = inverse.ToResponse()
	}

	return resp, nil
}

// Get returns a relationship by id.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*EdgeResponse, error) {
	edge, err := s.edges.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return edge.ToResponse(), nil
}

// Update mutates label, weight, order and metadata of a relationship.
// Type and endpoints are immutable.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req *UpdateRelationshipRequest) (*EdgeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	edge, err := s.edges.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		edge.Label = req.Label
	}
	if req.Weight != nil {
		edge.Weight = *req.Weight
	}
	if req.SortOrder != nil {
		edge.SortOrder = req.SortOrder
	}
	if req.Metadata != nil {
		edge.Metadata = req.Metadata
	}

	if err := s.edges.Update(ctx, edge); err != nil {
		return nil, err
	}

	return edge.ToResponse(), nil
}

// Delete removes a relationship. When deleteInverse is true (the
// default) and the edge is half of a bidirectional pair, the mirrored
// edge is removed as well; a missing inverse is not an error.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID, deleteInverse bool) error {
	edge, err := s.edges.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if err := s.edges.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	if deleteInverse && edge.InverseID != nil {
		if err := s.edges.Delete(ctx, tenantID, *edge.InverseID); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil
			}
			s.log.Warn("failed to delete inverse edge",
				logger.Error(err),
				slog.String("inverse_id", edge.InverseID.String()))
		}
	}

	return nil
}

// BulkCreate creates up to MaxBulkEdges relationships in one call.
// Results are reported per index; already-created edges are never rolled
// back regardless of the onError mode.
func (s *Service) BulkCreate(ctx context.Context, tenantID uuid.UUID, req *BulkCreateRequest) (*BulkCreateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	mode := req.OnError
	if mode == "" {
		mode = OnErrorContinue
	}

	resp := &BulkCreateResponse{
		Results: make([]BulkItemResult, 0, len(req.Edges)),
	}

	for i := range req.Edges {
		item := req.Edges[i]
		if req.SkipInverseCreation {
			item.SkipInverseCreation = true
		}

		created, err := s.Create(ctx, tenantID, &item)
		if err != nil {
			resp.Failed++
			resp.Results = append(resp.Results, BulkItemResult{
				Index:  i,
				Status: "failed",
				Error:  toBulkError(err),
			})
			if mode == OnErrorAbort {
				break
			}
			continue
		}

		resp.Succeeded++
		resp.Results = append(resp.Results, BulkItemResult{
			Index:  i,
			Status: "created",
			Edge:   created,
		})
	}

	return resp, nil
}

// toBulkError flattens an error into a per-item bulk result error.
func toBulkError(err error) *BulkItemError {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return &BulkItemError{Code: appErr.Code, Message: appErr.Message}
	}
	return &BulkItemError{Code: "INTERNAL_ERROR", Message: err.Error()}
}

// Query returns a filtered, cursor-paginated page of relationships.
func (s *Service) Query(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultQueryLimit
	}
	if params.Limit > MaxQueryLimit {
		params.Limit = MaxQueryLimit
	}

	edges, err := s.edges.Query(ctx, params)
	if err != nil {
		return nil, err
	}

	resp := &QueryResponse{Edges: make([]*EdgeResponse, 0, len(edges))}

	hasMore := len(edges) > params.Limit
	if hasMore {
		edges = edges[:params.Limit]
	}

	for _, e := range edges {
		resp.Edges = append(resp.Edges, e.ToResponse())
	}
	resp.Count = len(resp.Edges)

	if hasMore {
		last := edges[len(edges)-1]
		token := EncodeCursor(last.CreatedAt, last.ID)
		resp.ContinuationToken = &token
	}

	return resp, nil
}

// GetShardRelationships lists all edges attached to a shard, optionally
// filtered by direction and type.
func (s *Service) GetShardRelationships(ctx context.Context, tenantID, shardID uuid.UUID, direction Direction, types []RelationshipType, limit int) (*ShardRelationshipsResponse, error) {
	if direction == "" {
		direction = DirectionBoth
	}
	if !direction.IsValid() {
		return nil, apperror.ErrValidation.WithMessage("direction must be outgoing, incoming or both")
	}
	for _, t := range types {
		if !t.IsValid() {
			return nil, apperror.ErrValidation.WithMessage("unknown relationshipType in filter")
		}
	}
	limit = mathutil.ClampLimit(limit, DefaultQueryLimit, MaxQueryLimit)

	if _, err := s.resolveShards(ctx, tenantID, shardID); err != nil {
		return nil, err
	}

	edges, err := s.edges.ListByShard(ctx, tenantID, shardID, direction, types)
	if err != nil {
		return nil, err
	}
	if len(edges) > limit {
		edges = edges[:limit]
	}

	resp := &ShardRelationshipsResponse{
		Relationships: make([]*EdgeResponse, 0, len(edges)),
	}
	for _, e := range edges {
		resp.Relationships = append(resp.Relationships, e.ToResponse())
	}
	resp.Count = len(resp.Relationships)

	return resp, nil
}

// GetRelatedShards returns the deduplicated set of shards connected to
// the given shard, hydrated from the shard store and optionally filtered
// by the related shard's type. Dangling edges whose far endpoint no
// longer exists are skipped.
func (s *Service) GetRelatedShards(ctx context.Context, tenantID, shardID uuid.UUID, direction Direction, types []RelationshipType, targetShardType string, limit int) (*RelatedShardsResponse, error) {
	if direction == "" {
		direction = DirectionBoth
	}
	if !direction.IsValid() {
		return nil, apperror.ErrValidation.WithMessage("direction must be outgoing, incoming or both")
	}
	limit = mathutil.ClampLimit(limit, DefaultQueryLimit, MaxQueryLimit)

	if _, err := s.resolveShards(ctx, tenantID, shardID); err != nil {
		return nil, err
	}

	edges, err := s.edges.ListByShard(ctx, tenantID, shardID, direction, types)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	var relatedIDs []uuid.UUID
	for _, e := range edges {
		other := e.TargetShardID
		if other == shardID {
			other = e.SourceShardID
		}
		if other == shardID {
			continue
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		relatedIDs = append(relatedIDs, other)
	}

	refs, err := s.shards.GetByIDs(ctx, tenantID, relatedIDs)
	if err != nil {
		return nil, err
	}

	if targetShardType != "" {
		filtered := refs[:0]
		for _, ref := range refs {
			if ref.ShardTypeID == targetShardType {
				filtered = append(filtered, ref)
			}
		}
		refs = filtered
	}
	if len(refs) > limit {
		refs = refs[:limit]
	}

	return &RelatedShardsResponse{
		Shards: refs,
		Count:  len(refs),
	}, nil
}

// GetSummary returns per-type edge counts for a shard, split by
// direction. Types with no edges are omitted.
func (s *Service) GetSummary(ctx context.Context, tenantID, shardID uuid.UUID) (*SummaryResponse, error) {
	if _, err := s.resolveShards(ctx, tenantID, shardID); err != nil {
		return nil, err
	}

	outgoing, incoming, err := s.edges.Summary(ctx, tenantID, shardID)
	if err != nil {
		return nil, err
	}

	if outgoing == nil {
		outgoing = make(map[RelationshipType]int64)
	}
	if incoming == nil {
		incoming = make(map[RelationshipType]int64)
	}

	return &SummaryResponse{Outgoing: outgoing, Incoming: incoming}, nil
}
