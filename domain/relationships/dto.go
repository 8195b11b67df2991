package relationships

import (
	"time"

	"github.com/google/uuid"

	"github.com/latticehq/lattice-core/pkg/apperror"
)

// Bounds and defaults for list, traversal and path operations.
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 100

	MaxBulkEdges = 100

	MinTraversalDepth     = 1
	MaxTraversalDepth     = 5
	DefaultTraversalDepth = 2
	MaxTraversalNodes     = 500
	DefaultTraversalNodes = 100

	MinPathDepth     = 1
	MaxPathDepth     = 10
	DefaultPathDepth = 5
)

// OnError selects bulk-create failure behavior.
const (
	OnErrorContinue = "continue"
	OnErrorAbort    = "abort"
)

// CreateRelationshipRequest is the payload for creating a relationship.
type CreateRelationshipRequest struct {
	SourceShardID uuid.UUID        `json:"sourceShardId"`
	TargetShardID uuid.UUID        `json:"targetShardId"`
	Type          RelationshipType `json:"relationshipType"`

	Label         *string        `json:"label,omitempty"`
	Weight        *float64       `json:"weight,omitempty"`
	Bidirectional bool           `json:"bidirectional,omitempty"`
	SortOrder     *int           `json:"order,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`

	// SkipInverseCreation disables automatic inverse generation for
	// bidirectional edges.
	SkipInverseCreation bool `json:"skipInverseCreation,omitempty"`
}

// Validate checks required fields and value ranges.
func (r *CreateRelationshipRequest) Validate() error {
	if r.SourceShardID == uuid.Nil {
		return apperror.ErrValidation.WithMessage("sourceShardId is required")
	}
	if r.TargetShardID == uuid.Nil {
		return apperror.ErrValidation.WithMessage("targetShardId is required")
	}
	if r.SourceShardID == r.TargetShardID {
		return apperror.ErrValidation.WithMessage("self-referencing relationships are not allowed")
	}
	if !r.Type.IsValid() {
		return apperror.ErrValidation.WithMessage("unknown relationshipType")
	}
	if r.Weight != nil && *r.Weight < 0 {
		return apperror.ErrValidation.WithMessage("weight must be non-negative")
	}
	return nil
}

// UpdateRelationshipRequest is the payload for mutating a relationship.
// Only label, weight, metadata and order are mutable; type and endpoints
// are immutable post-creation and attempts to change them are rejected.
type UpdateRelationshipRequest struct {
	Label     *string        `json:"label,omitempty"`
	Weight    *float64       `json:"weight,omitempty"`
	SortOrder *int           `json:"order,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	// Immutable fields, present only to reject attempts to change them.
	SourceShardID *uuid.UUID        `json:"sourceShardId,omitempty"`
	TargetShardID *uuid.UUID        `json:"targetShardId,omitempty"`
	Type          *RelationshipType `json:"relationshipType,omitempty"`
}

// Validate rejects immutable-field changes and out-of-range values.
func (r *UpdateRelationshipRequest) Validate() error {
	if r.SourceShardID != nil || r.TargetShardID != nil || r.Type != nil {
		return apperror.ErrValidation.WithMessage("relationshipType and endpoints are immutable")
	}
	if r.Weight != nil && *r.Weight < 0 {
		return apperror.ErrValidation.WithMessage("weight must be non-negative")
	}
	return nil
}

// BulkCreateRequest is the payload for bulk relationship creation.
type BulkCreateRequest struct {
	Edges []CreateRelationshipRequest `json:"edges"`

	// OnError: "continue" (default) collects per-edge results;
	// "abort" stops at the first failure. Neither mode rolls back
	// edges already committed.
	OnError string `json:"onError,omitempty"`

	// SkipInverseCreation disables inverse generation for the whole batch.
	SkipInverseCreation bool `json:"skipInverseCreation,omitempty"`
}

// Validate checks batch size and options.
func (r *BulkCreateRequest) Validate() error {
	if len(r.Edges) == 0 {
		return apperror.ErrValidation.WithMessage("edges must not be empty")
	}
	if len(r.Edges) > MaxBulkEdges {
		return apperror.ErrValidation.WithMessage("batch exceeds 100 edges")
	}
	if r.OnError != "" && r.OnError != OnErrorContinue && r.OnError != OnErrorAbort {
		return apperror.ErrValidation.WithMessage("onError must be 'continue' or 'abort'")
	}
	return nil
}

// TraverseRequest configures a breadth-first graph traversal.
type TraverseRequest struct {
	MaxDepth          int                `json:"maxDepth,omitempty"`
	Direction         Direction          `json:"direction,omitempty"`
	RelationshipTypes []RelationshipType `json:"relationshipTypes,omitempty"`
	IncludeShardTypes []string           `json:"includeShardTypes,omitempty"`
	ExcludeShardTypes []string           `json:"excludeShardTypes,omitempty"`
	MaxNodes          int                `json:"maxNodes,omitempty"`
}

// Validate checks depth/node bounds and normalizes defaults.
func (r *TraverseRequest) Validate() error {
	if r.MaxDepth == 0 {
		r.MaxDepth = DefaultTraversalDepth
	}
	if r.MaxDepth < MinTraversalDepth || r.MaxDepth > MaxTraversalDepth {
		return apperror.ErrValidation.WithMessage("maxDepth must be between 1 and 5")
	}
	if r.MaxNodes == 0 {
		r.MaxNodes = DefaultTraversalNodes
	}
	if r.MaxNodes < 1 || r.MaxNodes > MaxTraversalNodes {
		return apperror.ErrValidation.WithMessage("maxNodes must be between 1 and 500")
	}
	if r.Direction == "" {
		r.Direction = DirectionBoth
	}
	if !r.Direction.IsValid() {
		return apperror.ErrValidation.WithMessage("direction must be outgoing, incoming or both")
	}
	for _, t := range r.RelationshipTypes {
		if !t.IsValid() {
			return apperror.ErrValidation.WithMessage("unknown relationshipType in filter")
		}
	}
	return nil
}

// FindPathRequest configures a path search between two shards.
type FindPathRequest struct {
	SourceShardID uuid.UUID `json:"sourceShardId"`
	TargetShardID uuid.UUID `json:"targetShardId"`
	MaxDepth      int       `json:"maxDepth,omitempty"`
}

// Validate checks ids and the depth bound.
func (r *FindPathRequest) Validate() error {
	if r.SourceShardID == uuid.Nil || r.TargetShardID == uuid.Nil {
		return apperror.ErrValidation.WithMessage("sourceShardId and targetShardId are required")
	}
	if r.MaxDepth == 0 {
		r.MaxDepth = DefaultPathDepth
	}
	if r.MaxDepth < MinPathDepth || r.MaxDepth > MaxPathDepth {
		return apperror.ErrValidation.WithMessage("maxDepth must be between 1 and 10")
	}
	return nil
}

// EdgeResponse is the wire representation of an edge.
type EdgeResponse struct {
	ID            uuid.UUID        `json:"id"`
	TenantID      uuid.UUID        `json:"tenantId"`
	SourceShardID uuid.UUID        `json:"sourceShardId"`
	TargetShardID uuid.UUID        `json:"targetShardId"`
	Type          RelationshipType `json:"relationshipType"`
	Label         *string          `json:"label,omitempty"`
	Weight        float64          `json:"weight"`
	Bidirectional bool             `json:"bidirectional"`
	InverseID     *uuid.UUID       `json:"inverseId,omitempty"`
	SortOrder     *int             `json:"order,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`

	// Inverse is populated on create when a bidirectional pair was
	// materialized.
	Inverse *EdgeResponse `json:"inverse,omitempty"`
}

// ToResponse converts an edge entity to its wire representation.
func (e *Edge) ToResponse() *EdgeResponse {
	return &EdgeResponse{
		ID:            e.ID,
		TenantID:      e.TenantID,
		SourceShardID: e.SourceShardID,
		TargetShardID: e.TargetShardID,
		Type:          e.Type,
		Label:         e.Label,
		Weight:        e.Weight,
		Bidirectional: e.Bidirectional,
		InverseID:     e.InverseID,
		SortOrder:     e.SortOrder,
		Metadata:      e.Metadata,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// QueryResponse is the paginated result of a relationship query.
type QueryResponse struct {
	Edges             []*EdgeResponse `json:"edges"`
	ContinuationToken *string         `json:"continuationToken,omitempty"`
	Count             int             `json:"count"`
}

// BulkItemError describes a single failed edge in a bulk create.
type BulkItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkItemResult is the per-edge outcome of a bulk create.
type BulkItemResult struct {
	Index  int            `json:"index"`
	Status string         `json:"status"` // "created" or "failed"
	Edge   *EdgeResponse  `json:"edge,omitempty"`
	Error  *BulkItemError `json:"error,omitempty"`
}

// BulkCreateResponse aggregates the per-edge outcomes of a bulk create.
type BulkCreateResponse struct {
	Results   []BulkItemResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// ShardRelationshipsResponse lists edges attached to a shard.
type ShardRelationshipsResponse struct {
	Relationships []*EdgeResponse `json:"relationships"`
	Count         int             `json:"count"`
}

// RelatedShardsResponse lists hydrated shards connected to a shard.
type RelatedShardsResponse struct {
	Shards []*ShardRef `json:"shards"`
	Count  int         `json:"count"`
}

// SummaryResponse breaks down a shard's edges per type and direction.
type SummaryResponse struct {
	Outgoing map[RelationshipType]int64 `json:"outgoing"`
	Incoming map[RelationshipType]int64 `json:"incoming"`
}

// GraphNode is a shard summary within a traversal result.
type GraphNode struct {
	ID          uuid.UUID `json:"id"`
	ShardTypeID string    `json:"shardTypeId"`
	Name        string    `json:"name"`
	Depth       int       `json:"depth"`
}

// TraversalResponse is the subgraph produced by a traversal.
type TraversalResponse struct {
	Nodes      []*GraphNode    `json:"nodes"`
	Edges      []*EdgeResponse `json:"edges"`
	RootNodeID uuid.UUID       `json:"rootNodeId"`
	Depth      int             `json:"depth"`
	Truncated  bool            `json:"truncated,omitempty"`
}

// PathResponse is the result of a path search. A missing path is a valid
// negative result, not an error.
type PathResponse struct {
	Found bool            `json:"found"`
	Path  []*EdgeResponse `json:"path"`
	Depth int             `json:"depth"`
}
