package relationships

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RelationshipType is the closed enumeration of edge types.
type RelationshipType string

const (
	TypeRelatesTo  RelationshipType = "relates_to"
	TypeDependsOn  RelationshipType = "depends_on"
	TypePartOf     RelationshipType = "part_of"
	TypeBlocks     RelationshipType = "blocks"
	TypeDuplicates RelationshipType = "duplicates"
	TypeReferences RelationshipType = "references"
	TypeParentOf   RelationshipType = "parent_of"
	TypeChildOf    RelationshipType = "child_of"
)

// AllRelationshipTypes lists every valid relationship type.
func AllRelationshipTypes() []RelationshipType {
	return []RelationshipType{
		TypeRelatesTo, TypeDependsOn, TypePartOf, TypeBlocks,
		TypeDuplicates, TypeReferences, TypeParentOf, TypeChildOf,
	}
}

// IsValid reports whether t is a known relationship type.
func (t RelationshipType) IsValid() bool {
	switch t {
	case TypeRelatesTo, TypeDependsOn, TypePartOf, TypeBlocks,
		TypeDuplicates, TypeReferences, TypeParentOf, TypeChildOf:
		return true
	}
	return false
}
// Direction selects which edge direction(s) an operation follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
		return true
	}
	return false
}

// Edge represents a typed, weighted, directional link between two shards.
//
// Edges hold weak references: shards may be deleted independently, leaving
// dangling edges unless explicitly cleaned up. Bidirectional relationships
// are stored as two rows linked via inverse_id so deletion can cascade.
type Edge struct {
	bun.BaseModel `bun:"table:crm.shard_edges,alias:se"`

	ID       uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	TenantID uuid.UUID `bun:"tenant_id,type:uuid,notnull" json:"tenant_id"`

	SourceShardID uuid.UUID        `bun:"source_shard_id,type:uuid,notnull" json:"source_shard_id"`
	TargetShardID uuid.UUID        `bun:"target_shard_id,type:uuid,notnull" json:"target_shard_id"`
	Type          RelationshipType `bun:"relationship_type,notnull" json:"relationship_type"`

	Label         *string    `bun:"label" json:"label,omitempty"`
	Weight        float64    `bun:"weight,notnull,default:1" json:"weight"`
	Bidirectional bool       `bun:"bidirectional,notnull,default:false" json:"bidirectional"`
	InverseID     *uuid.UUID `bun:"inverse_id,type:uuid" json:"inverse_id,omitempty"`
	SortOrder     *int       `bun:"sort_order" json:"sort_order,omitempty"`

	// Metadata is caller-defined and passed through verbatim; the engine
	// never interprets its contents.
	Metadata map[string]any `bun:"metadata,type:jsonb,notnull,default:'{}'" json:"metadata"`

	CreatedAt time.Time `bun:"created_at,notnull,default:now()" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:now()" json:"updated_at"`
}

// ShardRef is the subset of a shard record the graph engine needs for
// endpoint validation and node hydration.
type ShardRef struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	ShardTypeID string         `json:"shard_type_id"`
	Name        string         `json:"name"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}
