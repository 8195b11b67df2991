package shards

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Shard represents a tenant-scoped, typed business entity (opportunity,
// contact, account, ...). The graph engine only refers to shards by id; the
// full CRUD surface lives in the upstream controllers.
type Shard struct {
	bun.BaseModel `bun:"table:crm.shards,alias:s"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	TenantID    uuid.UUID `bun:"tenant_id,type:uuid,notnull" json:"tenant_id"`
	ShardTypeID string    `bun:"shard_type_id,notnull" json:"shard_type_id"`
	Name        string    `bun:"name,notnull" json:"name"`

	Attributes map[string]any `bun:"attributes,type:jsonb,notnull,default:'{}'" json:"attributes"`

	CreatedAt time.Time  `bun:"created_at,notnull,default:now()" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:now()" json:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at" json:"deleted_at,omitempty"`
}
