package relationships

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/logger"
)

// pgUniqueViolation is the Postgres error code for unique constraint
// violations, raised when a duplicate (tenant, source, target, type)
// slips past the pre-insert existence check.
const pgUniqueViolation = "23505"

// EdgeStore is the persistence surface the relationship service, the
// traverser and the pathfinder depend on. Tests substitute an in-memory
// implementation.
type EdgeStore interface {
	Create(ctx context.Context, edge *Edge) error
	LinkInverse(ctx context.Context, tenantID, edgeID, inverseID uuid.UUID) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Edge, error)
	Update(ctx context.Context, edge *Edge) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	ExistsByTriple(ctx context.Context, tenantID, sourceID, targetID uuid.UUID, relType RelationshipType) (bool, error)
	Query(ctx context.Context, params QueryParams) ([]*Edge, error)
	ListByShard(ctx context.Context, tenantID, shardID uuid.UUID, direction Direction, types []RelationshipType) ([]*Edge, error)
	ListByShardIDs(ctx context.Context, tenantID uuid.UUID, shardIDs []uuid.UUID, direction Direction, types []RelationshipType) ([]*Edge, error)
	Summary(ctx context.Context, tenantID, shardID uuid.UUID) (outgoing, incoming map[RelationshipType]int64, err error)
}

// QueryParams filters a paginated relationship listing.
type QueryParams struct {
	TenantID      uuid.UUID
	SourceShardID *uuid.UUID
	TargetShardID *uuid.UUID
	Type          *RelationshipType
	Bidirectional *bool

	// SourceShardType / TargetShardType filter by the endpoint shard's
	// type rather than its id.
	SourceShardType *string
	TargetShardType *string

	// Limit is the page size; the store fetches Limit+1 rows so the
	// caller can detect whether another page exists.
	Limit  int
	Cursor *string
}

// Cursor is keyset pagination state over (created_at, id).
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

// EncodeCursor serializes pagination state into an opaque token.
func EncodeCursor(createdAt time.Time, id uuid.UUID) string {
	data, _ := json.Marshal(Cursor{CreatedAt: createdAt, ID: id})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses an opaque continuation token.
func DecodeCursor(encoded string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Store is the bun-backed EdgeStore.
type Store struct {
	db  bun.IDB
	log *slog.Logger
}

// NewStore creates a new edge store.
func NewStore(db bun.IDB, log *slog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With(logger.Scope("relationships.store")),
	}
}

var _ EdgeStore = (*Store)(nil)

// Create inserts a new edge. A duplicate (tenant, source, target, type)
// maps to ErrConflict.
func (s *Store) Create(ctx context.Context, edge *Edge) error {
	if edge.ID == uuid.Nil {
		edge.ID = uuid.New()
	}
	if edge.Metadata == nil {
		edge.Metadata = make(map[string]any)
	}
	now := time.Now()
	edge.CreatedAt = now
	edge.UpdatedAt = now

	_, err := s.db.NewInsert().
		Model(edge).
		Exec(ctx)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.ErrConflict.WithMessage("relationship already exists")
		}
		s.log.Error("failed to create edge", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// LinkInverse stamps two edges as each other's inverse.
func (s *Store) LinkInverse(ctx context.Context, tenantID, edgeID, inverseID uuid.UUID) error {
	_, err := s.db.NewUpdate().
		Model((*Edge)(nil)).
		Set("inverse_id = CASE id WHEN ? THEN ?::uuid ELSE ?::uuid END", edgeID, inverseID, edgeID).
		Set("updated_at = now()").
		Where("tenant_id = ?", tenantID).
		Where("id IN (?, ?)", edgeID, inverseID).
		Exec(ctx)

	if err != nil {
		s.log.Error("failed to link inverse edges", logger.Error(err),
			slog.String("edge_id", edgeID.String()),
			slog.String("inverse_id", inverseID.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// GetByID returns an edge by id, scoped to the tenant. A wrong-tenant id
// yields the same ErrNotFound as a missing one.
func (s *Store) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Edge, error) {
	edge := new(Edge)
	err := s.db.NewSelect().
		Model(edge).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)

	if err == sql.ErrNoRows {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get edge", logger.Error(err), slog.String("id", id.String()))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return edge, nil
}

// Update persists the mutable columns of an edge.
func (s *Store) Update(ctx context.Context, edge *Edge) error {
	edge.UpdatedAt = time.Now()

	res, err := s.db.NewUpdate().
		Model(edge).
		Column("label", "weight", "sort_order", "metadata", "updated_at").
		Where("id = ?", edge.ID).
		Where("tenant_id = ?", edge.TenantID).
		Exec(ctx)

	if err != nil {
		s.log.Error("failed to update edge", logger.Error(err), slog.String("id", edge.ID.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperror.ErrNotFound
	}

	return nil
}

// Delete removes an edge. Deleting a missing or wrong-tenant edge
// returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := s.db.NewDelete().
		Model((*Edge)(nil)).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)

	if err != nil {
		s.log.Error("failed to delete edge", logger.Error(err), slog.String("id", id.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperror.ErrNotFound
	}

	return nil
}

// ExistsByTriple reports whether an edge with the same source, target and
// type already exists within the tenant.
func (s *Store) ExistsByTriple(ctx context.Context, tenantID, sourceID, targetID uuid.UUID, relType RelationshipType) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*Edge)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("source_shard_id = ?", sourceID).
		Where("target_shard_id = ?", targetID).
		Where("relationship_type = ?", relType).
		Exists(ctx)

	if err != nil {
		s.log.Error("failed to check edge existence", logger.Error(err))
		return false, apperror.ErrDatabase.WithInternal(err)
	}

	return exists, nil
}

// Query returns edges matching the given filters, ordered by
// (created_at, id) ascending. Fetches Limit+1 rows for hasMore detection.
func (s *Store) Query(ctx context.Context, params QueryParams) ([]*Edge, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultQueryLimit
	}

	q := s.db.NewSelect().
		Model((*Edge)(nil)).
		Where("tenant_id = ?", params.TenantID)

	if params.SourceShardID != nil {
		q = q.Where("source_shard_id = ?", *params.SourceShardID)
	}
	if params.TargetShardID != nil {
		q = q.Where("target_shard_id = ?", *params.TargetShardID)
	}
	if params.Type != nil {
		q = q.Where("relationship_type = ?", *params.Type)
	}
	if params.Bidirectional != nil {
		q = q.Where("bidirectional = ?", *params.Bidirectional)
	}
	if params.SourceShardType != nil {
		q = q.Where("EXISTS (SELECT 1 FROM crm.shards sh WHERE sh.id = se.source_shard_id AND sh.shard_type_id = ?)",
			*params.SourceShardType)
	}
	if params.TargetShardType != nil {
		q = q.Where("EXISTS (SELECT 1 FROM crm.shards sh WHERE sh.id = se.target_shard_id AND sh.shard_type_id = ?)",
			*params.TargetShardType)
	}

	if params.Cursor != nil {
		cursorData, err := DecodeCursor(*params.Cursor)
		if err != nil {
			return nil, apperror.ErrBadRequest.WithMessage("invalid continuationToken")
		}
		q = q.Where("(created_at, id) > (?, ?)", cursorData.CreatedAt, cursorData.ID)
	}

	q = q.Order("created_at ASC", "id ASC").
		Limit(params.Limit + 1)

	var edges []*Edge
	if err := q.Scan(ctx, &edges); err != nil {
		s.log.Error("failed to query edges", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return edges, nil
}

// applyDirection constrains a query to edges touching the given shard ids
// in the requested direction.
func applyDirection(q *bun.SelectQuery, direction Direction, shardIDs []uuid.UUID) *bun.SelectQuery {
	switch direction {
	case DirectionOutgoing:
		return q.Where("source_shard_id IN (?)", bun.In(shardIDs))
	case DirectionIncoming:
		return q.Where("target_shard_id IN (?)", bun.In(shardIDs))
	default:
		return q.Where("(source_shard_id IN (?) OR target_shard_id IN (?))",
			bun.In(shardIDs), bun.In(shardIDs))
	}
}

// ListByShard returns all edges touching a single shard.
func (s *Store) ListByShard(ctx context.Context, tenantID, shardID uuid.UUID, direction Direction, types []RelationshipType) ([]*Edge, error) {
	return s.ListByShardIDs(ctx, tenantID, []uuid.UUID{shardID}, direction, types)
}

// ListByShardIDs returns all edges touching any of the given shards,
// ordered by (created_at, id) for deterministic traversal. Used as the
// frontier expansion query for BFS.
func (s *Store) ListByShardIDs(ctx context.Context, tenantID uuid.UUID, shardIDs []uuid.UUID, direction Direction, types []RelationshipType) ([]*Edge, error) {
	if len(shardIDs) == 0 {
		return nil, nil
	}

	q := s.db.NewSelect().
		Model((*Edge)(nil)).
		Where("tenant_id = ?", tenantID)

	q = applyDirection(q, direction, shardIDs)

	if len(types) > 0 {
		q = q.Where("relationship_type IN (?)", bun.In(types))
	}

	q = q.Order("created_at ASC", "id ASC")

	var edges []*Edge
	if err := q.Scan(ctx, &edges); err != nil {
		s.log.Error("failed to list edges by shard", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return edges, nil
}

// Summary returns per-type edge counts for a shard, split by direction.
func (s *Store) Summary(ctx context.Context, tenantID, shardID uuid.UUID) (map[RelationshipType]int64, map[RelationshipType]int64, error) {
	type row struct {
		Type  RelationshipType `bun:"relationship_type"`
		Count int64            `bun:"count"`
	}

	var outRows []row
	err := s.db.NewSelect().
		Model((*Edge)(nil)).
		ColumnExpr("relationship_type").
		ColumnExpr("count(*) AS count").
		Where("tenant_id = ?", tenantID).
		Where("source_shard_id = ?", shardID).
		Group("relationship_type").
		Scan(ctx, &outRows)
	if err != nil {
		s.log.Error("failed to summarize outgoing edges", logger.Error(err))
		return nil, nil, apperror.ErrDatabase.WithInternal(err)
	}

	var inRows []row
	err = s.db.NewSelect().
		Model((*Edge)(nil)).
		ColumnExpr("relationship_type").
		ColumnExpr("count(*) AS count").
		Where("tenant_id = ?", tenantID).
		Where("target_shard_id = ?", shardID).
		Group("relationship_type").
		Scan(ctx, &inRows)
	if err != nil {
		s.log.Error("failed to summarize incoming edges", logger.Error(err))
		return nil, nil, apperror.ErrDatabase.WithInternal(err)
	}

	outgoing := make(map[RelationshipType]int64, len(outRows))
	for _, r := range outRows {
		outgoing[r.Type] = r.Count
	}
	incoming := make(map[RelationshipType]int64, len(inRows))
	for _, r := range inRows {
		incoming[r.Type] = r.Count
	}

	return outgoing, incoming, nil
}
