package shards

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/logger"
)

// Store persists shard records. Only the lookup surface the graph and risk
// engines need is implemented here.
type Store struct {
	db  bun.IDB
	log *slog.Logger
}

// NewStore creates a new shard store.
func NewStore(db bun.IDB, log *slog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With(logger.Scope("shards.store")),
	}
}

// GetByID returns a shard by id, scoped to the tenant.
// A wrong-tenant id yields the same ErrNotFound as a missing one.
func (s *Store) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Shard, error) {
	shard := new(Shard)
	err := s.db.NewSelect().
		Model(shard).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Where("deleted_at IS NULL").
		Scan(ctx)

	if err == sql.ErrNoRows {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get shard", logger.Error(err), slog.String("id", id.String()))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return shard, nil
}

// GetByIDs returns the shards matching the given ids within the tenant.
// Missing ids are simply absent from the result; the caller decides whether
// that is an error.
func (s *Store) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Shard, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var result []*Shard
	err := s.db.NewSelect().
		Model(&result).
		Where("id IN (?)", bun.In(ids)).
		Where("tenant_id = ?", tenantID).
		Where("deleted_at IS NULL").
		Scan(ctx)

	if err != nil && err != sql.ErrNoRows {
		s.log.Error("failed to get shards", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return result, nil
}

// ListByType returns shards of a given type within the tenant.
func (s *Store) ListByType(ctx context.Context, tenantID uuid.UUID, shardTypeID string, limit int) ([]*Shard, error) {
	if limit <= 0 {
		limit = 100
	}

	var result []*Shard
	err := s.db.NewSelect().
		Model(&result).
		Where("tenant_id = ?", tenantID).
		Where("shard_type_id = ?", shardTypeID).
		Where("deleted_at IS NULL").
		Order("created_at ASC", "id ASC").
		Limit(limit).
		Scan(ctx)

	if err != nil && err != sql.ErrNoRows {
		s.log.Error("failed to list shards", logger.Error(err), slog.String("shard_type", shardTypeID))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return result, nil
}

// Create persists a shard. Used by seeding and by tests; production shard
// lifecycle is owned by the upstream CRUD layer.
func (s *Store) Create(ctx context.Context, shard *Shard) error {
	_, err := s.db.NewInsert().
		Model(shard).
		Returning("id, created_at, updated_at").
		Exec(ctx)

	if err != nil {
		s.log.Error("failed to create shard", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}
