package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/latticehq/lattice-core/pkg/logger"
)

// CatalogCache is a read-through Redis cache in front of the catalog
// store. Cache failures degrade to direct reads; they never fail the
// evaluation.
type CatalogCache struct {
	source CatalogSource
	rdb    *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewCatalogCache wraps a catalog source with Redis caching.
func NewCatalogCache(source CatalogSource, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CatalogCache {
	return &CatalogCache{
		source: source,
		rdb:    rdb,
		ttl:    ttl,
		log:    log.With(logger.Scope("risk.catalog_cache")),
	}
}

var _ CatalogSource = (*CatalogCache)(nil)

func catalogKey(tenantID uuid.UUID, industry string) string {
	return fmt.Sprintf("risk:catalog:%s:%s", tenantID, industry)
}

// ListApplicable serves definitions from Redis when possible, falling
// back to the underlying store and repopulating the cache.
func (c *CatalogCache) ListApplicable(ctx context.Context, tenantID uuid.UUID, industry string) ([]*RiskDefinition, error) {
	key := catalogKey(tenantID, industry)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var defs []*RiskDefinition
		if err := json.Unmarshal(raw, &defs); err == nil {
			return defs, nil
		}
		c.log.Warn("dropping undecodable catalog cache entry", slog.String("key", key))
	} else if err != redis.Nil {
		c.log.Warn("catalog cache read failed", logger.Error(err))
	}

	defs, err := c.source.ListApplicable(ctx, tenantID, industry)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(defs); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("catalog cache write failed", logger.Error(err))
		}
	}

	return defs, nil
}
