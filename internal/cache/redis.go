// Package cache provides the optional Redis client used for hot-path
// read caching. When REDIS_ADDR is not configured the provider yields a
// nil client and consumers fall back to direct store reads.
package cache

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/latticehq/lattice-core/internal/config"
	"github.com/latticehq/lattice-core/pkg/logger"
)

// Module provides the Redis client.
var Module = fx.Module("cache",
	fx.Provide(NewRedisClient),
)

// NewRedisClient connects to Redis when configured, returning nil
// otherwise. The connection is verified on startup and closed on
// shutdown.
func NewRedisClient(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) *redis.Client {
	scopedLog := log.With(logger.Scope("cache"))

	if !cfg.Redis.IsConfigured() {
		scopedLog.Info("redis not configured, caching disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				scopedLog.Error("redis ping failed", logger.Error(err))
				return err
			}
			scopedLog.Info("redis connected", slog.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return client
}
