package risk

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/latticehq/lattice-core/internal/config"
)

// Module provides risk domain dependencies.
var Module = fx.Module("risk",
	fx.Provide(
		NewStore,
		provideCatalogSource,
		provideEvaluationStore,
		fx.Annotate(NewShardOpportunitySource, fx.As(new(OpportunitySource))),
		provideProviders,
		NewService,
		NewSweeper,
		NewJobQueue,
		NewEvaluationWorker,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RegisterWorker),
	fx.Invoke(RegisterSweep),
)

// provideCatalogSource wraps the catalog store with the Redis cache when
// a client is configured.
func provideCatalogSource(store *Store, rdb *redis.Client, cfg *config.Config, log *slog.Logger) CatalogSource {
	if rdb == nil {
		return store
	}
	return NewCatalogCache(store, rdb, cfg.Redis.CacheTTL, log)
}

func provideEvaluationStore(store *Store) EvaluationStore {
	return store
}

// provideProviders yields the default empty capability set. Deployments
// with AI/history/audit integrations replace this provider.
func provideProviders() Providers {
	return Providers{}
}
