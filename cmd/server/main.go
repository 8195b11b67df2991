// Package main provides the entry point for the Lattice CRM core server:
// the shard relationship graph engine and the opportunity risk pipeline.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/latticehq/lattice-core/domain/health"
	"github.com/latticehq/lattice-core/domain/relationships"
	"github.com/latticehq/lattice-core/domain/risk"
	"github.com/latticehq/lattice-core/domain/shards"
	"github.com/latticehq/lattice-core/internal/cache"
	"github.com/latticehq/lattice-core/internal/config"
	"github.com/latticehq/lattice-core/internal/database"
	"github.com/latticehq/lattice-core/internal/migrate"
	"github.com/latticehq/lattice-core/internal/server"
	"github.com/latticehq/lattice-core/pkg/auth"
	"github.com/latticehq/lattice-core/pkg/logger"
	"github.com/latticehq/lattice-core/pkg/tracing"
)

func main() {
	// Load .env files if present (for local development)
	// Note: Load() won't overwrite existing vars, Overload() will
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local")

	fx.New(
		// Logging
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		server.Module,
		tracing.Module,
		cache.Module,

		// Auth module
		auth.Module,

		// Domain modules
		health.Module,
		shards.Module,
		relationships.Module,
		risk.Module,

		// Run pending migrations on startup
		fx.Invoke(runMigrations),
	).Run()
}

func runMigrations(lc fx.Lifecycle, migrator *migrate.Migrator) {
	lc.Append(fx.Hook{
		OnStart: migrator.Up,
	})
}
