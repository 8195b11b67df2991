// Command migrate applies, rolls back or inspects the database schema.
//
//	migrate -cmd up       apply all pending migrations
//	migrate -cmd down     roll back the most recent migration
//	migrate -cmd status   print per-migration status
//	migrate -cmd version  print the current schema version
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/latticehq/lattice-core/internal/config"
	"github.com/latticehq/lattice-core/internal/database"
	"github.com/latticehq/lattice-core/internal/migrate"
)

// noopLifecycle satisfies fx.Lifecycle for one-shot CLI use; shutdown is
// handled by the deferred Close calls instead of fx hooks.
type noopLifecycle struct{}

func (noopLifecycle) Append(fx.Hook) {}

func main() {
	cmd := flag.String("cmd", "up", "one of: up, down, status, version")
	flag.Parse()

	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.NewConfig(log)
	if err != nil {
		log.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := database.NewPgxPool(noopLifecycle{}, cfg, log)
	if err != nil {
		log.Error("connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	db, err := database.NewBunDB(noopLifecycle{}, pool, cfg, log)
	if err != nil {
		log.Error("open bun handle", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	migrator := migrate.NewMigrator(db, log)

	switch *cmd {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	case "version":
		var v int64
		if v, err = migrator.Version(ctx); err == nil {
			fmt.Printf("schema version: %d\n", v)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", *cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Error("migration command failed",
			slog.String("cmd", *cmd),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
}
