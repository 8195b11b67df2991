// Package migrate runs the embedded goose migrations against the
// application database.
package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/latticehq/lattice-core/migrations"
	"github.com/latticehq/lattice-core/pkg/logger"
)

var Module = fx.Options(
	fx.Provide(NewMigrator),
)

// Migrator applies the embedded migrations in order.
type Migrator struct {
	db  *bun.DB
	log *slog.Logger
}

func NewMigrator(db *bun.DB, log *slog.Logger) *Migrator {
	return &Migrator{
		db:  db,
		log: log.With(logger.Scope("migrator")),
	}
}

func setup() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	m.log.Info("running database migrations")

	if err := setup(); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.log.Info("migrations completed successfully")
	return nil
}

// Down rolls back the last migration.
func (m *Migrator) Down(ctx context.Context) error {
	m.log.Info("rolling back last migration")

	if err := setup(); err != nil {
		return err
	}

	if err := goose.DownContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	m.log.Info("rollback completed successfully")
	return nil
}

// Status returns the current migration status.
func (m *Migrator) Status(ctx context.Context) error {
	if err := setup(); err != nil {
		return err
	}

	if err := goose.StatusContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	return nil
}

// Version returns the current database version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	if err := setup(); err != nil {
		return 0, err
	}

	version, err := goose.GetDBVersionContext(ctx, m.db.DB)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}

	return version, nil
}

