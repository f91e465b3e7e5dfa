package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"

	"github.com/odyssey-bank/banking-api/internal/platform/db/migrations"
)

// MigrationReport lists the steps applied by one Migrate call.
type MigrationReport struct {
	GroupID int64
	Applied []string
}

// NewBunDB exposes pool through bun for schema management. The pool keeps
// ownership of the connections.
func NewBunDB(pool *pgxpool.Pool) *bun.DB {
	return bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())
}

// Migrate applies pending migrations under the migrator lock. Applied
// versions are recorded by bun, so each step runs once per database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (MigrationReport, error) {
	migrator := migrate.NewMigrator(NewBunDB(pool), migrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return MigrationReport{}, fmt.Errorf("platform/db: init migrator: %w", err)
	}
	if err := migrator.Lock(ctx); err != nil {
		return MigrationReport{}, fmt.Errorf("platform/db: acquire migration lock: %w", err)
	}
	defer func() {
		_ = migrator.Unlock(ctx)
	}()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("platform/db: migrate: %w", err)
	}

	report := MigrationReport{GroupID: group.ID}
	for _, m := range group.Migrations {
		report.Applied = append(report.Applied, m.Name)
	}
	return report, nil
}
