package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20240501000001, down_20240501000001)
}

// up_20240501000001 creates the permissions table.
func up_20240501000001(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS permissions (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			description VARCHAR(255) NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("create permissions table: %w", err)
	}
	return nil
}

// down_20240501000001 drops the permissions table.
func down_20240501000001(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS permissions`); err != nil {
		return fmt.Errorf("drop permissions table: %w", err)
	}
	return nil
}
