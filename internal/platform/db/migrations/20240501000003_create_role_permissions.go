package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20240501000003, down_20240501000003)
}

// up_20240501000003 creates the role_permissions table.
func up_20240501000003(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS role_permissions (
			role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
			PRIMARY KEY (role_id, permission_id)
		)`)
	if err != nil {
		return fmt.Errorf("create role_permissions table: %w", err)
	}
	return nil
}

// down_20240501000003 drops the role_permissions table.
func down_20240501000003(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS role_permissions`); err != nil {
		return fmt.Errorf("drop role_permissions table: %w", err)
	}
	return nil
}
