package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20240501000005, down_20240501000005)
}

// up_20240501000005 creates the user_roles table.
func up_20240501000005(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_roles (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, role_id)
		)`)
	if err != nil {
		return fmt.Errorf("create user_roles table: %w", err)
	}
	return nil
}

// down_20240501000005 drops the user_roles table.
func down_20240501000005(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS user_roles`); err != nil {
		return fmt.Errorf("drop user_roles table: %w", err)
	}
	return nil
}
