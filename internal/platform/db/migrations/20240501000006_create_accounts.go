package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20240501000006, down_20240501000006)
}

// up_20240501000006 creates the accounts table.
func up_20240501000006(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			account_number VARCHAR(50) NOT NULL UNIQUE,
			account_holder_name VARCHAR(255) NOT NULL,
			balance NUMERIC(19,4) NOT NULL DEFAULT 0,
			currency CHAR(3) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

// down_20240501000006 drops the accounts table.
func down_20240501000006(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS accounts`); err != nil {
		return fmt.Errorf("drop accounts table: %w", err)
	}
	return nil
}
