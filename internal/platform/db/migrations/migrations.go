// Package migrations holds the versioned Postgres schema. Each file registers
// one step; the version is the numeric prefix of its file name.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry consumed by migrate.NewMigrator.
var Migrations = migrate.NewMigrations()
