package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-bank/banking-api/internal/accounts"
	"github.com/odyssey-bank/banking-api/internal/observability"
	"github.com/odyssey-bank/banking-api/internal/platform/db"
	"github.com/odyssey-bank/banking-api/internal/rbac"
)

// Stores bundles the persistence backends selected by STORE_DRIVER.
type Stores struct {
	Driver   string
	RBAC     rbac.Store
	Accounts accounts.Repository
	close    func()
}

// Close releases the underlying connections.
func (s *Stores) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// OpenStores connects the configured backend and applies migrations.
func OpenStores(ctx context.Context, cfg *Config, logger *slog.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &Stores{
			Driver:   StoreDriverMemory,
			RBAC:     rbac.NewMemoryStore(),
			Accounts: accounts.NewMemoryRepository(),
		}, nil
	case StoreDriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, err
		}
		report, err := db.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if len(report.Applied) > 0 {
			logger.Info("schema migrated", slog.Int64("group", report.GroupID), slog.Any("applied", report.Applied))
		}
		return &Stores{
			Driver:   StoreDriverPostgres,
			RBAC:     rbac.NewPGStore(pool),
			Accounts: accounts.NewRepository(pool),
			close:    pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// Bootstrap seeds the built-in permissions and roles.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, store rbac.Store, metrics *observability.Metrics) (rbac.SeedReport, error) {
	report, err := rbac.NewSeeder(store, cfg.ChangeDetection(), logger).Run(ctx)
	if err != nil {
		return report, fmt.Errorf("bootstrap rbac: %w", err)
	}
	metrics.ObserveSeed("permissions_created", report.PermissionsCreated)
	metrics.ObserveSeed("roles_created", report.RolesCreated)
	metrics.ObserveSeed("roles_updated", report.RolesUpdated)
	return report, nil
}
