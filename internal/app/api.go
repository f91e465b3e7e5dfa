package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/odyssey-bank/banking-api/internal/accounts"
	"github.com/odyssey-bank/banking-api/internal/auth"
	"github.com/odyssey-bank/banking-api/internal/observability"
	"github.com/odyssey-bank/banking-api/internal/rbac"
	"github.com/odyssey-bank/banking-api/internal/roles"
	"github.com/odyssey-bank/banking-api/internal/token"
	"github.com/odyssey-bank/banking-api/internal/users"
)

// NewAPI wires the services and handlers on top of the given stores.
func NewAPI(cfg *Config, logger *slog.Logger, stores *Stores, metrics *observability.Metrics) (http.Handler, error) {
	codec, err := token.NewCodec(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	logger.Info("token codec ready", slog.String("alg", codec.Algorithm()), slog.Duration("ttl", codec.TTL()))

	hasher := auth.BcryptHasher{Cost: cfg.BcryptCost}
	resolver := rbac.NewResolver(stores.RBAC)
	gate := rbac.NewGate(codec, resolver, rbac.NewEngine(nil), logger, rbac.WithObserver(metrics))

	authService := auth.NewService(stores.RBAC, hasher, codec)

	return NewRouter(RouterParams{
		Logger:             logger,
		Config:             cfg,
		Gate:               gate,
		Health:             stores.RBAC,
		AuthHandler:        auth.NewHandler(logger, authService),
		AccountsHandler:    accounts.NewHandler(logger, accounts.NewService(stores.Accounts)),
		UsersHandler:       users.NewHandler(logger, users.NewService(stores.RBAC, hasher)),
		RolesHandler:       roles.NewHandler(logger, roles.NewService(stores.RBAC)),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, stores.RBAC),
		Metrics:            metrics,
	}), nil
}
