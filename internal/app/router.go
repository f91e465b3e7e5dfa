package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-bank/banking-api/internal/accounts"
	"github.com/odyssey-bank/banking-api/internal/auth"
	"github.com/odyssey-bank/banking-api/internal/observability"
	"github.com/odyssey-bank/banking-api/internal/platform/httpx"
	"github.com/odyssey-bank/banking-api/internal/rbac"
	"github.com/odyssey-bank/banking-api/internal/roles"
	"github.com/odyssey-bank/banking-api/internal/users"
)

// Pinger reports backing store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Gate               *rbac.Gate
	Health             Pinger
	AuthHandler        *auth.Handler
	AccountsHandler    *accounts.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router. Everything except /healthz passes
// through the access gate.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.With(params.Gate.Middleware).Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	api := chi.NewRouter()
	api.Use(params.Gate.Middleware)
	api.Route("/auth", func(r chi.Router) {
		r.Use(LoginLimiter(params.Config))
		params.AuthHandler.MountRoutes(r)
	})
	if params.AccountsHandler != nil {
		api.Route("/accounts", params.AccountsHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		api.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.RolesHandler != nil {
		api.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		api.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	api.NotFound(notFound)
	api.MethodNotAllowed(methodNotAllowed)
	r.Mount("/api", api)

	console := chi.NewRouter()
	console.Use(params.Gate.Middleware)
	console.Get("/health", consoleHealth(params.Health, params.Logger))
	console.NotFound(notFound)
	r.Mount("/console", console)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	return r
}

type consoleHealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func consoleHealth(store Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			httpx.JSON(w, http.StatusOK, consoleHealthResponse{Status: "UP", Store: "UNKNOWN"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			logger.Error("store health check failed", slog.Any("error", err))
			httpx.JSON(w, http.StatusServiceUnavailable, consoleHealthResponse{Status: "DOWN", Store: "DOWN"})
			return
		}
		httpx.JSON(w, http.StatusOK, consoleHealthResponse{Status: "UP", Store: "UP"})
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httpx.Problem(w, http.StatusNotFound, "Not Found", "resource not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "method not allowed")
}
