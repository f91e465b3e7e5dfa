package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-bank/banking-api/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.fail(w, "login", req.Username, err)
		return
	}
	h.logger.Info("login succeeded", slog.String("username", resp.Username))
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.fail(w, "register", req.Username, err)
		return
	}
	h.logger.Info("user registered", slog.String("username", resp.Username), slog.Any("roles", resp.Roles))
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) fail(w http.ResponseWriter, op, username string, err error) {
	if httpx.StatusOf(err) == http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.String("username", username), slog.Any("error", err))
	} else {
		h.logger.Warn(op+" rejected", slog.String("username", username), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
