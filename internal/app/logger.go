package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{AddSource: true}))
}

// WarnInsecureDefaults logs configuration that is only acceptable in development.
func WarnInsecureDefaults(cfg *Config, logger *slog.Logger) {
	if cfg.UsesDefaultSecret() {
		logger.Warn("using built-in JWT secret; set JWT_SECRET before deploying",
			slog.String("env", cfg.AppEnv))
	}
}
