package app

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-bank/banking-api/internal/rbac"
	_ "github.com/odyssey-bank/banking-api/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "memory")
	unsetEnv(t, "JWT_SECRET", "JWT_EXPIRATION_MS", "BCRYPT_COST", "SEED_CHANGE_DETECTION",
		"RATE_LIMIT_PER_MINUTE", "LOGIN_RATE_LIMIT_PER_MINUTE")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultJWTSecret, cfg.JWTSecret)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, rbac.DetectBySet, cfg.ChangeDetection())
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.LoginRateLimitPerMinute)
}

func TestLoadConfigRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "memory")
	unsetEnv(t, "JWT_SECRET", "JWT_EXPIRATION_MS", "BCRYPT_COST", "SEED_CHANGE_DETECTION")

	_, err := LoadConfig()
	require.ErrorIs(t, err, ErrDefaultSecret)

	t.Setenv("JWT_SECRET", "a-production-secret-that-is-long-enough-for-hmac")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.UsesDefaultSecret())
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			AppEnv:              "development",
			StoreDriver:         StoreDriverMemory,
			JWTSecret:           DefaultJWTSecret,
			JWTExpirationMS:     1000,
			BcryptCost:          10,
			SeedChangeDetection: "size",
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, rbac.DetectBySize, cfg.ChangeDetection())

	cases := map[string]func(*Config){
		"unknown driver":      func(c *Config) { c.StoreDriver = "mongo" },
		"empty secret":        func(c *Config) { c.JWTSecret = "" },
		"zero expiration":     func(c *Config) { c.JWTExpirationMS = 0 },
		"negative expiration": func(c *Config) { c.JWTExpirationMS = -5 },
		"bcrypt cost too low": func(c *Config) { c.BcryptCost = 1 },
		"unknown detection":   func(c *Config) { c.SeedChangeDetection = "hash" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// unsetEnv clears keys for the duration of the test so envconfig defaults apply.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}
