package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "http://localhost:8081/api", cfg.Backend.URL)
		assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, SessionBackendMemory, cfg.Session.Backend)
		assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
		assert.False(t, cfg.CookieSecure)
		assert.Equal(t, 10, cfg.Redis.PoolSize)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("CONSOLE_ADDR", ":9090")
		t.Setenv("BACKEND_URL", "https://users.internal/api")
		t.Setenv("BACKEND_TIMEOUT", "3s")
		t.Setenv("SESSION_BACKEND", "redis")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("COOKIE_SECURE", "true")
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,172.16.0.0/12")

		cfg, err := FromEnv()
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, "https://users.internal/api", cfg.Backend.URL)
		assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, SessionBackendRedis, cfg.Session.Backend)
		assert.True(t, cfg.CookieSecure)
		assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.0/12"}, cfg.TrustedProxies)
	})

	t.Run("redis backend requires url", func(t *testing.T) {
		t.Setenv("SESSION_BACKEND", "redis")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_URL")
	})

	t.Run("unknown session backend", func(t *testing.T) {
		t.Setenv("SESSION_BACKEND", "cookie")

		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("relative backend url", func(t *testing.T) {
		t.Setenv("BACKEND_URL", "/api")

		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("BACKEND_TIMEOUT", "soon")

		_, err := FromEnv()
		require.Error(t, err)
	})
}
