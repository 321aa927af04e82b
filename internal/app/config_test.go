package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"API_BASE_URL", "API_PRODUCTS_PATH", "API_SECRET_KEY", "PORT"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "http://localhost:5002", cfg.Backend.BaseURL)
	assert.Equal(t, "products", cfg.Backend.ProductsPath)
	assert.Empty(t, cfg.Backend.SecretKey)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 15*time.Second, cfg.Stream.Heartbeat)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
}

func TestLoadConfig_PlatformFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "https://products.internal:5002")
	t.Setenv("API_PRODUCTS_PATH", "items")
	t.Setenv("API_SECRET_KEY", "s3cret")
	t.Setenv("PORT", "9000")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "https://products.internal:5002", cfg.Backend.BaseURL)
	assert.Equal(t, "items", cfg.Backend.ProductsPath)
	assert.Equal(t, "s3cret", cfg.Backend.SecretKey)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_PrefixedWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "https://fallback.example.com")
	t.Setenv("CATALOG_BACKEND_BASE_URL", "https://primary.example.com")
	t.Setenv("CATALOG_ADDR", "127.0.0.1:7000")
	t.Setenv("PORT", "9000")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "https://primary.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestLoadConfig_Flags(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig([]string{"-addr=127.0.0.1:9999"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
}

func TestLoadConfig_NestedFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "https://fallback.example.com")

	cfg, err := LoadConfig([]string{
		"-backend.api-base-url=https://flag.example.com",
		"-backend.api-products-path=items",
		"-backend.api-timeout=5s",
		"-health.health-interval=2s",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "items", cfg.Backend.ProductsPath)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Health.Interval)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "zero timeout", env: map[string]string{"CATALOG_BACKEND_TIMEOUT": "0s"}},
		{name: "zero rate limit", env: map[string]string{"CATALOG_RATE_LIMIT_MAX": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(nil)
			require.Error(t, err)
		})
	}
}
