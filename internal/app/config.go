package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const (
	envPrefix      = "CATALOG"
	defaultAddr    = "0.0.0.0:8080"
	defaultBaseURL = "http://localhost:5002"
	defaultPath    = "products"
)

// Config holds the complete application configuration, loadable from
// environment variables (CATALOG_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	Backend   BackendConfig
	Stream    StreamConfig
	Health    HealthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// BackendConfig locates the external product API. Its flags carry the
// parent prefix, e.g. -backend.api-base-url.
type BackendConfig struct {
	BaseURL      string        `default:"http://localhost:5002" usage:"Product API base URL (CATALOG_BACKEND_BASE_URL or API_BASE_URL)" flag:"api-base-url"`
	ProductsPath string        `default:"products" usage:"Product collection path (CATALOG_BACKEND_PRODUCTS_PATH or API_PRODUCTS_PATH)" flag:"api-products-path"`
	SecretKey    string        `usage:"Bearer credential sent to the product API (CATALOG_BACKEND_SECRET_KEY or API_SECRET_KEY)" flag:"api-secret-key"`
	Timeout      time.Duration `default:"30s" usage:"Timeout of a single product API call" flag:"api-timeout"`
}

// StreamConfig tunes the change stream.
type StreamConfig struct {
	Buffer    int           `default:"16" usage:"Buffered invalidation events per subscriber"`
	Heartbeat time.Duration `default:"15s" usage:"Keep-alive interval of the change stream"`
}

// HealthConfig controls background health checks.
type HealthConfig struct {
	Interval   time.Duration `default:"10s" usage:"Interval between health checks" flag:"health-interval"`
	Goroutines int           `default:"10000" usage:"Liveness goroutine limit" flag:"health-goroutines"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and the given command-line args, then applies platform fallbacks.
func LoadConfig(args []string) (*Config, error) {
	if args == nil {
		args = []string{}
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: envPrefix,
		Args:      args,
		Files:     []string{"config.yaml", "/etc/catalog/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the unprefixed variable names used by the
// editor's deployment (API_BASE_URL and friends) and PORT from hosting
// platforms. Prefixed variables always win.
func (c *Config) applyPlatformDefaults() {
	fallback := func(dst *string, prefixed, plain, def string) {
		if _, ok := os.LookupEnv(prefixed); ok || *dst != def {
			return
		}
		if v := os.Getenv(plain); v != "" {
			*dst = v
		}
	}
	fallback(&c.Backend.BaseURL, envPrefix+"_BACKEND_BASE_URL", "API_BASE_URL", defaultBaseURL)
	fallback(&c.Backend.ProductsPath, envPrefix+"_BACKEND_PRODUCTS_PATH", "API_PRODUCTS_PATH", defaultPath)
	fallback(&c.Backend.SecretKey, envPrefix+"_BACKEND_SECRET_KEY", "API_SECRET_KEY", "")

	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("product API base URL is required: set CATALOG_BACKEND_BASE_URL or API_BASE_URL")
	}
	if c.Backend.Timeout <= 0 {
		return errors.Errorf("backend timeout must be positive, got %s", c.Backend.Timeout)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}
