package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"Storefront listen address"`
	Catalog   CatalogConfig
	Session   SessionConfig
	Notice    NoticeConfig
	RateLimit RateLimitConfig
	Graceful  GracefulConfig
}

// CatalogConfig points the storefront at the remote product catalog.
type CatalogConfig struct {
	URL     string        `default:"http://localhost:5000/api" usage:"Catalog API base URL; products are read from <url>/products" flag:"catalog-url"`
	Timeout time.Duration `default:"0s" usage:"Catalog request timeout (0 = request context only)" flag:"catalog-timeout"`
}

// SessionConfig controls the visitor session cookie and idle eviction.
type SessionConfig struct {
	Cookie  string        `default:"storefront_session" usage:"Session cookie name"`
	IdleTTL time.Duration `default:"24h" usage:"Evict sessions idle for longer than this" flag:"session-idle-ttl"`
	Secure  bool          `default:"false" usage:"Mark the session cookie Secure" flag:"session-secure"`
}

// NoticeConfig controls toast notifications.
type NoticeConfig struct {
	TTL time.Duration `default:"2s" usage:"How long a notice stays on screen" flag:"notice-ttl"`
}

// RateLimitConfig controls the per-session sliding window limiter applied to
// cart mutations.
type RateLimitConfig struct {
	Max    int           `default:"60" usage:"Max cart additions per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from command-line args, environment
// variables and YAML config files, then applies platform-specific defaults.
// A nil args slice disables flag parsing.
func LoadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		SkipFlags: args == nil,
		Args:      args,
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
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

// applyPlatformDefaults honours the PORT variable set by hosting platforms
// (Railway, Render, etc.) when no explicit address is configured.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch {
	case c.Catalog.URL == "":
		return errors.New("catalog URL is required: set SHOP_CATALOG_URL")
	case c.RateLimit.Max <= 0:
		return errors.Errorf("rate limit max must be positive, got %d", c.RateLimit.Max)
	case c.RateLimit.Window <= 0:
		return errors.Errorf("rate limit window must be positive, got %s", c.RateLimit.Window)
	}
	return nil
}
