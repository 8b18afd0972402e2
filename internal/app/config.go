package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the checkout server configuration, loadable from environment
// variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr             string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL      string        `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL         string        `usage:"Redis URL for carts; carts stay in memory when empty (CHECKOUT_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	CartTTL          time.Duration `default:"720h" usage:"Idle time after which a stored cart expires" flag:"cart-ttl"`
	PlacementTimeout time.Duration `default:"10s" usage:"Upper bound for one order placement" flag:"placement-timeout"`
	Kafka            KafkaConfig
	Settlement       SettlementConfig
	RateLimit        RateLimitConfig
	CORS             CORSConfig
	Graceful         GracefulConfig
}

// KafkaConfig controls checkout event publishing. Events are only logged
// when Brokers is empty.
type KafkaConfig struct {
	Brokers        string        `default:"" usage:"Comma separated Kafka brokers" flag:"kafka-brokers"`
	Topic          string        `default:"checkout.events" usage:"Topic for order and payment events" flag:"kafka-topic"`
	PublishTimeout time.Duration `default:"5s" usage:"Timeout for one event publish" flag:"kafka-publish-timeout"`
}

// SettlementConfig controls the payment simulator.
type SettlementConfig struct {
	Merchant      string        `default:"AlmaStore" usage:"Merchant name shown on QRIS payloads"`
	AccountHolder string        `default:"" usage:"Bank account holder shown for transfers"`
	Latency       time.Duration `default:"0s" usage:"Simulated gateway latency"`
}

// RateLimitConfig controls the per-user limiter on order placement and
// settlement.
type RateLimitConfig struct {
	Max    int           `default:"30" usage:"Max requests per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers for the web
// storefront.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from the environment, flags and YAML files.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
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

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	case c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0:
		return errors.Errorf("rate limit must be positive, got %d per %s", c.RateLimit.Max, c.RateLimit.Window)
	case c.CartTTL < 0:
		return errors.Errorf("cart TTL must not be negative, got %s", c.CartTTL)
	}
	return nil
}

// applyPlatformDefaults maps the unprefixed variables set by hosting
// platforms (DATABASE_URL, REDIS_URL, PORT) onto the configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
