package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CHECKOUT_DATABASE_URL", "postgres://localhost/checkout")
	t.Setenv("REDIS_URL", "")
	t.Setenv("PORT", "")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, 720*time.Hour, cfg.CartTTL)
	assert.Equal(t, 10*time.Second, cfg.PlacementTimeout)
	assert.Equal(t, "checkout.events", cfg.Kafka.Topic)
	assert.Equal(t, "AlmaStore", cfg.Settlement.Merchant)
	assert.Equal(t, 30, cfg.RateLimit.Max)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadConfig_EnvAndFlags(t *testing.T) {
	t.Setenv("CHECKOUT_DATABASE_URL", "postgres://localhost/checkout")
	t.Setenv("CHECKOUT_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := loadConfig([]string{"-redis-url=redis://cache:6379/0", "-placement-timeout=3s"})
	require.NoError(t, err)

	assert.Equal(t, "k1:9092,k2:9092", cfg.Kafka.Brokers)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
	assert.Equal(t, 3*time.Second, cfg.PlacementTimeout)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("REDIS_URL", "redis://platform:6379")
	t.Setenv("PORT", "9000")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "redis://platform:6379", cfg.RedisURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CHECKOUT_DATABASE_URL", "")

	_, err := loadConfig([]string{})
	require.ErrorContains(t, err, "database URL is required")

	t.Setenv("CHECKOUT_DATABASE_URL", "postgres://localhost/checkout")
	t.Setenv("CHECKOUT_RATE_LIMIT_MAX", "0")
	_, err = loadConfig([]string{})
	require.ErrorContains(t, err, "rate limit must be positive")
}
