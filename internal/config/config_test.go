package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("REGISTRY_OWNER_EMAIL", "Owner@Parking.test")
}

func TestLoadMemoryStore(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := Load()
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "owner@parking.test", cfg.OwnerEmail)
	assert.Empty(t, cfg.OwnerPassword)
	assert.Equal(t, "parking.events", cfg.EventsQueue)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.DB.Host)
}

func TestLoadMySQLStore(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "parking")
	t.Setenv("AMQP_URL", "amqp://guest:guest@mq:5672/")

	cfg := Load()
	require.Equal(t, StoreMySQL, cfg.StoreDriver)
	assert.Equal(t, "db", cfg.DB.Host)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.AMQPURL)
}

func TestLoadRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "2")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "500ms")
	t.Setenv("RATE_LIMIT_TTL", "1ms")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 2500*time.Millisecond, rl.TTL)
	assert.InDelta(t, 4.0, rl.PerSecond(), 1e-9)
}

func TestLoadCacheConfigDefaultsOff(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	assert.False(t, c.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
}

func TestRedisOptionsHostPort(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	opts := redisOptions()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Nil(t, opts.TLSConfig)
}
