package config

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/pkg/memcache"
	pkgredis "github.com/akeren/acs-site/pkg/redis"
	"github.com/akeren/acs-site/pkg/retry"
	"github.com/caarlos0/env/v11"
	"github.com/go-redis/redis/v8"
)

// Cache backs idempotency keys and, when Redis, the shared rate limit windows.
type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	// Set uses ttl=0 for no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// RedisClientProvider is implemented by caches that can hand their client to
// the Redis rate limiter.
type RedisClientProvider interface {
	GetClient() *redis.Client
}

var ErrCacheNotConfigured = errors.New("cache host is not configured")

type CacheConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	// ConnectAttempts bounds the startup retries before falling back.
	ConnectAttempts int `env:"REDIS_CONNECT_ATTEMPTS" envDefault:"3"`
}

// NewCacheConfig reads REDIS_*; a malformed value is logged by the caller's
// fallback path as "not configured" rather than aborting startup.
func NewCacheConfig() *CacheConfig {
	cfg := &CacheConfig{}
	if err := env.Parse(cfg); err != nil {
		return &CacheConfig{}
	}
	if cfg.DB < 0 {
		cfg.DB = 0
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 1
	}
	return cfg
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.Host != ""
}

func (cc *CacheConfig) NewCache(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	var cache *pkgredis.RedisCache
	err := retry.NewExponentialBackoff(&retry.Config{
		MaxAttempts: cc.ConnectAttempts,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2.0,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logger.Warn("Redis not reachable yet", "attempt", attempt, "retry_in", wait.String(), "error", err)
		},
	}).Execute(func() error {
		var connErr error
		cache, connErr = pkgredis.NewRedisCache(&pkgredis.Config{
			Host:     cc.Host,
			Port:     cc.Port,
			Password: cc.Password,
			DB:       cc.DB,
		})
		return connErr
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Cache (Redis) connected", "host", cc.Host, "port", cc.Port, "db", cc.DB)
	return cache, nil
}

// NewCacheOrInMemory never returns nil: without Redis, idempotency keys live
// in process memory and are lost on restart.
func (cc *CacheConfig) NewCacheOrInMemory(logger *log.Logger) Cache {
	if cc.IsConfigured() {
		cache, err := cc.NewCache(logger)
		if err == nil {
			return cache
		}
		logger.Error("Failed to connect to Redis; falling back to in-memory cache", "error", err)
	} else {
		logger.Info("REDIS_HOST not set; using in-memory cache")
	}

	logger.Warn("Idempotency keys and rate limits are not shared across instances")
	return memcache.New()
}

func CloseCache(cache Cache, logger *log.Logger) error {
	if cache == nil {
		return nil
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close cache", "error", err)
		return err
	}

	logger.Info("Cache connection closed")
	return nil
}
