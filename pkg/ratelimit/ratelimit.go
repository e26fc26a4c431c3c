package ratelimit

import (
	"time"

	"github.com/go-redis/redis/v8"
)

type Logger interface {
	Error(msg string, args ...interface{})
}

// RateLimiter counts requests per key, usually the client IP.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(key string) (bool, error)
	Close() error
}

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Scope    string        // Optional key namespace, e.g. "contact-api"
	Redis    *redis.Client // Optional, if nil uses in-memory
	Logger   Logger        // Optional logger for Redis operations
}

// NewRateLimiter shares counts across instances through Redis when a client
// is given, and keeps them in process otherwise.
func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis != nil {
		return newRedisRateLimiter(config.Redis, config.Requests, config.Window, config.Scope, config.Logger)
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window)
}
