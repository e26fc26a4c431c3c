package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// redisCallTimeout bounds how long a request may wait on the limiter.
const redisCallTimeout = 250 * time.Millisecond

// slidingWindow trims entries older than the window, then admits the request
// only while the remaining count is under the limit. Scores are milliseconds.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

if redis.call('ZCARD', key) >= limit then
	return 1
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window * 2)
return 0
`)

// RedisRateLimiter shares a sliding window between every instance behind the
// same Redis.
type RedisRateLimiter struct {
	client    *redis.Client
	requests  int
	window    time.Duration
	keyPrefix string
	logger    Logger
}

func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, logger Logger) *RedisRateLimiter {
	return newRedisRateLimiter(client, requests, window, "", logger)
}

// newRedisRateLimiter namespaces keys per scope so limiters sharing one Redis
// do not count each other's requests.
func newRedisRateLimiter(client *redis.Client, requests int, window time.Duration, scope string, logger Logger) *RedisRateLimiter {
	prefix := "ratelimit:"
	if scope != "" {
		prefix += scope + ":"
	}

	return &RedisRateLimiter{
		client:    client,
		requests:  requests,
		window:    window,
		keyPrefix: prefix,
		logger:    logger,
	}
}

func (r *RedisRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *RedisRateLimiter) key(key string) string {
	if strings.HasPrefix(key, r.keyPrefix) {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisRateLimiter) IsLimited(key string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()

	fullKey := r.key(key)
	result, err := slidingWindow.Run(ctx, r.client, []string{fullKey},
		time.Now().UnixMilli(),
		r.window.Milliseconds(),
		r.requests,
		uuid.NewString(),
	).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis rate limit script execution failed", "key", fullKey, "error", err)
		}
		// The caller decides whether to fail open.
		return false, fmt.Errorf("rate limiter Redis error: %w", err)
	}

	return result == 1, nil
}

// The Redis client is owned by the ApplicationConfig and closed there.
func (r *RedisRateLimiter) Close() error {
	return nil
}
