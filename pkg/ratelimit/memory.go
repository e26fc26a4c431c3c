package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepEvery is how many calls pass between evictions of idle keys.
const sweepEvery = 1024

// InMemoryRateLimiter keeps one token bucket per key. Buckets start full, so
// a client may burst the whole allowance before being paced.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	calls    uint64
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		limiters: make(map[string]*keyedLimiter),
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) IsLimited(key string) (bool, error) {
	if key == "" {
		key = "__empty__"
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.limiters[key]
	if !ok {
		k = &keyedLimiter{limiter: rate.NewLimiter(r.refillRate(), r.requests)}
		r.limiters[key] = k
	}
	k.lastSeen = now

	r.calls++
	if r.calls%sweepEvery == 0 {
		r.sweepLocked(now)
	}

	return !k.limiter.AllowN(now, 1), nil
}

func (r *InMemoryRateLimiter) refillRate() rate.Limit {
	if r.window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(r.requests) / r.window.Seconds())
}

// sweepLocked drops buckets idle for two windows; they would be full again anyway.
func (r *InMemoryRateLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-2 * r.window)
	for key, k := range r.limiters {
		if k.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
		}
	}
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}
