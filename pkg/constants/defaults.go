package constants

import "time"

// RFC3339DateTimeFormat is used for every timestamp the API returns.
const RFC3339DateTimeFormat = time.RFC3339

// Site-wide request limits, applied per client IP.
const (
	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = time.Minute
	DefaultRequestTimeout    = 30 * time.Second
)

// Contact relay defaults. The endpoint sends real email, so it is limited far
// below page traffic.
const (
	DefaultContactRateLimitRequests = 5
	DefaultContactRateLimitWindow   = time.Minute
	DefaultContactIdempotencyTTL    = 24 * time.Hour
	DefaultMailSendTimeout          = 30 * time.Second
)
