package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
	"syscall"
	"time"
)

// Policy retries startup-time dials (database, Redis). The contact relay
// never retries a send.
type Policy interface {
	Execute(func() error) error
	ExecuteContext(ctx context.Context, fn func(context.Context) error) error
}

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Multiplier of 1 gives a fixed delay.
	Multiplier float64
	// Retryable defaults to IsTransient.
	Retryable func(error) bool
	// OnRetry, when set, is told about each failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultConfig returns conservative defaults for backoff retries.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

type Backoff struct {
	config Config
}

// NewExponentialBackoff applies defaults when config is nil.
func NewExponentialBackoff(config *Config) *Backoff {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.Retryable == nil {
		cfg.Retryable = IsTransient
	}
	return &Backoff{config: cfg}
}

// NewFixedDelay waits BaseDelay between every attempt.
func NewFixedDelay(config *Config) *Backoff {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	cfg.Multiplier = 1
	return NewExponentialBackoff(&cfg)
}

func (b *Backoff) Execute(fn func() error) error {
	return b.ExecuteContext(context.Background(), func(context.Context) error { return fn() })
}

// ExecuteContext stops waiting between attempts as soon as ctx is done.
func (b *Backoff) ExecuteContext(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= b.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == b.config.MaxAttempts {
			break
		}
		if !b.config.Retryable(err) {
			return err
		}

		wait := b.delay(attempt)
		if b.config.OnRetry != nil {
			b.config.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &MaxRetriesExceededError{
		LastError:   lastErr,
		MaxAttempts: b.config.MaxAttempts,
	}
}

func (b *Backoff) delay(attempt int) time.Duration {
	delay := float64(b.config.BaseDelay) * math.Pow(b.config.Multiplier, float64(attempt-1))
	if b.config.MaxDelay > 0 && delay > float64(b.config.MaxDelay) {
		delay = float64(b.config.MaxDelay)
	}
	return time.Duration(delay)
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"no such host",
	"broken pipe",
	"the database system is starting up",
}

// IsTransient recognises network failures worth another attempt. Drivers that
// flatten errors into strings are matched by message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && (dnsErr.IsTemporary || dnsErr.IsNotFound) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// MaxRetriesExceededError indicates that all retry attempts were exhausted.
type MaxRetriesExceededError struct {
	LastError   error
	MaxAttempts int
}

func (e *MaxRetriesExceededError) Error() string {
	return "max retries exceeded: " + e.LastError.Error()
}

func (e *MaxRetriesExceededError) Unwrap() error {
	return e.LastError
}

// IsMaxRetriesExceeded reports whether err is a MaxRetriesExceededError.
func IsMaxRetriesExceeded(err error) bool {
	var maxRetriesErr *MaxRetriesExceededError
	return errors.As(err, &maxRetriesErr)
}
