package factory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/acs-site/pkg/mailer"
	"github.com/akeren/acs-site/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   ratelimit.Logger
}

type RateLimiterFactory interface {
	CreateRateLimiter() ratelimit.RateLimiter
	// CreateScopedRateLimiter builds a limiter whose Redis keys do not collide with the default one.
	CreateScopedRateLimiter(scope string, requests int, window time.Duration) ratelimit.RateLimiter
}

type DefaultRateLimiterFactory struct {
	config *ratelimit.RateLimitConfig
}

func NewDefaultRateLimiterFactory(requests int, window time.Duration, cache Cache, logger ratelimit.Logger) *DefaultRateLimiterFactory {

	var redisClient *redis.Client
	if cache != nil {
		if provider, ok := cache.(RedisClientProvider); ok {
			redisClient = provider.GetClient()
		}
	}

	return &DefaultRateLimiterFactory{
		config: &ratelimit.RateLimitConfig{
			Requests: requests,
			Window:   window,
			Redis:    redisClient,
			Logger:   logger,
		},
	}
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter() ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(f.config)
}

func (f *DefaultRateLimiterFactory) CreateScopedRateLimiter(scope string, requests int, window time.Duration) ratelimit.RateLimiter {
	cfg := *f.config
	cfg.Scope = scope
	if requests > 0 {
		cfg.Requests = requests
	}
	if window > 0 {
		cfg.Window = window
	}
	return ratelimit.NewRateLimiter(&cfg)
}

const (
	RelayProviderSMTP    = "smtp"
	RelayProviderMailgun = "mailgun"
)

type RelayConfig struct {
	Provider string
	SMTP     mailer.SMTPConfig
	Mailgun  mailer.MailgunConfig
}

type RelayFactory interface {
	CreateRelay() (mailer.Relay, error)
}

type DefaultRelayFactory struct {
	config RelayConfig
}

func NewDefaultRelayFactory(config RelayConfig) *DefaultRelayFactory {
	return &DefaultRelayFactory{config: config}
}

func (f *DefaultRelayFactory) CreateRelay() (mailer.Relay, error) {
	switch strings.ToLower(strings.TrimSpace(f.config.Provider)) {
	case "", RelayProviderSMTP:
		return mailer.NewSMTPRelay(f.config.SMTP), nil
	case RelayProviderMailgun:
		return mailer.NewMailgunRelay(f.config.Mailgun), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider %q (allowed: smtp, mailgun)", f.config.Provider)
	}
}

type FactoryContainer struct {
	RateLimiterFactory RateLimiterFactory
	RelayFactory       RelayFactory
}

func NewFactoryContainer(rateLimitConfig *RateLimitConfig, cache Cache, relayConfig RelayConfig) *FactoryContainer {
	rateLimiterFactory := NewDefaultRateLimiterFactory(rateLimitConfig.Requests, rateLimitConfig.Window, cache, rateLimitConfig.Logger)

	return &FactoryContainer{
		RateLimiterFactory: rateLimiterFactory,
		RelayFactory:       NewDefaultRelayFactory(relayConfig),
	}
}
