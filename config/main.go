package config

import (
	"context"
	"time"

	"github.com/akeren/acs-site/config/router"
	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/internal/models"
	"github.com/akeren/acs-site/pkg/constants"
	"github.com/akeren/acs-site/pkg/factory"
	"github.com/akeren/acs-site/pkg/mailer"
	"github.com/caarlos0/env/v11"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	// DB is nil when no database is configured.
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	Mail            *MailConfig
	Relay           mailer.Relay
	Factories       *factory.FactoryContainer
	TracingShutdown func(context.Context) error
}

// AppConfig holds the site-wide HTTP limits. Invalid or non-positive values
// fall back to the defaults in pkg/constants.
type AppConfig struct {
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"`
}

func NewAppConfig() *AppConfig {
	config := &AppConfig{}
	if err := env.Parse(config); err != nil {
		config = &AppConfig{}
	}

	if config.RateLimitRequests <= 0 {
		config.RateLimitRequests = constants.DefaultRateLimitRequests
	}
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = constants.DefaultRateLimitWindow
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = constants.DefaultRequestTimeout
	}
	return config
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.Relay != nil {
		if err := ac.Relay.Close(); err != nil {
			ac.Logger.Error("Failed to close email relay", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingCfg, err := LoadTracingConfig()
	if err != nil {
		return nil, err
	}
	tracingShutdown, err := SetupTracing(logger, tracingCfg)
	if err != nil {
		return nil, err
	}

	db, err := NewDatabaseOrNil(logger, NewDBConfigFromEnv())
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if db == nil {
			logger.Warn("--auto-migrate requested but no database is configured; skipping")
		} else if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	mailCfg, relay, err := SetupMail(logger)
	if err != nil {
		return nil, err
	}

	appConfig := NewAppConfig()
	cache := NewCacheConfig().NewCacheOrInMemory(logger)

	factories := factory.NewFactoryContainer(&factory.RateLimitConfig{
		Requests: appConfig.RateLimitRequests,
		Window:   appConfig.RateLimitWindow,
		Logger:   logger,
	}, cache, mailCfg.RelayConfig())

	routerService := router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
		TracingService:    tracingCfg.MiddlewareServiceName(),
	})

	logger.Info("Application configuration loaded successfully")

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Config:          appConfig,
		Mail:            mailCfg,
		Relay:           relay,
		Factories:       factories,
		TracingShutdown: tracingShutdown,
	}, nil
}
