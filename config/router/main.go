package router

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/pkg/ratelimit"
	"github.com/akeren/acs-site/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	// DefaultTimeoutDuration is the default request timeout
	DefaultTimeoutDuration = 30 * time.Second

	// writeTimeoutMargin leaves room to write the handler's own timeout
	// response after the request deadline fires.
	writeTimeoutMargin = 5 * time.Second

	// DefaultMaxBodyBytes comfortably fits the largest contact submission.
	DefaultMaxBodyBytes int64 = 64 << 10
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RouterService struct {
	engine          *gin.Engine
	server          *http.Server
	logger          *log.Logger
	rateLimiter     ratelimit.RateLimiter
	redisClient     *redis.Client
	config          RouterConfig
	metricsRegistry *prometheus.Registry
	notFoundPage    NotFoundPageFunc

	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.RateLimiter
}

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration

	// MaxBodyBytes defaults to MAX_REQUEST_BODY_BYTES, then DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// AllowedOrigins defaults to CORS_ALLOWED_ORIGIN. Empty denies cross-origin calls.
	AllowedOrigins []string
	// TrustedProxies defaults to TRUSTED_PROXIES. Empty means ClientIP is RemoteAddr.
	TrustedProxies []string
	// TracingService names spans from the otelgin middleware. Empty disables it.
	TracingService string
}

func (cfg RouterConfig) withDefaults() RouterConfig {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultTimeoutDuration
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = utils.GetEnvInt64OrDefault("MAX_REQUEST_BODY_BYTES", DefaultMaxBodyBytes)
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = utils.GetEnvListOrDefault("CORS_ALLOWED_ORIGIN", nil)
	}
	if cfg.TrustedProxies == nil {
		cfg.TrustedProxies = parseTrustedProxies(utils.GetEnvListOrDefault("TRUSTED_PROXIES", nil))
	}
	return cfg
}

// parseTrustedProxies expands "*" to every address, an escape hatch for local setups.
func parseTrustedProxies(proxies []string) []string {
	if len(proxies) == 1 && proxies[0] == "*" {
		return []string{"0.0.0.0/0", "::/0"}
	}
	return proxies
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	if mode, ok := os.LookupEnv("GIN_MODE"); ok && mode != "" {
		logger.Info("Setting Gin mode", "mode", mode)
		gin.SetMode(mode)
	}

	cfg := RouterConfig{}
	if routerConfig != nil {
		cfg = *routerConfig
	}
	cfg = cfg.withDefaults()

	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery())

	if cfg.TracingService != "" {
		ginRouter.Use(otelgin.Middleware(cfg.TracingService))
		logger.Info("Tracing middleware enabled", "service", cfg.TracingService)
	}

	// Gin trusts every proxy by default, which would let X-Forwarded-For pick
	// the rate limit key.
	if err := ginRouter.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Error("Invalid TRUSTED_PROXIES; disabling trusted proxies", "error", err)
		_ = ginRouter.SetTrustedProxies(nil)
	} else if cfg.TrustedProxies == nil {
		logger.Info("Trusted proxies disabled (TRUSTED_PROXIES not set)")
	}

	var redisClient *redis.Client
	if provider, ok := cache.(RedisClientProvider); ok {
		redisClient = provider.GetClient()
	}

	rs := &RouterService{
		engine:      ginRouter,
		logger:      logger,
		redisClient: redisClient,
		config:      cfg,

		rateLimitOverrides:     make(map[string]ratelimit.RateLimiter),
		handlerToControllerMap: make(map[string]*RESTController),
	}

	rs.initRateLimiting()

	// Observability (opt-out): /metrics
	rs.mountMetrics()

	ginRouter.Use(rs.securityHeadersMiddleware())
	ginRouter.Use(rs.maxBodySizeMiddleware())
	ginRouter.Use(rs.corsMiddleware())
	ginRouter.Use(rs.correlationIDMiddleware())
	ginRouter.Use(rs.loggerInjectionMiddleware())
	ginRouter.Use(rs.rateLimitMiddleware())
	ginRouter.Use(rs.timeoutMiddleware())
	ginRouter.Use(rs.requestLoggingMiddleware())

	ginRouter.HandleMethodNotAllowed = true
	ginRouter.RedirectTrailingSlash = true

	ginRouter.NoRoute(rs.notFound)

	ginRouter.NoMethod(func(c *gin.Context) {
		GetLogger(c).Warn("Method not allowed", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, ErrorResult(http.StatusMethodNotAllowed, "Method not allowed", nil).ToJSON())
	})

	rs.server = &http.Server{
		Addr:    ":8080", // Default, will be overridden in RunHTTPServer
		Handler: ginRouter,

		// Gin's Context is not goroutine-safe, so request time limits are
		// enforced here rather than by running handlers in a goroutine.
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + writeTimeoutMargin,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized",
		"max_body_bytes", cfg.MaxBodyBytes,
		"cors_origins", len(cfg.AllowedOrigins),
	)
	return rs
}

func (routerService *RouterService) initRateLimiting() {
	redisClient := routerService.redisClient

	if redisClient != nil {
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			routerService.logger.Warn("Failed to connect to Redis for rate limiting, falling back to in-memory", "error", err)
			redisClient = nil
		}
	}

	routerService.rateLimiter = ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: routerService.config.RateLimitRequests,
		Window:   routerService.config.RateLimitWindow,
		Redis:    redisClient,
		Logger:   routerService.logger,
	})

	backend := "in-memory"
	if redisClient != nil {
		backend = "redis"
	}
	routerService.logger.Info("Rate limiting initialized",
		"backend", backend,
		"requests", routerService.config.RateLimitRequests,
		"window", routerService.config.RateLimitWindow,
	)
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return routerService.logger.WithCorrelationID(c.Request.Context())
}

func (routerService *RouterService) Cleanup() {
	if routerService.rateLimiter != nil {
		if err := routerService.rateLimiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"handlers", controller.handlerCount,
	)
}

func (routerService *RouterService) RunHTTPServer() error {
	addr := ":" + utils.GetEnvTrimmedOrDefault("APP_PORT", "8080")
	routerService.server.Addr = addr

	routerService.logger.Info("Starting HTTP server", "addr", addr)

	if err := routerService.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		routerService.logger.Error("Failed to start HTTP server", "error", err)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully...")
	return routerService.server.Shutdown(ctx)
}
