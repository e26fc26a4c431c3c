package monitoring

import (
	"context"
	"time"

	"github.com/akeren/acs-site/config/router"
	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/pkg/circuitbreaker"
	"github.com/akeren/acs-site/pkg/ratelimit"
	"gorm.io/gorm"
)

type Cache interface {
	Ping(ctx context.Context) error
}

// RelayHealth reports the state of the email relay circuit.
type RelayHealth interface {
	RelayHealth() circuitbreaker.CircuitBreakerMetrics
}

type HealthStatus struct {
	Database int `json:"database"` // 1 = healthy, 0 = unhealthy/not configured
	Cache    int `json:"cache"`    // 1 = healthy, 0 = unhealthy/not configured
	// Relay is 1 unless the relay circuit is open.
	Relay      int                                   `json:"relay"`
	RelayState *circuitbreaker.CircuitBreakerMetrics `json:"relay_state,omitempty"`
	MailReady  bool                                  `json:"mail_configured"`
	Uptime     int                                   `json:"uptime"` // uptime in seconds
}

type MonitoringController struct {
	db         *gorm.DB
	logger     *log.Logger
	cache      Cache
	relay      RelayHealth
	mailReady  bool
	startTime  time.Time
	checkLimit time.Duration
}

func NewMonitoringController(db *gorm.DB, logger *log.Logger, cache Cache, relay RelayHealth, mailReady bool) *router.RESTController {
	ctrl := &MonitoringController{
		db:         db,
		logger:     logger,
		cache:      cache,
		relay:      relay,
		mailReady:  mailReady,
		startTime:  time.Now(),
		checkLimit: 3 * time.Second,
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {

			monitoringRateLimiter := createMonitoringRateLimiter(routerService)

			routerService.AddGetHandler(controller, monitoringRateLimiter, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})
		},
	)
}

func createMonitoringRateLimiter(routerService *router.RouterService) ratelimit.RateLimiter {

	const monitoringRequestsPerMinute = 10 // More restrictive than default 100

	config := &ratelimit.RateLimitConfig{
		Requests: monitoringRequestsPerMinute,
		Window:   time.Minute,
		Scope:    "monitoring",
	}

	return ratelimit.NewRateLimiter(config)
}

func (ctrl *MonitoringController) healthCheck(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Info("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.checkLimit)
	defer cancel()

	healthStatus := ctrl.performHealthChecks(ctx, logger)

	return router.OKResult(healthStatus, "acs-site health check completed")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Uptime:    int(time.Since(ctrl.startTime).Seconds()),
		MailReady: ctrl.mailReady,
	}

	checkDatabaseConnectivity(ctx, ctrl, &status, logger)

	checkCacheConnectivity(ctx, ctrl, &status, logger)

	checkRelayCircuit(ctrl, &status, logger)

	return status
}

func checkRelayCircuit(ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.relay == nil {
		status.Relay = 0
		logger.Info("Relay health not wired, relay check skipped")
		return
	}

	metrics := ctrl.relay.RelayHealth()
	status.RelayState = &metrics

	if metrics.State == circuitbreaker.Open {
		status.Relay = 0
		logger.Warn("Relay circuit is open", "failures", metrics.FailureCount)
		return
	}

	status.Relay = 1
}

func checkCacheConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.cache != nil {
		if ctrl.checkCache(ctx) {
			status.Cache = 1
			logger.Info("Cache health check passed")
		} else {
			status.Cache = 0
			logger.Error("Cache health check failed")
		}
	} else {
		status.Cache = 0 // Cache not configured
		logger.Info("Cache not configured, cache health check skipped")
	}
}

func checkDatabaseConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.db == nil {
		status.Database = 0
		logger.Info("Database not configured, database health check skipped")
		return
	}

	if ctrl.checkDatabase(ctx) {
		status.Database = 1
		logger.Info("Database health check passed")
	} else {
		status.Database = 0
		logger.Error("Database health check failed")
	}
}

func (ctrl *MonitoringController) checkDatabase(ctx context.Context) bool {
	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return false
	}

	return sqlDB.PingContext(ctx) == nil
}

func (ctrl *MonitoringController) checkCache(ctx context.Context) bool {
	return ctrl.cache.Ping(ctx) == nil
}
