package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/acs-site/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsPath      = "/metrics"
	metricsNamespace = "acs_site"
)

// httpMetrics labels by route template, never the raw path, so unknown
// URLs collapse into one "unmatched" series.
type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	factory := promauto.With(reg)
	labels := []string{"method", "route", "surface", "status"}

	return &httpMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route template and status.",
		}, labels),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, labels),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
	}
}

// surfaceOf groups routes into the parts of the site they belong to.
func surfaceOf(route string) string {
	switch {
	case route == "":
		return "unmatched"
	case strings.HasPrefix(route, "/api/"):
		return "api"
	case strings.HasPrefix(route, "/static/"):
		return "asset"
	case route == "/health" || route == metricsPath:
		return "ops"
	default:
		return "page"
	}
}

func (m *httpMetrics) middleware(c *gin.Context) {
	if c.Request.URL.Path == metricsPath {
		c.Next()
		return
	}

	m.inFlight.Inc()
	start := time.Now()
	c.Next()
	m.inFlight.Dec()

	route := c.FullPath()
	surface := surfaceOf(route)
	if route == "" {
		route = "unmatched"
	}

	status := strconv.Itoa(c.Writer.Status())
	m.requests.WithLabelValues(c.Request.Method, route, surface, status).Inc()
	m.duration.WithLabelValues(c.Request.Method, route, surface, status).Observe(time.Since(start).Seconds())
}

func (routerService *RouterService) mountMetrics() {
	if !utils.GetEnvBoolOrDefault("METRICS_ENABLED", true) {
		routerService.logger.Info("Metrics disabled (METRICS_ENABLED=false)")
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	routerService.metricsRegistry = reg

	routerService.engine.Use(newHTTPMetrics(reg).middleware)
	routerService.engine.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	// Scrapers never preflight; answer without CORS headers.
	routerService.engine.OPTIONS(metricsPath, func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNoContent)
	})

	routerService.logger.Info("Metrics endpoint mounted", "path", metricsPath)
}

// MetricsRegisterer lets domains publish their own collectors on /metrics.
// It returns nil when metrics are disabled.
func (routerService *RouterService) MetricsRegisterer() prometheus.Registerer {
	if routerService.metricsRegistry == nil {
		return nil
	}
	return routerService.metricsRegistry
}
