package router

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/pkg/utils"
	"github.com/gin-gonic/gin"
)

// contentSecurityPolicy allows only first-party assets; the pages inline no
// script or style.
const contentSecurityPolicy = "default-src 'self'; img-src 'self' data:; script-src 'self'; style-src 'self'; " +
	"connect-src 'self'; form-action 'self'; frame-ancestors 'none'; base-uri 'self'"

const (
	corsAllowedHeaders = "Content-Type, Accept, Idempotency-Key, X-Correlation-ID"
	corsAllowedMethods = "GET, POST, OPTIONS"
)

func (routerService *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Correlation-ID")
		if id == "" {
			id = log.GenerateCorrelationID()
		}
		ctx := context.WithValue(c.Request.Context(), log.CorrelatedIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Correlation-ID", id)
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlatedLogger := routerService.logger.WithCorrelationID(c.Request.Context())
		ctx := context.WithValue(c.Request.Context(), log.LoggerKeyForContext, correlatedLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		GetLogger(c).Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		// Outbound links (LinkedIn) get the origin but never the path.
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", contentSecurityPolicy)

		if shouldSetHSTS(c) {
			h.Set("Strict-Transport-Security", buildHSTSValue())
		}
		c.Next()
	}
}

// shouldSetHSTS is on by default in production and only for requests that
// arrived over TLS, directly or through a terminating proxy.
func shouldSetHSTS(c *gin.Context) bool {
	if !utils.GetEnvBoolOrDefault("HSTS_ENABLED", utils.IsProductionEnv()) {
		return false
	}

	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
}

func buildHSTSValue() string {
	value := fmt.Sprintf("max-age=%d", utils.GetEnvInt64OrDefault("HSTS_MAX_AGE", 31536000))
	if utils.GetEnvBoolOrDefault("HSTS_INCLUDE_SUBDOMAINS", true) {
		value += "; includeSubDomains"
	}
	return value
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.config.MaxBodyBytes

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResult(
				http.StatusRequestEntityTooLarge,
				"Request payload too large",
				nil,
			).ToJSON())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// corsMiddleware lets configured origins call the JSON API from the browser.
// Requests from other origins pass through without CORS headers, so the
// browser blocks them.
func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	allowed := routerService.config.AllowedOrigins
	allowAny := slices.Contains(allowed, "*")

	if len(allowed) == 0 {
		routerService.logger.Info("CORS_ALLOWED_ORIGIN not set; cross-origin requests are denied")
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || sameOrigin(c, origin) {
			c.Next()
			return
		}

		c.Writer.Header().Add("Vary", "Origin")

		if !allowAny && !slices.Contains(allowed, origin) {
			GetLogger(c).Warn("CORS origin not allowed", "origin", origin)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
		h.Set("Access-Control-Expose-Headers", "X-Correlation-ID, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// sameOrigin reports whether a browser sent Origin for a request to this
// host, which it does on every same-origin POST.
func sameOrigin(c *gin.Context, origin string) bool {
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	return host == c.Request.Host
}

func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), routerService.config.RequestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		// Never c.Next() in a goroutine: gin.Context is not safe for concurrent use.
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			GetLogger(c).Warn("Request timeout detected")
			c.AbortWithStatusJSON(http.StatusRequestTimeout, ErrorResult(
				http.StatusRequestTimeout,
				"Request timeout",
				nil,
			).ToJSON())
		}
	}
}

// rateLimitMiddleware counts every request against the handler's limiter, or
// the global one. Unmapped paths are still counted before NoRoute answers.
func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter, mapped := routerService.limiterFor(c)
		if limiter == nil {
			c.Next()
			return
		}

		limit, window := limiter.GetLimitDetails()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Window", window.String())

		// Limiters add their own namespace prefix.
		limited, err := limiter.IsLimited(clientIP)
		if err != nil {
			// Infrastructure trouble must not block legitimate visitors.
			GetLogger(c).Error("Rate limiter error", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}

		if limited {
			GetLogger(c).Warn("Rate limit exceeded", "client_ip", clientIP, "path", c.Request.URL.Path, "mapped", mapped)

			retryAfter := strconv.Itoa(max(1, int(math.Ceil(window.Seconds()))))
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
				Limit:      limit,
				Window:     window.String(),
				RetryAfter: retryAfter,
			}).ToJSON())
			return
		}

		c.Next()
	}
}
