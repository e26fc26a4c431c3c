package router

import (
	"fmt"
	"net/http"

	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/pkg/ratelimit"
)

func GetLogger(ctx *RequestContext) *log.Logger {
	if logger := ctx.Request.Context().Value(log.LoggerKeyForContext); logger != nil {
		if l, ok := logger.(*log.Logger); ok {
			return l
		}
	}

	baseLogger := log.NewLoggerWithJSONOutput()
	return baseLogger.WithCorrelationID(ctx.Request.Context())
}

func OKResult(data any, message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		Data:       data,
		Message:    message,
	}
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusTooManyRequests,
		Data:       data,
		Message:    "Too Many Requests",
	}
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusBadRequest,
		Data:       payload,
		Message:    message,
	}
}

func NotFoundResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusNotFound,
		Message:    message,
	}
}

func InternalServerErrorResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusInternalServerError,
		Message:    message,
	}
}

// RawResult responds with body verbatim, for endpoints whose clients expect a fixed shape.
func RawResult(statusCode int, body any) *ServiceResult {
	return &ServiceResult{
		StatusCode: statusCode,
		Body:       body,
	}
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
	}
}

func (routerService *RouterService) keyForPathAndMethod(path, method string) string {
	return fmt.Sprintf("%s-%s", method, path)
}

func (controller *RESTController) bindHandlerToController(routerService *RouterService, path, method string) {
	key := routerService.keyForPathAndMethod(path, method)
	otherController, foundPrevious := routerService.handlerToControllerMap[key]

	if foundPrevious {
		panic(fmt.Sprintf("A handler is already registered for %s '%s' by controller '%s'", method, path, otherController.name))
	}

	routerService.handlerToControllerMap[key] = controller
}

func (routerService *RouterService) bindHandlerRateLimiter(path, method string, limiter ratelimit.RateLimiter) {
	if limiter == nil {
		return
	}

	key := routerService.keyForPathAndMethod(path, method)
	if _, foundPrevious := routerService.rateLimitOverrides[key]; foundPrevious {
		panic(fmt.Sprintf("A rate limiter is already registered for %s '%s'", method, path))
	}

	routerService.rateLimitOverrides[key] = limiter
}

// limiterFor picks the handler's own limiter, falling back to the global one.
// mapped is false for requests no controller claimed.
func (routerService *RouterService) limiterFor(c *RequestContext) (limiter ratelimit.RateLimiter, mapped bool) {
	key := routerService.keyForPathAndMethod(c.FullPath(), c.Request.Method)

	if controller, ok := routerService.handlerToControllerMap[key]; !ok || controller == nil {
		return routerService.rateLimiter, false
	}

	if override, ok := routerService.rateLimitOverrides[key]; ok {
		return override, true
	}
	return routerService.rateLimiter, true
}
