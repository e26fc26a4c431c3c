package router

import (
	"net/http"
	"strings"

	"github.com/akeren/acs-site/pkg/ratelimit"
)

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: strings.ReplaceAll("/"+mountPoint, "//", "/"),
		prepare:    prepare,
	}
}

// normalizePath joins the controller prefix and a relative path into the
// route gin registers. "" addresses the prefix itself.
func normalizePath(controller *RESTController, relativePath string) string {
	path := controller.mountPoint

	if relativePath != "" {
		path = path + "/" + relativePath
	}

	if path[0] != '/' {
		path = "/" + path
	}

	path = strings.ReplaceAll(path, "//", "/")
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	return path
}

// register binds one route to its controller and optional limiter before
// handing it to gin. Every Add*Handler goes through here.
func (routerService *RouterService) register(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	method string,
	route string,
	handlers ...MiddlewareFunc,
) {
	controller.handlerCount++
	controller.bindHandlerToController(routerService, route, method)
	routerService.bindHandlerRateLimiter(route, method, limiter)
	routerService.engine.Handle(method, route, handlers...)
	routerService.logger.Debug("Handler registered", "controller", controller.name, "method", method, "path", route)
}

func createHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		if result == nil {
			GetLogger(c).Error("Handler returned no result", "path", c.Request.URL.Path)
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("Internal Server Error").ToJSON())
			return
		}

		c.JSON(result.StatusCode, result.payload())
	}
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, limiter, http.MethodPost, normalizePath(controller, path), append(middlewares, createHandler(handler))...)
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, limiter, http.MethodGet, normalizePath(controller, path), append(middlewares, createHandler(handler))...)
}
