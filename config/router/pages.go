package router

import (
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/akeren/acs-site/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// Renderer is satisfied by gomponents nodes.
type Renderer interface {
	Render(w io.Writer) error
}

type PageResult struct {
	StatusCode int
	Page       Renderer
	// Location, when set, answers with a 303 redirect instead of a page.
	Location string
}

type PageHandlerFunction func(*RequestContext) *PageResult

func PageOK(page Renderer) *PageResult {
	return &PageResult{StatusCode: http.StatusOK, Page: page}
}

func PageWithStatus(statusCode int, page Renderer) *PageResult {
	return &PageResult{StatusCode: statusCode, Page: page}
}

func PageRedirect(location string) *PageResult {
	return &PageResult{StatusCode: http.StatusSeeOther, Location: location}
}

// NotFoundPageFunc renders the HTML answer for a path nothing is mounted at.
type NotFoundPageFunc func(path string) Renderer

// SetNotFoundPage makes browsers get page instead of the JSON 404 envelope.
func (routerService *RouterService) SetNotFoundPage(page NotFoundPageFunc) {
	routerService.notFoundPage = page
}

func writePage(c *RequestContext, statusCode int, page Renderer) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Status(statusCode)

	if err := page.Render(c.Writer); err != nil {
		GetLogger(c).Error("Failed to render page", "path", c.Request.URL.Path, "error", err)
	}
}

func createPageHandler(handler PageHandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		if result == nil || (result.Page == nil && result.Location == "") {
			GetLogger(c).Error("Page handler returned no page", "path", c.Request.URL.Path)
			c.String(http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if result.Location != "" {
			c.Redirect(result.StatusCode, result.Location)
			return
		}

		writePage(c, result.StatusCode, result.Page)
	}
}

// notFound answers unmatched paths: an HTML page for browsers, the JSON
// envelope for /api and anything that does not ask for HTML.
func (routerService *RouterService) notFound(c *RequestContext) {
	path := c.Request.URL.Path
	GetLogger(c).Warn("Route not found", "method", c.Request.Method, "path", path)

	wantsHTML := routerService.notFoundPage != nil &&
		!strings.HasPrefix(path, "/api/") &&
		c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEHTML

	if wantsHTML {
		writePage(c, http.StatusNotFound, routerService.notFoundPage(path))
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(http.StatusNotFound, NotFoundResult("Route not found").ToJSON())
}

func (routerService *RouterService) AddPageHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler PageHandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, limiter, http.MethodGet, normalizePath(controller, path), append(middlewares, createPageHandler(handler))...)
}

// AddFormHandler serves a classic form POST that answers with HTML.
func (routerService *RouterService) AddFormHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler PageHandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, limiter, http.MethodPost, normalizePath(controller, path), append(middlewares, createPageHandler(handler))...)
}

// AddStaticHandler serves files from fsys under path for GET and HEAD.
// Directory listings are never served.
func (routerService *RouterService) AddStaticHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	fsys fs.FS,
) {
	route := strings.TrimSuffix(normalizePath(controller, path), "/") + "/*filepath"
	fileServer := http.FS(fsys)

	serve := func(c *RequestContext) {
		name := c.Param("filepath")
		if name == "" || strings.HasSuffix(name, "/") {
			routerService.notFound(c)
			return
		}

		if info, err := fs.Stat(fsys, strings.TrimPrefix(name, "/")); err != nil || info.IsDir() {
			routerService.notFound(c)
			return
		}

		c.Header("Cache-Control", "public, max-age=3600")
		c.FileFromFS(name, fileServer)
	}

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		routerService.register(controller, limiter, method, route, serve)
	}
}
