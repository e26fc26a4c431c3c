package site

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akeren/acs-site/config/router"
	"github.com/akeren/acs-site/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("METRICS_ENABLED", "false")

	rs := router.CreateRouterService(log.NewLoggerWithJSONOutput(), nil, &router.RouterConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})

	controller, err := NewSiteControllerFactory(nil, nil).CreateController()
	require.NoError(t, err)
	rs.MountController(controller)

	return rs.GetEngine()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSitePages(t *testing.T) {
	h := newTestEngine(t)

	cases := map[string]string{
		"/":          "Lead Generation, Conversion, and Automation",
		"/marketing": "Unlock the Power of AI for Your Business",
		"/solutions": "Conversation Management",
	}

	for path, want := range cases {
		w := get(h, path)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"), path)
		assert.Contains(t, w.Body.String(), want, path)
		assert.Contains(t, w.Body.String(), "All rights reserved.", path)
	}
}

func TestStaticAssets(t *testing.T) {
	h := newTestEngine(t)

	w := get(h, "/static/js/contact.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Idempotency-Key")

	w = get(h, "/static/css/site.css")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(h, "/static/js/missing.js")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownPathRendersNotFoundPage(t *testing.T) {
	h := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/pricing", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
	assert.Contains(t, w.Body.String(), "/pricing")
	assert.Contains(t, w.Body.String(), "All rights reserved.")
}
