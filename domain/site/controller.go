package site

import (
	"io/fs"

	"github.com/akeren/acs-site/config/router"
	"github.com/akeren/acs-site/internal/web/components"
	"github.com/akeren/acs-site/internal/web/content"
)

// NewSiteController mounts the marketing pages and the static assets, and
// renders unknown paths as an HTML 404 inside the site chrome.
func NewSiteController(site *content.Site, assets fs.FS) *router.RESTController {
	return router.NewRESTController(
		"SiteController",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.AddPageHandler(c, nil, "", marketingPageHandler(site, "/"))
			rs.AddPageHandler(c, nil, "marketing", marketingPageHandler(site, "/marketing"))
			rs.AddPageHandler(c, nil, "solutions", solutionsPageHandler(site))
			rs.AddStaticHandler(c, nil, "static", assets)
			rs.SetNotFoundPage(func(path string) router.Renderer {
				return components.NotFoundPage(site, components.PageConfig{Path: path})
			})
		},
	)
}

func marketingPageHandler(site *content.Site, path string) router.PageHandlerFunction {
	return func(ctx *router.RequestContext) *router.PageResult {
		return router.PageOK(components.MarketingPage(site, components.PageConfig{Path: path}))
	}
}

func solutionsPageHandler(site *content.Site) router.PageHandlerFunction {
	return func(ctx *router.RequestContext) *router.PageResult {
		return router.PageOK(components.SolutionsPage(site, components.PageConfig{
			Title: "Solutions | " + site.Brand.Title,
			Path:  "/solutions",
		}))
	}
}
