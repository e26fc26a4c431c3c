package components

import (
	"github.com/akeren/acs-site/internal/web/content"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// NotFoundPage keeps the site chrome so visitors can navigate back.
func NotFoundPage(site *content.Site, config PageConfig) g.Node {
	if config.Title == "" {
		config.Title = "Page not found | " + site.Brand.Title
	}

	return Layout(site, config,
		Section(
			Class("section not-found"),
			Div(
				Class("container narrow"),
				SectionHeading("Page not found", "We couldn't find "+config.Path+"."),
				ButtonLink("/", "Back to home", "primary"),
			),
		),
	)
}
