package components

import (
	"time"

	"github.com/akeren/acs-site/internal/web/content"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

type PageConfig struct {
	Title       string
	Description string
	// Path is the current request path; the matching nav link is marked active.
	Path string
	// Year printed in the footer. Zero means the current year.
	Year    int
	Scripts []string
}

func Layout(site *content.Site, config PageConfig, body ...g.Node) g.Node {
	if config.Title == "" {
		config.Title = site.Brand.Title
	}

	if config.Description == "" {
		config.Description = site.Brand.Description
	}

	if config.Year == 0 {
		config.Year = time.Now().Year()
	}

	return g.Group([]g.Node{
		g.Raw("<!DOCTYPE html>"),
		HTML(
			Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1.0")),
				TitleEl(g.Text(config.Title)),
				Meta(Name("description"), Content(config.Description)),

				Meta(g.Attr("property", "og:title"), Content(config.Title)),
				Meta(g.Attr("property", "og:description"), Content(config.Description)),
				Meta(g.Attr("property", "og:type"), Content("website")),

				Link(Rel("stylesheet"), Href("/static/css/site.css")),
			),
			Body(
				Class("site"),
				Navbar(site, config.Path),
				Main(Class("site-main"), g.Group(body)),
				PageFooter(site, config.Year),
				g.Group(g.Map(config.Scripts, func(src string) g.Node {
					return Script(Src(src), g.Attr("defer"))
				})),
			),
		),
	})
}
