package components

import (
	"github.com/akeren/acs-site/internal/web/content"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

func Navbar(site *content.Site, currentPath string) g.Node {
	return Nav(
		Class("navbar"),
		Div(
			Class("container navbar-inner"),
			A(Href("/marketing"), Class("brand"), g.Text(site.Brand.Name)),

			Ul(
				Class("nav-links"),
				g.Group(g.Map(site.Nav, func(link content.Link) g.Node {
					return Li(navLink(link, currentPath))
				})),
			),

			A(Href(site.CTA.Href), Class("btn btn-primary"), g.Text(site.CTA.Label)),
		),
	)
}

func navLink(link content.Link, currentPath string) g.Node {
	active := link.Href == currentPath || (currentPath == "/" && link.Href == "/marketing")

	class := "nav-link"
	if active {
		class += " active"
	}

	return A(
		Href(link.Href),
		Class(class),
		g.If(active, g.Attr("aria-current", "page")),
		g.Text(link.Label),
	)
}
