package components

import (
	"fmt"

	"github.com/akeren/acs-site/internal/web/content"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

func PageFooter(site *content.Site, year int) g.Node {
	return Footer(
		Class("footer"),
		Div(
			Class("container footer-grid"),

			Div(
				Class("footer-brand"),
				A(Href("/marketing"), Class("brand"), g.Text(site.Brand.Name)),
				P(Class("muted"), g.Text(site.Brand.Tagline)),
				A(
					Href(site.Brand.LinkedIn),
					g.Attr("target", "_blank"),
					g.Attr("rel", "noopener noreferrer"),
					g.Attr("aria-label", "LinkedIn"),
					Class("social-link"),
					g.Text("LinkedIn"),
				),
			),

			g.Group(g.Map(site.Footer.Sections, func(section content.FooterSection) g.Node {
				return Div(
					Class("footer-section"),
					H3(g.Text(section.Title)),
					Ul(
						g.Group(g.Map(section.Links, func(link content.Link) g.Node {
							return Li(A(Href(link.Href), g.Text(link.Label)))
						})),
					),
				)
			})),
		),
		Div(
			Class("container footer-bottom"),
			P(g.Text(fmt.Sprintf("© %d %s. All rights reserved.", year, site.Brand.Name))),
		),
	)
}
