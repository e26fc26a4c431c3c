package components

import (
	"github.com/akeren/acs-site/internal/web/content"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

func MarketingPage(site *content.Site, config PageConfig) g.Node {
	m := site.Marketing

	return Layout(site, config,
		Hero(m.Eyebrow, m.Headline, m.Intro, ButtonLink(m.CTA.Href, m.CTA.Label, "primary")),

		Section(
			Class("section features"),
			ID("features"),
			Div(
				Class("container"),
				SectionHeading(m.FeaturesHeading, ""),
				Div(
					Class("card-grid"),
					g.Group(g.Map(m.Features, featureCard)),
				),
			),
		),

		Section(
			Class("section about"),
			ID("about"),
			Div(
				Class("container narrow"),
				SectionHeading(m.AboutHeading, ""),
				g.Group(g.Map(m.About, func(paragraph string) g.Node {
					return P(g.Text(paragraph))
				})),
			),
		),
	)
}

func featureCard(feature content.Feature) g.Node {
	return Div(
		Class("card"),
		H3(g.Text(feature.Title)),
		P(g.Text(feature.Description)),
	)
}
