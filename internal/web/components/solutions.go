package components

import (
	"strconv"

	"github.com/akeren/acs-site/internal/web/content"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

func SolutionsPage(site *content.Site, config PageConfig) g.Node {
	s := site.Solutions

	return Layout(site, config,
		Hero("", s.Headline, s.Intro),

		g.Group(g.Map(s.Items, solutionSection)),

		Section(
			Class("section dashboard"),
			ID("analytics"),
			Div(
				Class("container dashboard-grid"),
				Div(
					Class("card"),
					H3(g.Text(s.ConversationsHeading)),
					Table(
						Class("conversations"),
						THead(Tr(Th(g.Text("Lead")), Th(g.Text("Date")), Th(g.Text("Stage")), Th(g.Text("Last message")))),
						TBody(g.Group(g.Map(s.Conversations, conversationRow))),
					),
				),
				Div(
					Class("card"),
					H3(g.Text("Lead Scores")),
					Ul(
						Class("scores"),
						g.Group(g.Map(s.Scoring, func(lead content.LeadScore) g.Node {
							return Li(
								Span(Class("avatar"), g.Text(Initials(lead.Name))),
								Span(g.Text(lead.Name)),
								Strong(g.Text(strconv.Itoa(lead.Score))),
							)
						})),
					),
					Div(
						Class("stats"),
						g.Group(g.Map(s.Stats, func(stat content.Stat) g.Node {
							return Div(Class("stat"), Strong(g.Text(stat.Value)), Span(g.Text(stat.Label)))
						})),
					),
				),
			),
		),

		Section(
			Class("section closing"),
			Div(
				Class("container narrow center"),
				H2(g.Text(s.Closing.Headline)),
				P(g.Text(s.Closing.Body)),
				Div(
					Class("hero-actions"),
					ButtonLink(s.Closing.Primary.Href, s.Closing.Primary.Label, "primary"),
					ButtonLink(s.Closing.Secondary.Href, s.Closing.Secondary.Label, "secondary"),
				),
			),
		),
	)
}

func solutionSection(solution content.Solution) g.Node {
	return Section(
		Class("section solution"),
		ID(solution.ID),
		Div(
			Class("container"),
			H2(g.Text(solution.Title)),
			P(Class("lead"), g.Text(solution.Description)),
			Ul(
				Class("highlights"),
				g.Group(g.Map(solution.Highlights, func(h string) g.Node {
					return Li(g.Text(h))
				})),
			),
		),
	)
}

func conversationRow(c content.Conversation) g.Node {
	return Tr(
		Td(g.Text(c.Lead)),
		Td(g.Text(c.Date)),
		Td(Span(Class("badge"), g.Text(c.Stage))),
		Td(g.Text(c.Message)),
	)
}
