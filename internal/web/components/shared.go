package components

import (
	"strings"
	"unicode/utf8"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.English)

// Initials returns up to two upper-cased leading letters, "Anay Pant" -> "AP".
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(r)
		if utf8.RuneCountInString(b.String()) == 2 {
			break
		}
	}
	return upper.String(b.String())
}

func SectionHeading(title string, subtitle string) g.Node {
	return Div(
		Class("section-heading"),
		H2(g.Text(title)),
		g.If(subtitle != "", P(Class("muted"), g.Text(subtitle))),
	)
}

func ButtonLink(href, label, variant string) g.Node {
	if variant == "" {
		variant = "primary"
	}
	return A(Href(href), Class("btn btn-"+variant), g.Text(label))
}

func Hero(eyebrow, headline, intro string, actions ...g.Node) g.Node {
	return Section(
		Class("hero"),
		Div(
			Class("container"),
			g.If(eyebrow != "", P(Class("eyebrow"), g.Text(eyebrow))),
			H1(g.Text(headline)),
			P(Class("lead"), g.Text(intro)),
			g.If(len(actions) > 0, Div(Class("hero-actions"), g.Group(actions))),
		),
	)
}
