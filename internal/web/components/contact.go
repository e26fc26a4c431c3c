package components

import (
	"github.com/akeren/acs-site/internal/web/content"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// ContactFormView is everything the contact page needs to render the form in
// any of its states.
type ContactFormView struct {
	Name          string
	Email         string
	Subject       string
	Message       string
	IsDemoRequest bool

	// Errors holds inline per-field messages keyed by field name.
	Errors map[string]string
	// APIError is the banner shown when the relay endpoint refused the message.
	APIError string

	Submitted bool
	MessageID string
	Response  string

	IdempotencyKey string
}

func (v ContactFormView) fieldError(field string) string {
	if v.Errors == nil {
		return ""
	}
	return v.Errors[field]
}

func ContactPage(site *content.Site, config PageConfig, form ContactFormView) g.Node {
	c := site.Contact
	config.Scripts = append(config.Scripts, "/static/js/contact.js")

	return Layout(site, config,
		Hero("", c.Headline, c.Intro),

		Section(
			Class("section contact"),
			Div(
				Class("container contact-grid"),
				Div(
					Class("card"),
					ID("contact-card"),
					g.If(form.Submitted, contactSuccess(c, form)),
					g.If(!form.Submitted, contactForm(c, form)),
				),
				contactInfo(site),
			),
		),

		Section(
			Class("section team"),
			Div(
				Class("container"),
				SectionHeading(c.TeamHeading, ""),
				Div(
					Class("card-grid"),
					g.Group(g.Map(c.Team, teamCard)),
				),
			),
		),
	)
}

func contactSuccess(c content.Contact, form ContactFormView) g.Node {
	return Div(
		Class("contact-success"),
		ID("contact-success"),
		H2(g.Text(c.SuccessHeading)),
		P(g.Text(c.SuccessBody)),
		g.If(form.MessageID != "" || form.Response != "",
			Dl(
				Class("receipt"),
				g.If(form.MessageID != "", g.Group([]g.Node{Dt(g.Text("Message ID")), Dd(g.Attr("data-receipt", "messageId"), g.Text(form.MessageID))})),
				g.If(form.Response != "", g.Group([]g.Node{Dt(g.Text("Server response")), Dd(g.Attr("data-receipt", "response"), g.Text(form.Response))})),
			),
		),
		A(Href("/contact"), Class("btn btn-secondary"), ID("send-another"), g.Text(c.SendAnother)),
	)
}

func contactForm(c content.Contact, form ContactFormView) g.Node {
	return g.El("form",
		ID("contact-form"),
		Method("post"),
		Action("/contact"),
		g.Attr("novalidate"),

		H2(g.Text(c.FormHeading)),
		P(Class("muted"), g.Text(c.FormIntro)),

		Div(
			Class("form-error"),
			ID("form-error"),
			g.Attr("role", "alert"),
			g.If(form.APIError == "", g.Attr("hidden")),
			g.Text(form.APIError),
		),

		Input(Type("hidden"), Name("idempotencyKey"), ID("idempotencyKey"), Value(form.IdempotencyKey)),

		Div(
			Class("demo-toggle"),
			g.El("label",
				Input(
					Type("checkbox"),
					ID("isDemoRequest"),
					Name("isDemoRequest"),
					Value("true"),
					g.If(form.IsDemoRequest, g.Attr("checked")),
				),
				Span(g.Text(c.DemoLabel)),
			),
			P(Class("muted small"), g.Text(c.DemoHint)),
		),

		textField("name", "Name", "text", "Your name", form.Name, form.fieldError("name")),
		textField("email", "Email", "email", "you@company.com", form.Email, form.fieldError("email")),
		textField("subject", "Subject", "text", "How can we help?", form.Subject, form.fieldError("subject")),
		field("message", "Message", form.fieldError("message"),
			Textarea(
				ID("message"),
				Name("message"),
				g.Attr("rows", "5"),
				Placeholder("Tell us about your business"),
				g.If(form.fieldError("message") != "", g.Attr("aria-invalid", "true")),
				g.Text(form.Message),
			),
		),

		Button(Type("submit"), Class("btn btn-primary"), ID("contact-submit"), g.Text("Send Message")),
	)
}

func textField(name, label, inputType, placeholder, value, errMsg string) g.Node {
	return field(name, label, errMsg,
		Input(
			Type(inputType),
			ID(name),
			Name(name),
			Placeholder(placeholder),
			Value(value),
			g.If(errMsg != "", g.Attr("aria-invalid", "true")),
		),
	)
}

func field(name, label, errMsg string, control g.Node) g.Node {
	return Div(
		Class("field"),
		g.El("label", For(name), g.Text(label)),
		control,
		P(
			Class("field-error"),
			ID(name+"-error"),
			g.Attr("data-error-for", name),
			g.If(errMsg == "", g.Attr("hidden")),
			g.Text(errMsg),
		),
	)
}

func contactInfo(site *content.Site) g.Node {
	c := site.Contact
	return Aside(
		Class("card contact-info"),
		H2(g.Text(c.InfoHeading)),
		P(A(Href("mailto:"+site.Brand.Email), g.Text(site.Brand.Email))),
		P(
			Span(Class("muted"), g.Text(c.FollowLabel+" ")),
			A(Href(site.Brand.LinkedIn), g.Attr("target", "_blank"), g.Attr("rel", "noopener noreferrer"), g.Text("LinkedIn")),
		),
	)
}

func teamCard(member content.TeamMember) g.Node {
	return Div(
		Class("card team-member"),
		Span(Class("avatar"), g.Text(Initials(member.Name))),
		H3(g.Text(member.Name)),
		P(g.Text(member.Role)),
		g.If(member.CoFounder, Span(Class("badge"), g.Text("Co-Founder"))),
	)
}
