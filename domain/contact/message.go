package contact

import (
	"embed"
	"fmt"
	"strings"

	"github.com/akeren/acs-site/pkg/mailer"
	"github.com/aymerick/raymond"
)

//go:embed templates/*.hbs
var templateFS embed.FS

// Composer turns a submission into the single outgoing email.
type Composer struct {
	from          mailer.Address
	to            []string
	subjectPrefix string
	html          *raymond.Template
	text          *raymond.Template
}

func NewComposer(from mailer.Address, to []string, subjectPrefix string) (*Composer, error) {
	html, err := loadTemplate("templates/contact.html.hbs")
	if err != nil {
		return nil, err
	}
	html.RegisterHelper("nl2br", nl2br)

	text, err := loadTemplate("templates/contact.txt.hbs")
	if err != nil {
		return nil, err
	}

	return &Composer{
		from:          from,
		to:            append([]string(nil), to...),
		subjectPrefix: strings.TrimSpace(subjectPrefix),
		html:          html,
		text:          text,
	}, nil
}

func loadTemplate(name string) (*raymond.Template, error) {
	content, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("template not found: %s", name)
	}

	tpl, err := raymond.Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tpl, nil
}

// nl2br escapes the message first, then turns newlines into <br/>.
func nl2br(message string) raymond.SafeString {
	escaped := raymond.Escape(message)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return raymond.SafeString(strings.ReplaceAll(escaped, "\n", "<br/>"))
}

func (c *Composer) Sender() mailer.Address {
	return c.from
}

func (c *Composer) Subject(subject string) string {
	subject = mailer.SanitizeHeader(subject)
	if c.subjectPrefix == "" {
		return subject
	}
	return c.subjectPrefix + " " + subject
}

// Compose never uses the submitter's address as the sender; it only becomes
// the Reply-To.
func (c *Composer) Compose(req *ContactRequest) (*mailer.Envelope, error) {
	data := map[string]interface{}{
		"name":    req.Name,
		"email":   req.Email,
		"message": req.Message,
	}

	html, err := c.html.Exec(data)
	if err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}

	text, err := c.text.Exec(data)
	if err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}

	return &mailer.Envelope{
		From:    c.from,
		To:      append([]string(nil), c.to...),
		ReplyTo: mailer.StripLineBreaks(req.Email),
		Subject: c.Subject(req.Subject),
		Text:    text,
		HTML:    html,
	}, nil
}
