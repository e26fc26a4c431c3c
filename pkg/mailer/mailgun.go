package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

const mailgunProvider = "mailgun"

type MailgunConfig struct {
	Domain  string
	APIKey  string
	Timeout time.Duration
}

// MailgunRelay sends through the Mailgun HTTP API instead of SMTP.
type MailgunRelay struct {
	cfg    MailgunConfig
	client *mailgun.MailgunImpl
}

func NewMailgunRelay(cfg MailgunConfig) *MailgunRelay {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &MailgunRelay{
		cfg:    cfg,
		client: mailgun.NewMailgun(cfg.Domain, cfg.APIKey),
	}
}

func (r *MailgunRelay) Name() string {
	return mailgunProvider
}

// Verify only checks that credentials are present; the API is stateless.
func (r *MailgunRelay) Verify(ctx context.Context) error {
	if r.cfg.Domain == "" {
		return &ConnectionError{Provider: mailgunProvider, Err: errors.New("MAILGUN_DOMAIN is required")}
	}
	if r.cfg.APIKey == "" {
		return &ConnectionError{Provider: mailgunProvider, Err: errors.New("MAILGUN_API_KEY is required")}
	}
	return ctx.Err()
}

func (r *MailgunRelay) Send(ctx context.Context, env *Envelope) (*Receipt, error) {
	if err := env.validate(); err != nil {
		return nil, &SendError{Provider: mailgunProvider, Err: err}
	}

	message := r.client.NewMessage(env.From.String(), SanitizeHeader(env.Subject), env.Text, cleanAddrs(env.To)...)
	if env.HTML != "" {
		message.SetHtml(env.HTML)
	}
	if replyTo := StripLineBreaks(env.ReplyTo); strings.TrimSpace(replyTo) != "" {
		message.AddHeader("Reply-To", replyTo)
	}
	for k, v := range env.Headers {
		if v = SanitizeHeader(v); k != "" && v != "" {
			message.AddHeader(k, v)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	response, messageID, err := r.client.Send(sendCtx, message)
	if err != nil {
		// The request may have reached the API before the deadline cut it off.
		if sendCtx.Err() != nil {
			return nil, &SendError{Provider: mailgunProvider, Err: fmt.Errorf("%w: %w", ErrOutcomeUnknown, err)}
		}
		return nil, &SendError{Provider: mailgunProvider, Err: err}
	}

	return &Receipt{
		MessageID: messageID,
		Response:  response,
		Provider:  mailgunProvider,
	}, nil
}

func (r *MailgunRelay) Close() error {
	return nil
}
