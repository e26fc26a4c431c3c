package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"
)

const (
	smtpProvider       = "smtp"
	defaultSMTPTimeout = 30 * time.Second
)

// Delivery states shared between Send and its worker goroutine.
const (
	deliveryQueued int32 = iota
	deliveryStarted
	deliveryAbandoned
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// ImplicitTLS opens the connection over TLS (port 465) instead of upgrading with STARTTLS.
	ImplicitTLS        bool
	MinTLSVersion      uint16
	InsecureSkipVerify bool

	// Timeout bounds a single Verify or Send call when ctx has no sooner deadline.
	Timeout time.Duration

	// Pool keeps authenticated sessions open between messages.
	Pool           bool
	MaxConnections int
	MaxMessages    int
	IdleTimeout    time.Duration

	// RateLimit messages are allowed per RateDelta. Zero disables rate limiting.
	RateLimit int
	RateDelta time.Duration
}

func DefaultSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:           "smtp.zoho.com",
		Port:           465,
		ImplicitTLS:    true,
		MinTLSVersion:  tls.VersionTLS12,
		Timeout:        30 * time.Second,
		Pool:           true,
		MaxConnections: 1,
		MaxMessages:    3,
		IdleTimeout:    time.Minute,
		RateLimit:      3,
		RateDelta:      time.Second,
	}
}

type SMTPRelay struct {
	cfg     SMTPConfig
	pool    *sessionPool
	limiter *rate.Limiter
}

func NewSMTPRelay(cfg SMTPConfig) *SMTPRelay {
	return newSMTPRelay(cfg, newNetDialer(cfg))
}

func newSMTPRelay(cfg SMTPConfig, d dialer) *SMTPRelay {
	maxMessages := cfg.MaxMessages
	if !cfg.Pool {
		maxMessages = 1
	}

	relay := &SMTPRelay{
		cfg:  cfg,
		pool: newSessionPool(d, cfg.MaxConnections, maxMessages, cfg.IdleTimeout),
	}

	if cfg.RateLimit > 0 && cfg.RateDelta > 0 {
		every := cfg.RateDelta / time.Duration(cfg.RateLimit)
		relay.limiter = rate.NewLimiter(rate.Every(every), cfg.RateLimit)
	}

	return relay
}

func (r *SMTPRelay) Name() string {
	return smtpProvider
}

// Verify dials and authenticates a fresh session. Pooled sessions are not
// used, so a relay that went away since the last send is reported here.
func (r *SMTPRelay) Verify(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.pool.dialFresh(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			return &ConnectionError{Provider: smtpProvider, Err: err}
		}
		return nil
	case <-ctx.Done():
		return &ConnectionError{Provider: smtpProvider, Err: ctx.Err()}
	}
}

// Send hands one message to the relay. If ctx expires before a session is
// ready the message is abandoned and never written, which is a ConnectionError.
// If it expires while the relay is receiving the message, the result is a
// SendError wrapping ErrOutcomeUnknown.
func (r *SMTPRelay) Send(ctx context.Context, env *Envelope) (*Receipt, error) {
	if err := env.validate(); err != nil {
		return nil, &SendError{Provider: smtpProvider, Err: err}
	}

	messageID := env.MessageID
	if messageID == "" {
		messageID = NewMessageID(env.From)
	}

	msg := buildMessage(env, messageID)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, &SendError{Provider: smtpProvider, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	var state atomic.Int32
	done := make(chan error, 1)
	go func() {
		s, err := r.pool.acquire(ctx)
		if err != nil {
			done <- &ConnectionError{Provider: smtpProvider, Err: err}
			return
		}

		if !state.CompareAndSwap(deliveryQueued, deliveryStarted) {
			r.pool.release(s, false)
			return
		}

		disarm := armDeadline(ctx, s.conn)
		err = gomail.Send(s.conn, msg)
		disarm()

		s.sent++
		r.pool.release(s, err != nil)
		done <- sendResult(err)
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		if state.CompareAndSwap(deliveryQueued, deliveryAbandoned) {
			return nil, &ConnectionError{Provider: smtpProvider, Err: fmt.Errorf("no session before deadline: %w", ctx.Err())}
		}
		select {
		case err := <-done:
			if err != nil {
				return nil, err
			}
		default:
			return nil, &SendError{Provider: smtpProvider, Err: fmt.Errorf("%w: %w", ErrOutcomeUnknown, ctx.Err())}
		}
	}

	return &Receipt{
		MessageID: messageID,
		Response:  fmt.Sprintf("250 Message accepted by %s:%d", r.cfg.Host, r.cfg.Port),
		Provider:  smtpProvider,
	}, nil
}

func (r *SMTPRelay) Close() error {
	return r.pool.close()
}

// withTimeout applies the configured timeout unless ctx already ends sooner.
func (r *SMTPRelay) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// sendResult classifies an error from the SMTP transaction. A socket timeout
// mid-transaction leaves the relay's verdict unknown.
func sendResult(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &SendError{Provider: smtpProvider, Err: fmt.Errorf("%w: %w", ErrOutcomeUnknown, err)}
	}
	return &SendError{Provider: smtpProvider, Err: err}
}

func buildMessage(env *Envelope, messageID string) *gomail.Message {
	msg := gomail.NewMessage()

	msg.SetAddressHeader("From", SanitizeHeader(env.From.Email), SanitizeHeader(env.From.Name))
	msg.SetHeader("To", cleanAddrs(env.To)...)
	if replyTo := StripLineBreaks(env.ReplyTo); strings.TrimSpace(replyTo) != "" {
		msg.SetHeader("Reply-To", replyTo)
	}
	msg.SetHeader("Subject", SanitizeHeader(env.Subject))
	msg.SetHeader("Message-ID", messageID)

	for k, v := range env.Headers {
		k = strings.TrimSpace(k)
		v = SanitizeHeader(v)
		if k == "" || v == "" {
			continue
		}
		msg.SetHeader(k, v)
	}

	hasText := strings.TrimSpace(env.Text) != ""
	hasHTML := strings.TrimSpace(env.HTML) != ""

	switch {
	case hasText && hasHTML:
		msg.SetBody("text/plain", env.Text)
		msg.AddAlternative("text/html", env.HTML)
	case hasHTML:
		msg.SetBody("text/html", env.HTML)
	default:
		msg.SetBody("text/plain", env.Text)
	}

	return msg
}
