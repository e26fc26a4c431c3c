package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Relay delivers a single composed message to an external mail provider.
type Relay interface {
	// Name identifies the provider in logs, metrics and receipts.
	Name() string
	// Verify checks that the provider is reachable and accepts the configured credentials.
	Verify(ctx context.Context) error
	// Send dispatches exactly one message. It never retries.
	Send(ctx context.Context, env *Envelope) (*Receipt, error)
	Close() error
}

type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	email := SanitizeHeader(a.Email)
	name := strings.ReplaceAll(SanitizeHeader(a.Name), `"`, "")
	if name == "" {
		return email
	}
	return fmt.Sprintf("%q <%s>", name, email)
}

// Domain returns the part after the last "@", or "localhost" when there is none.
func (a Address) Domain() string {
	at := strings.LastIndex(a.Email, "@")
	if at < 0 || at == len(a.Email)-1 {
		return "localhost"
	}
	return a.Email[at+1:]
}

type Envelope struct {
	From      Address
	To        []string
	ReplyTo   string
	Subject   string
	Text      string
	HTML      string
	MessageID string
	Headers   map[string]string
}

type Receipt struct {
	MessageID string `json:"messageId"`
	Response  string `json:"response"`
	Provider  string `json:"provider"`
}

func (e *Envelope) validate() error {
	if e == nil {
		return ErrInvalidEnvelope{Reason: "envelope is nil"}
	}
	if strings.TrimSpace(e.From.Email) == "" {
		return ErrInvalidEnvelope{Reason: "from is required"}
	}
	if len(cleanAddrs(e.To)) == 0 {
		return ErrInvalidEnvelope{Reason: "at least one recipient is required"}
	}
	if strings.TrimSpace(e.Subject) == "" {
		return ErrInvalidEnvelope{Reason: "subject is required"}
	}
	if strings.TrimSpace(e.Text) == "" && strings.TrimSpace(e.HTML) == "" {
		return ErrInvalidEnvelope{Reason: "either Text or HTML is required"}
	}
	return nil
}

// NewMessageID builds an RFC 5322 message id scoped to the sender's domain.
func NewMessageID(from Address) string {
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), from.Domain())
}

// SanitizeHeader strips CR and LF so user input cannot inject extra headers,
// then trims surrounding whitespace.
func SanitizeHeader(v string) string {
	return strings.TrimSpace(StripLineBreaks(v))
}

// StripLineBreaks removes CR and LF and leaves everything else as given.
func StripLineBreaks(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

func cleanAddrs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = SanitizeHeader(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
