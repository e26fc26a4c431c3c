package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

// deadliner is implemented by sessions whose socket can be bounded in time.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// nooper is implemented by sessions that can be checked for liveness.
type nooper interface {
	Noop() error
}

// netDialer opens authenticated SMTP sessions whose socket deadline can be
// moved per call, so a hung relay cannot hold a session past the caller's ctx.
type netDialer struct {
	host      string
	port      int
	username  string
	password  string
	ssl       bool
	tlsConfig *tls.Config
	timeout   time.Duration
}

func newNetDialer(cfg SMTPConfig) *netDialer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}

	return &netDialer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		ssl:      cfg.ImplicitTLS,
		tlsConfig: &tls.Config{
			ServerName:         cfg.Host,
			MinVersion:         cfg.MinTLSVersion,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		timeout: timeout,
	}
}

func (d *netDialer) Dial() (gomail.SendCloser, error) {
	addr := net.JoinHostPort(d.host, strconv.Itoa(d.port))
	nd := &net.Dialer{Timeout: d.timeout}

	var (
		conn net.Conn
		err  error
	)
	if d.ssl {
		conn, err = tls.DialWithDialer(nd, "tcp", addr, d.tlsConfig)
	} else {
		conn, err = nd.Dial("tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	// The handshake and AUTH share one deadline.
	if err := conn.SetDeadline(time.Now().Add(d.timeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}

	client, err := smtp.NewClient(conn, d.host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := d.handshake(client); err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &smtpSession{client: client, conn: conn}, nil
}

func (d *netDialer) handshake(client *smtp.Client) error {
	if err := client.Hello(localName()); err != nil {
		return err
	}

	if !d.ssl {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(d.tlsConfig); err != nil {
				return err
			}
		}
	}

	if d.username == "" {
		return nil
	}
	if ok, _ := client.Extension("AUTH"); !ok {
		return fmt.Errorf("smtp server %s does not advertise AUTH", d.host)
	}
	return client.Auth(smtp.PlainAuth("", d.username, d.password, d.host))
}

func localName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return name
}

// smtpSession keeps the raw conn next to the client because StartTLS swaps
// the client's conn for a TLS wrapper that still sits on the same socket.
type smtpSession struct {
	client *smtp.Client
	conn   net.Conn
}

func (s *smtpSession) Send(from string, to []string, msg io.WriterTo) error {
	if err := s.client.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := s.client.Rcpt(addr); err != nil {
			return err
		}
	}

	w, err := s.client.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *smtpSession) Noop() error {
	return s.client.Noop()
}

func (s *smtpSession) SetDeadline(t time.Time) error {
	return s.conn.SetDeadline(t)
}

func (s *smtpSession) Close() error {
	if err := s.client.Quit(); err != nil {
		_ = s.client.Close()
		return err
	}
	return nil
}

// armDeadline bounds the session's socket by ctx. The returned func clears it.
func armDeadline(ctx context.Context, conn gomail.SendCloser) func() {
	d, ok := conn.(deadliner)
	if !ok {
		return func() {}
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = d.SetDeadline(dl)
	}
	return func() { _ = d.SetDeadline(time.Time{}) }
}
