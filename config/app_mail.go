package config

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/pkg/factory"
	"github.com/akeren/acs-site/pkg/mailer"
	"github.com/caarlos0/env/v11"
)

const (
	EnvMailUser     = "ZOHO_EMAIL_USER"
	EnvMailPassword = "ZOHO_EMAIL_PASS"
)

type MailConfig struct {
	Provider string `env:"MAIL_PROVIDER" envDefault:"smtp"`

	User     string `env:"ZOHO_EMAIL_USER"`
	Password string `env:"ZOHO_EMAIL_PASS"`

	SMTPHost              string `env:"SMTP_HOST" envDefault:"smtp.zoho.com"`
	SMTPPort              int    `env:"SMTP_PORT" envDefault:"465"`
	ImplicitTLS           bool   `env:"SMTP_IMPLICIT_TLS" envDefault:"true"`
	TLSInsecureSkipVerify bool   `env:"SMTP_TLS_INSECURE_SKIP_VERIFY" envDefault:"false"`

	Pool           bool          `env:"SMTP_POOL" envDefault:"true"`
	MaxConnections int           `env:"SMTP_MAX_CONNECTIONS" envDefault:"1"`
	MaxMessages    int           `env:"SMTP_MAX_MESSAGES" envDefault:"3"`
	RateDelta      time.Duration `env:"SMTP_RATE_DELTA" envDefault:"1s"`
	RateLimit      int           `env:"SMTP_RATE_LIMIT" envDefault:"3"`

	MailgunDomain string `env:"MAILGUN_DOMAIN"`
	MailgunAPIKey string `env:"MAILGUN_API_KEY"`

	FromName      string   `env:"MAIL_FROM_NAME" envDefault:"ACS Contact Form"`
	FromAddress   string   `env:"MAIL_FROM_ADDRESS"`
	To            []string `env:"MAIL_TO" envDefault:"support@automatedconsultancy.com" envSeparator:","`
	SubjectPrefix string   `env:"MAIL_SUBJECT_PREFIX" envDefault:"[ACS Contact]"`

	VerifyBeforeSend bool          `env:"MAIL_VERIFY_BEFORE_SEND" envDefault:"true"`
	SendTimeout      time.Duration `env:"MAIL_SEND_TIMEOUT" envDefault:"30s"`

	IdempotencyTTL    time.Duration `env:"CONTACT_IDEMPOTENCY_TTL" envDefault:"24h"`
	RateLimitRequests int           `env:"CONTACT_RATE_LIMIT_REQUESTS" envDefault:"5"`
	RateLimitWindow   time.Duration `env:"CONTACT_RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// MailConfigError lists every problem found so operators can fix them in one pass.
type MailConfigError struct {
	Problems []string
}

func (e *MailConfigError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func LoadMailConfig() (*MailConfig, error) {
	return parseMailConfig(env.Options{})
}

func parseMailConfig(opts env.Options) (*MailConfig, error) {
	cfg := &MailConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse mail config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *MailConfig) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.User = sanitizeEnv(c.User)
	c.Password = sanitizeEnv(c.Password)
	c.SMTPHost = strings.TrimSpace(c.SMTPHost)
	c.MailgunDomain = strings.TrimSpace(c.MailgunDomain)
	c.MailgunAPIKey = strings.TrimSpace(c.MailgunAPIKey)
	c.FromName = strings.TrimSpace(c.FromName)
	c.FromAddress = sanitizeEnv(c.FromAddress)
	c.SubjectPrefix = strings.TrimSpace(c.SubjectPrefix)

	if c.FromAddress == "" {
		c.FromAddress = c.User
	}

	to := make([]string, 0, len(c.To))
	for _, addr := range c.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	c.To = to
}

// MissingVariables names the credentials the selected provider cannot run without.
func (c *MailConfig) MissingVariables() []string {
	var missing []string

	if c.Provider == factory.RelayProviderMailgun {
		if c.MailgunDomain == "" {
			missing = append(missing, "MAILGUN_DOMAIN")
		}
		if c.MailgunAPIKey == "" {
			missing = append(missing, "MAILGUN_API_KEY")
		}
		if c.FromAddress == "" {
			missing = append(missing, "MAIL_FROM_ADDRESS")
		}
		return missing
	}

	if c.User == "" {
		missing = append(missing, EnvMailUser)
	}
	if c.Password == "" {
		missing = append(missing, EnvMailPassword)
	}
	return missing
}

func (c *MailConfig) IsConfigured() bool {
	return len(c.MissingVariables()) == 0 && len(c.To) > 0
}

// Validate always reports missing credentials; the stricter shape checks run
// only for production deployments.
func (c *MailConfig) Validate(production bool) error {
	if missing := c.MissingVariables(); len(missing) > 0 {
		return &MailConfigError{Problems: []string{
			"Missing required environment variables: " + strings.Join(missing, ", "),
		}}
	}

	var problems []string
	if len(c.To) == 0 {
		problems = append(problems, "MAIL_TO must name at least one recipient")
	}

	if production && c.Provider != factory.RelayProviderMailgun {
		if !strings.Contains(c.User, "@") {
			problems = append(problems, EnvMailUser+" must be a valid email address")
		}
		if utf8.RuneCountInString(c.Password) < 6 {
			problems = append(problems, EnvMailPassword+" must be at least 6 characters")
		}
		if !strings.EqualFold(c.FromAddress, c.User) {
			problems = append(problems, "From address must match the authenticated user email")
		}
	}

	if len(problems) > 0 {
		return &MailConfigError{Problems: problems}
	}
	return nil
}

func (c *MailConfig) Sender() mailer.Address {
	return mailer.Address{Name: c.FromName, Email: c.FromAddress}
}

func (c *MailConfig) SMTPConfig() mailer.SMTPConfig {
	smtp := mailer.DefaultSMTPConfig()
	smtp.Host = c.SMTPHost
	smtp.Port = c.SMTPPort
	smtp.Username = c.User
	smtp.Password = c.Password
	smtp.ImplicitTLS = c.ImplicitTLS
	smtp.MinTLSVersion = tls.VersionTLS12
	smtp.InsecureSkipVerify = c.TLSInsecureSkipVerify
	smtp.Timeout = c.SendTimeout
	smtp.Pool = c.Pool
	smtp.MaxConnections = c.MaxConnections
	smtp.MaxMessages = c.MaxMessages
	smtp.RateLimit = c.RateLimit
	smtp.RateDelta = c.RateDelta
	return smtp
}

func (c *MailConfig) RelayConfig() factory.RelayConfig {
	return factory.RelayConfig{
		Provider: c.Provider,
		SMTP:     c.SMTPConfig(),
		Mailgun: mailer.MailgunConfig{
			Domain:  c.MailgunDomain,
			APIKey:  c.MailgunAPIKey,
			Timeout: c.SendTimeout,
		},
	}
}

// SetupMail loads and validates mail settings and builds the relay. Invalid
// settings abort startup in production; elsewhere they are logged and the
// contact endpoint answers with a configuration error until fixed.
func SetupMail(logger *log.Logger) (*MailConfig, mailer.Relay, error) {
	mailCfg, err := LoadMailConfig()
	if err != nil {
		return nil, nil, err
	}

	if err := mailCfg.Validate(IsProduction()); err != nil {
		if IsProduction() {
			logger.Error("Email configuration is invalid", "error", err.Error())
			return nil, nil, err
		}
		logger.Warn("Email configuration is incomplete; contact submissions will fail until it is fixed", "error", err.Error())
	}

	relay, err := factory.NewDefaultRelayFactory(mailCfg.RelayConfig()).CreateRelay()
	if err != nil {
		logger.Error("Failed to create email relay", "error", err)
		return nil, nil, err
	}

	logger.Info("Email relay configured",
		"provider", relay.Name(),
		"host", mailCfg.SMTPHost,
		"port", mailCfg.SMTPPort,
		"pool", mailCfg.Pool,
		"configured", mailCfg.IsConfigured(),
	)

	return mailCfg, relay, nil
}
