package factory

import (
	"testing"
	"time"

	"github.com/akeren/acs-site/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRelayFactory_CreateRelay(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{"", "smtp"},
		{"smtp", "smtp"},
		{" Mailgun ", "mailgun"},
	}

	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			relay, err := NewDefaultRelayFactory(RelayConfig{
				Provider: tc.provider,
				SMTP:     mailer.DefaultSMTPConfig(),
				Mailgun:  mailer.MailgunConfig{Domain: "mg.example.com", APIKey: "key"},
			}).CreateRelay()

			require.NoError(t, err)
			assert.Equal(t, tc.want, relay.Name())
		})
	}
}

func TestDefaultRelayFactory_RejectsUnknownProvider(t *testing.T) {
	_, err := NewDefaultRelayFactory(RelayConfig{Provider: "sendgrid"}).CreateRelay()
	assert.ErrorContains(t, err, "unsupported mail provider")
}

func TestDefaultRateLimiterFactory_ScopedOverridesLimits(t *testing.T) {
	f := NewDefaultRateLimiterFactory(100, time.Minute, nil, nil)

	requests, window := f.CreateScopedRateLimiter("contact", 5, 10*time.Minute).GetLimitDetails()
	assert.Equal(t, 5, requests)
	assert.Equal(t, 10*time.Minute, window)

	requests, window = f.CreateRateLimiter().GetLimitDetails()
	assert.Equal(t, 100, requests)
	assert.Equal(t, time.Minute, window)
}
