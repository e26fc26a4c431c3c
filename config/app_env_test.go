package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAutoMigrateAllowed(t *testing.T) {
	for _, env := range []string{"", "dev", "development", "local", "test", "testing", "DEV", "  Local  "} {
		assert.NoError(t, ValidateAutoMigrateAllowed(env), "env %q", env)
	}

	for _, env := range []string{"prod", "production", "staging", "preprod", " Production ", "qa"} {
		assert.Error(t, ValidateAutoMigrateAllowed(env), "env %q", env)
	}
}

func TestIsProduction(t *testing.T) {
	t.Setenv(AppEnvKey, " Production ")
	assert.True(t, IsProduction())

	t.Setenv(AppEnvKey, "staging")
	assert.False(t, IsProduction())
}

func TestParseOTLPEndpoint(t *testing.T) {
	cases := []struct {
		raw      string
		hostport string
		path     string
		insecure bool
	}{
		{raw: "http://collector:4318", hostport: "collector:4318", path: "/v1/traces", insecure: true},
		{raw: "https://otel.example.com/custom/traces", hostport: "otel.example.com", path: "/custom/traces"},
		{raw: "collector:4318", hostport: "collector:4318", path: "/v1/traces", insecure: true},
	}

	for _, tc := range cases {
		hostport, path, insecure, err := parseOTLPEndpoint(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.hostport, hostport, tc.raw)
		assert.Equal(t, tc.path, path, tc.raw)
		assert.Equal(t, tc.insecure, insecure, tc.raw)
	}

	for _, raw := range []string{"", "collector:4318/v1/traces", "grpc://collector:4317", "http://"} {
		_, _, _, err := parseOTLPEndpoint(raw)
		assert.Error(t, err, raw)
	}
}

func TestSetupTracing_DisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "false")

	cfg, err := LoadTracingConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.MiddlewareServiceName())

	shutdown, err := SetupTracing(nil, cfg)
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}

func TestLoadTracingConfig_RejectsBadRatio(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")

	_, err := LoadTracingConfig()
	assert.Error(t, err)
}
