package mailrelay

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 1.0, cfg.Retry.BackoffFactor)
	assert.Equal(t, time.Second, cfg.Retry.BackoffUnit)
	assert.Zero(t, cfg.Retry.MaxDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.AttemptTimeout)
	assert.Equal(t, 10, cfg.RateLimit.MaxPerMinute)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 6*time.Second, cfg.RateLimit.Interval())
	assert.False(t, cfg.CircuitBreaker.Enabled)
	assert.Empty(t, cfg.Providers)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Providers = []ProviderConfig{{Type: ProviderSimulated}}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown provider type", func(c *Config) { c.Providers[0].Type = "fax" }, "providers[0].type"},
		{"zero retries", func(c *Config) { c.Retry.MaxRetries = 0 }, "retry.max_retries"},
		{"zero factor", func(c *Config) { c.Retry.BackoffFactor = 0 }, "retry.backoff_factor"},
		{"negative unit", func(c *Config) { c.Retry.BackoffUnit = -time.Second }, "retry"},
		{"zero rate", func(c *Config) { c.RateLimit.MaxPerMinute = 0 }, "rate_limit.max_per_minute"},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, "rate_limit.window"},
		{"breaker threshold", func(c *Config) {
			c.CircuitBreaker.Enabled = true
			c.CircuitBreaker.FailureThreshold = 0
		}, "circuit_breaker.failure_threshold"},
		{"breaker timeout", func(c *Config) {
			c.CircuitBreaker.Enabled = true
			c.CircuitBreaker.Timeout = 0
		}, "circuit_breaker.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())
}

func TestConfig_ValidateRequiresProviders(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrNoProviders)
}

func TestConfig_ValidateSkipsTypeForClients(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = []ProviderConfig{{Client: okProvider("p1")}}
	assert.NoError(t, cfg.Validate())
}

func TestProviderType_Valid(t *testing.T) {
	for _, pt := range []ProviderType{ProviderAWSSES, ProviderSendGrid, ProviderMailgun, ProviderSMTP, ProviderSimulated} {
		assert.True(t, pt.Valid(), pt.String())
	}
	assert.False(t, ProviderType("postmark").Valid())
}

func TestOptions_BuildProviderChain(t *testing.T) {
	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithSendGrid("key", "noreply@example.com"),
		WithMailgunEU("key", "mg.example.com", "noreply@example.com"),
		WithSMTPAuth("smtp.example.com", 587, "noreply@example.com", "user", "pass"),
		WithSimulated("demo", 0.75, 10*time.Millisecond),
		WithMaxRetries(5),
		WithBackoff(2*time.Second, 2),
		WithMaxBackoff(time.Minute),
		WithMaxEmailsPerMinute(60),
	} {
		opt(&cfg)
	}

	require.Len(t, cfg.Providers, 4)
	assert.Equal(t, ProviderSendGrid, cfg.Providers[0].Type)
	assert.Equal(t, "https://api.eu.mailgun.net", cfg.Providers[1].Settings.Get("base_url"))
	assert.Equal(t, "587", cfg.Providers[2].Settings.Get("port"))
	assert.Equal(t, "demo", cfg.Providers[3].Name)
	assert.Equal(t, "0.75", cfg.Providers[3].Settings.Get("success_rate"))
	assert.Equal(t, "10ms", cfg.Providers[3].Settings.Get("latency"))

	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Retry.BackoffUnit)
	assert.Equal(t, 2.0, cfg.Retry.BackoffFactor)
	assert.Equal(t, time.Minute, cfg.Retry.MaxDelay)
	assert.Equal(t, time.Second, cfg.RateLimit.Interval())
}
