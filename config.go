package mailrelay

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lattiq/mailrelay/internal/providers"
)

// Config holds the complete dispatcher configuration.
type Config struct {
	// Providers lists delivery providers in fallback priority order.
	Providers []ProviderConfig `yaml:"providers"`

	// Retry contains the per-provider retry policy.
	Retry RetryConfig `yaml:"retry"`

	// RateLimit contains the aggregate outbound send throttle.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// CircuitBreaker contains per-provider circuit breaker configuration.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	// Monitoring contains observability configuration.
	Monitoring MonitoringConfig `yaml:"monitoring"`

	// Logger receives dispatcher diagnostics. When nil, logs are discarded.
	// NewLogger builds one from Monitoring.Logging.
	Logger *zap.Logger `yaml:"-"`

	// Listeners are notified after every terminal status.
	Listeners []StatusListener `yaml:"-"`
}

// ProviderConfig describes one provider in the fallback chain.
type ProviderConfig struct {
	// Name is the label used in logs and metrics. Defaults to the provider's own name.
	Name string `yaml:"name"`

	// Type selects a built-in provider implementation.
	Type ProviderType `yaml:"type"`

	// Settings contains provider-specific settings (credentials, sender address...).
	Settings ProviderSettings `yaml:"settings"`

	// Client is a pre-built provider. When set, Type and Settings are ignored.
	Client Provider `yaml:"-"`
}

// ProviderType represents the type of email provider.
type ProviderType string

const (
	// ProviderAWSSES represents Amazon Simple Email Service.
	ProviderAWSSES ProviderType = providers.TypeSES

	// ProviderSendGrid represents the SendGrid email service.
	ProviderSendGrid ProviderType = providers.TypeSendGrid

	// ProviderMailgun represents the Mailgun email service.
	ProviderMailgun ProviderType = providers.TypeMailgun

	// ProviderSMTP represents a generic SMTP server.
	ProviderSMTP ProviderType = providers.TypeSMTP

	// ProviderSimulated represents a provider that succeeds at a configured rate.
	ProviderSimulated ProviderType = providers.TypeSimulated
)

// String returns the string representation of the provider type.
func (pt ProviderType) String() string {
	return string(pt)
}

// Valid checks if the provider type is supported.
func (pt ProviderType) Valid() bool {
	return providers.Supported(string(pt))
}

// RetryConfig contains retry policy configuration.
type RetryConfig struct {
	// MaxRetries is the number of attempts made against each provider before
	// falling back to the next one.
	MaxRetries int `yaml:"max_retries"`

	// BackoffFactor is the base of the exponential backoff. The delay after the
	// n-th failed attempt is BackoffUnit * BackoffFactor^n. A factor of 1 gives
	// a constant delay.
	BackoffFactor float64 `yaml:"backoff_factor"`

	// BackoffUnit scales the backoff.
	BackoffUnit time.Duration `yaml:"backoff_unit"`

	// MaxDelay caps a single backoff delay. Zero means uncapped.
	MaxDelay time.Duration `yaml:"max_delay"`

	// AttemptTimeout bounds a single provider Send call. Zero disables it.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// RateLimitConfig contains the outbound throttle configuration.
type RateLimitConfig struct {
	// MaxPerMinute is the maximum number of messages sent per Window.
	MaxPerMinute int `yaml:"max_per_minute"`

	// Window is the period MaxPerMinute applies to. Sends are spaced by
	// Window / MaxPerMinute.
	Window time.Duration `yaml:"window"`
}

// Interval returns the minimum spacing between consecutive sends.
func (c RateLimitConfig) Interval() time.Duration {
	if c.MaxPerMinute <= 0 {
		return 0
	}
	return c.Window / time.Duration(c.MaxPerMinute)
}

// CircuitBreakerConfig contains circuit breaker configuration.
type CircuitBreakerConfig struct {
	// Enabled indicates whether each provider gets a circuit breaker.
	Enabled bool `yaml:"enabled"`

	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold is the number of successes needed to close a half-open circuit.
	SuccessThreshold int `yaml:"success_threshold"`

	// Timeout is how long the circuit stays open before admitting a trial attempt.
	Timeout time.Duration `yaml:"timeout"`
}

// MonitoringConfig contains observability configuration.
type MonitoringConfig struct {
	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled indicates whether spans are emitted through the global tracer provider.
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `yaml:"level"`

	// Format is the log format (json, console).
	Format string `yaml:"format"`

	// Output is where to write logs (stdout, stderr, or file path).
	Output string `yaml:"output"`
}

// DefaultConfig returns a configuration with the relay defaults and no providers.
func DefaultConfig() Config {
	return Config{
		Retry: DefaultRetryConfig(),
		RateLimit: RateLimitConfig{
			MaxPerMinute: 10,
			Window:       time.Minute,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          false,
			FailureThreshold: 5,
			SuccessThreshold: 1,
			Timeout:          60 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Tracing: TracingConfig{
				Enabled: true,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		},
	}
}

// DefaultRetryConfig returns default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		BackoffFactor:  1,
		BackoffUnit:    time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// Validate checks if the configuration is valid and complete.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("%w: at least one provider is required", ErrNoProviders)
	}

	for i, p := range c.Providers {
		if p.Client != nil {
			continue
		}
		if !p.Type.Valid() {
			return &ValidationError{
				Field:   fmt.Sprintf("providers[%d].type", i),
				Message: "invalid or unsupported provider type: " + string(p.Type),
			}
		}
	}

	if c.Retry.MaxRetries < 1 {
		return &ValidationError{
			Field:   "retry.max_retries",
			Message: "max retries must be at least 1",
		}
	}
	if c.Retry.BackoffFactor <= 0 {
		return &ValidationError{
			Field:   "retry.backoff_factor",
			Message: "backoff factor must be greater than 0",
		}
	}
	if c.Retry.BackoffUnit < 0 || c.Retry.MaxDelay < 0 || c.Retry.AttemptTimeout < 0 {
		return &ValidationError{
			Field:   "retry",
			Message: "durations must not be negative",
		}
	}

	if c.RateLimit.MaxPerMinute < 1 {
		return &ValidationError{
			Field:   "rate_limit.max_per_minute",
			Message: "max per minute must be at least 1",
		}
	}
	if c.RateLimit.Window <= 0 {
		return &ValidationError{
			Field:   "rate_limit.window",
			Message: "window must be greater than 0",
		}
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold < 1 {
			return &ValidationError{
				Field:   "circuit_breaker.failure_threshold",
				Message: "failure threshold must be at least 1",
			}
		}
		if c.CircuitBreaker.SuccessThreshold < 1 {
			return &ValidationError{
				Field:   "circuit_breaker.success_threshold",
				Message: "success threshold must be at least 1",
			}
		}
		if c.CircuitBreaker.Timeout <= 0 {
			return &ValidationError{
				Field:   "circuit_breaker.timeout",
				Message: "timeout must be greater than 0",
			}
		}
	}

	return nil
}
