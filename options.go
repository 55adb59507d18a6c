package mailrelay

import (
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring the dispatcher.
type Option func(*Config)

// WithProvider appends a built-in provider to the fallback chain.
func WithProvider(providerType ProviderType, settings ProviderSettings) Option {
	return WithNamedProvider("", providerType, settings)
}

// WithNamedProvider appends a built-in provider with an explicit label.
func WithNamedProvider(name string, providerType ProviderType, settings ProviderSettings) Option {
	return func(c *Config) {
		c.Providers = append(c.Providers, ProviderConfig{
			Name:     name,
			Type:     providerType,
			Settings: settings,
		})
	}
}

// WithProviderClient appends a pre-built provider to the fallback chain.
func WithProviderClient(p Provider) Option {
	return func(c *Config) {
		c.Providers = append(c.Providers, ProviderConfig{Client: p})
	}
}

// WithAWSSES appends an AWS SES provider using the default credential chain.
func WithAWSSES(region, from string) Option {
	return WithProvider(ProviderAWSSES, ProviderSettings{
		"region": region,
		"from":   from,
	})
}

// WithAWSSESCredentials appends an AWS SES provider with explicit credentials.
func WithAWSSESCredentials(region, from, accessKey, secretKey string) Option {
	return WithProvider(ProviderAWSSES, ProviderSettings{
		"region":     region,
		"from":       from,
		"access_key": accessKey,
		"secret_key": secretKey,
	})
}

// WithSendGrid appends a SendGrid provider.
func WithSendGrid(apiKey, from string) Option {
	return WithProvider(ProviderSendGrid, ProviderSettings{
		"api_key": apiKey,
		"from":    from,
	})
}

// WithMailgun appends a Mailgun provider.
func WithMailgun(apiKey, domain, from string) Option {
	return WithProvider(ProviderMailgun, ProviderSettings{
		"api_key": apiKey,
		"domain":  domain,
		"from":    from,
	})
}

// WithMailgunEU appends a Mailgun provider for the EU region.
func WithMailgunEU(apiKey, domain, from string) Option {
	return WithProvider(ProviderMailgun, ProviderSettings{
		"api_key":  apiKey,
		"domain":   domain,
		"from":     from,
		"base_url": "https://api.eu.mailgun.net",
	})
}

// WithSMTP appends an SMTP relay without authentication.
func WithSMTP(host string, port int, from string) Option {
	return WithProvider(ProviderSMTP, ProviderSettings{
		"host": host,
		"port": strconv.Itoa(port),
		"from": from,
	})
}

// WithSMTPAuth appends an SMTP relay with authentication.
func WithSMTPAuth(host string, port int, from, username, password string) Option {
	return WithProvider(ProviderSMTP, ProviderSettings{
		"host":     host,
		"port":     strconv.Itoa(port),
		"from":     from,
		"username": username,
		"password": password,
	})
}

// WithSimulated appends a provider that succeeds with the given probability.
func WithSimulated(name string, successRate float64, latency time.Duration) Option {
	return WithNamedProvider(name, ProviderSimulated, ProviderSettings{
		"success_rate": strconv.FormatFloat(successRate, 'f', -1, 64),
		"latency":      latency.String(),
	})
}

// WithMaxRetries sets the number of attempts per provider.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.Retry.MaxRetries = n
	}
}

// WithBackoff sets the backoff unit and factor.
func WithBackoff(unit time.Duration, factor float64) Option {
	return func(c *Config) {
		c.Retry.BackoffUnit = unit
		c.Retry.BackoffFactor = factor
	}
}

// WithMaxBackoff caps a single backoff delay.
func WithMaxBackoff(maxDelay time.Duration) Option {
	return func(c *Config) {
		c.Retry.MaxDelay = maxDelay
	}
}

// WithAttemptTimeout bounds each provider Send call.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Retry.AttemptTimeout = timeout
	}
}

// WithMaxEmailsPerMinute sets the outbound send rate.
func WithMaxEmailsPerMinute(n int) Option {
	return func(c *Config) {
		c.RateLimit.MaxPerMinute = n
	}
}

// WithRateWindow changes the period the send rate applies to.
func WithRateWindow(window time.Duration) Option {
	return func(c *Config) {
		c.RateLimit.Window = window
	}
}

// WithCircuitBreaker enables a circuit breaker per provider.
func WithCircuitBreaker(failureThreshold, successThreshold int, timeout time.Duration) Option {
	return func(c *Config) {
		c.CircuitBreaker.Enabled = true
		c.CircuitBreaker.FailureThreshold = failureThreshold
		c.CircuitBreaker.SuccessThreshold = successThreshold
		c.CircuitBreaker.Timeout = timeout
	}
}

// WithoutCircuitBreaker disables circuit breaker functionality.
func WithoutCircuitBreaker() Option {
	return func(c *Config) {
		c.CircuitBreaker.Enabled = false
	}
}

// WithTracing enables distributed tracing through the global tracer provider.
func WithTracing() Option {
	return func(c *Config) {
		c.Monitoring.Tracing.Enabled = true
	}
}

// WithoutTracing disables distributed tracing.
func WithoutTracing() Option {
	return func(c *Config) {
		c.Monitoring.Tracing.Enabled = false
	}
}

// WithLogger sets the logger used by the dispatcher.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithLogging sets the logging configuration read by NewLogger.
func WithLogging(level, format, output string) Option {
	return func(c *Config) {
		c.Monitoring.Logging.Level = level
		c.Monitoring.Logging.Format = format
		c.Monitoring.Logging.Output = output
	}
}

// WithStatusListener registers a listener for terminal status events.
func WithStatusListener(l StatusListener) Option {
	return func(c *Config) {
		c.Listeners = append(c.Listeners, l)
	}
}
