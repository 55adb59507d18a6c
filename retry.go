package mailrelay

import (
	"math"
	"sync"
	"time"
)

// RetryPolicy decides how often a provider is tried and how long to wait between tries.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a retry policy with the given configuration.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	return &RetryPolicy{
		config: config,
	}
}

// MaxRetries returns the number of attempts allowed per provider.
func (r *RetryPolicy) MaxRetries() int {
	return r.config.MaxRetries
}

// ShouldRetry reports whether another attempt is allowed after attempt failures.
func (r *RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < r.config.MaxRetries
}

// Delay returns the backoff after the given number of failed attempts:
// BackoffUnit * BackoffFactor^attempt, capped at MaxDelay when one is set.
func (r *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || r.config.BackoffUnit <= 0 {
		return 0
	}

	delay := float64(r.config.BackoffUnit) * math.Pow(r.config.BackoffFactor, float64(attempt))

	ceiling := float64(math.MaxInt64)
	if r.config.MaxDelay > 0 {
		ceiling = float64(r.config.MaxDelay)
	}
	if math.IsInf(delay, 0) || math.IsNaN(delay) || delay >= ceiling {
		if r.config.MaxDelay > 0 {
			return r.config.MaxDelay
		}
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(delay)
}

// RateLimiter spaces consecutive sends by a fixed interval measured from the
// completion of the previous send. It is used by a single drain worker.
type RateLimiter struct {
	interval time.Duration

	mu    sync.Mutex
	last  time.Time
	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiter creates a rate limiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		interval: config.Interval(),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Interval returns the enforced spacing between sends.
func (rl *RateLimiter) Interval() time.Duration {
	return rl.interval
}

// Wait blocks until at least Interval has elapsed since the last completed
// send and returns the time spent sleeping. The first call never sleeps.
func (rl *RateLimiter) Wait() time.Duration {
	rl.mu.Lock()
	last := rl.last
	rl.mu.Unlock()

	if last.IsZero() || rl.interval <= 0 {
		return 0
	}

	remaining := rl.interval - rl.now().Sub(last)
	if remaining <= 0 {
		return 0
	}
	rl.sleep(remaining)
	return remaining
}

// Done records the completion of a send.
func (rl *RateLimiter) Done() {
	rl.mu.Lock()
	rl.last = rl.now()
	rl.mu.Unlock()
}

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState int

const (
	// CircuitBreakerClosed indicates the circuit breaker is closed (normal operation).
	CircuitBreakerClosed CircuitBreakerState = iota

	// CircuitBreakerOpen indicates the circuit breaker is open (provider is skipped).
	CircuitBreakerOpen

	// CircuitBreakerHalfOpen indicates the circuit breaker is admitting trial attempts.
	CircuitBreakerHalfOpen
)

// String returns the string representation of the circuit breaker state.
func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerClosed:
		return "closed"
	case CircuitBreakerOpen:
		return "open"
	case CircuitBreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker tracks consecutive failures of one provider.
type CircuitBreaker struct {
	config       CircuitBreakerConfig
	state        CircuitBreakerState
	failureCount int
	successCount int
	openedAt     time.Time
	now          func() time.Time
	mutex        sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		state:  CircuitBreakerClosed,
		now:    time.Now,
	}
}

// Allow reports whether an attempt may be made. An open circuit moves to
// half-open once Timeout has passed since it opened.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case CircuitBreakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.Timeout {
			return false
		}
		cb.state = CircuitBreakerHalfOpen
		cb.successCount = 0
		return true
	default:
		return true
	}
}

// Record records the result of an attempt.
func (cb *CircuitBreaker) Record(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err != nil {
		cb.failureCount++
		switch cb.state {
		case CircuitBreakerClosed:
			if cb.failureCount >= cb.config.FailureThreshold {
				cb.trip()
			}
		case CircuitBreakerHalfOpen:
			cb.trip()
		}
		return
	}

	cb.successCount++
	switch cb.state {
	case CircuitBreakerHalfOpen:
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = CircuitBreakerClosed
			cb.failureCount = 0
		}
	case CircuitBreakerClosed:
		cb.failureCount = 0
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = CircuitBreakerOpen
	cb.openedAt = cb.now()
	cb.successCount = 0
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// FailureCount returns the current consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failureCount
}
