package mailrelay

import (
	"errors"
	"fmt"
	"strings"
)

// Predefined sentinel errors for common cases.
var (
	// ErrDispatcherClosed indicates the dispatcher no longer accepts submissions.
	ErrDispatcherClosed = errors.New("dispatcher closed")

	// ErrNoProviders indicates a dispatcher was configured without providers.
	ErrNoProviders = errors.New("no providers configured")

	// ErrProvidersExhausted indicates every provider failed for a message.
	ErrProvidersExhausted = errors.New("all providers exhausted")

	// ErrEmptyResult indicates a provider returned neither a result nor an error.
	ErrEmptyResult = errors.New("provider returned no result")

	// ErrInvalidConfiguration indicates invalid configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ProviderAttempts records how a single provider fared for one message.
type ProviderAttempts struct {
	// Provider is the provider label.
	Provider string

	// Attempts is the number of Send calls made against the provider.
	Attempts int

	// Skipped is set when the provider's circuit was open and no attempt was made.
	Skipped bool
}

// ExhaustedError is returned internally when no provider accepted a message.
// It surfaces through status listeners and logs, never through Submit.
type ExhaustedError struct {
	// ID is the message id.
	ID string

	// Attempts lists each provider in fallback order.
	Attempts []ProviderAttempts

	// Last is the final error observed.
	Last error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Skipped {
			parts = append(parts, a.Provider+"=skipped")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", a.Provider, a.Attempts))
	}
	msg := fmt.Sprintf("message %s: %s (%s)", e.ID, ErrProvidersExhausted, strings.Join(parts, ", "))
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

// Unwrap returns both the exhaustion sentinel and the last provider error.
func (e *ExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrProvidersExhausted}
	}
	return []error{ErrProvidersExhausted, e.Last}
}

// TotalAttempts returns the number of Send calls across all providers.
func (e *ExhaustedError) TotalAttempts() int {
	n := 0
	for _, a := range e.Attempts {
		n += a.Attempts
	}
	return n
}

// panicError wraps a value recovered from a panic.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
