package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider defines the interface for email delivery providers.
// Implementations handle provider-specific logic for handing a message to a transport.
type Provider interface {
	// Send delivers a single email. A nil error with a non-nil result means the
	// provider accepted the message; anything else is a failed attempt.
	Send(ctx context.Context, email *Email) (*SendResult, error)

	// Name returns the provider's label for identification and logging.
	Name() string
}

// ProviderSettings represents configuration settings for email providers.
type ProviderSettings map[string]string

// Get retrieves a configuration value by key.
func (ps ProviderSettings) Get(key string) string {
	return ps[key]
}

// Set sets a configuration value.
func (ps ProviderSettings) Set(key, value string) {
	ps[key] = value
}

// Email represents an email send request. ID is the caller-assigned idempotency key:
// two emails with the same ID are the same logical message regardless of other fields.
type Email struct {
	ID      string `json:"id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate checks that the email carries an idempotency key.
// Content is not inspected.
func (e *Email) Validate() error {
	if e == nil {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if strings.TrimSpace(e.ID) == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	return nil
}

// DeliveryStatus is the lifecycle state of a message as observed by callers.
type DeliveryStatus int

const (
	// StatusNotFound is reported for ids the dispatcher has never seen. Never stored.
	StatusNotFound DeliveryStatus = iota

	// StatusQueued means the message was accepted and is waiting or in flight.
	StatusQueued

	// StatusSuccess is terminal: a provider accepted the message.
	StatusSuccess

	// StatusFailed is terminal: every provider exhausted its retries.
	StatusFailed

	// StatusDuplicate is returned by Submit for an id that is already delivered or pending.
	StatusDuplicate
)

// String returns the string representation of the status.
func (s DeliveryStatus) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusSuccess:
		return "Success"
	case StatusFailed:
		return "Failed"
	case StatusDuplicate:
		return "Duplicate"
	default:
		return "NotFound"
	}
}

// Terminal reports whether the status is final for an id.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// MarshalText implements encoding.TextMarshaler.
func (s DeliveryStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DeliveryStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Queued":
		*s = StatusQueued
	case "Success":
		*s = StatusSuccess
	case "Failed":
		*s = StatusFailed
	case "Duplicate":
		*s = StatusDuplicate
	case "NotFound", "Not Found":
		*s = StatusNotFound
	default:
		return fmt.Errorf("unknown delivery status %q", string(text))
	}
	return nil
}

// SendResult contains the result of sending a single email.
type SendResult struct {
	// MessageID is the unique identifier assigned by the provider.
	MessageID string

	// Provider is the name of the provider that sent the email.
	Provider string

	// Timestamp when the email was accepted by the provider.
	Timestamp time.Time

	// Metadata contains provider-specific information.
	Metadata map[string]interface{}
}

// StatusEvent describes a terminal status transition. It is handed to status
// listeners after the status has been recorded.
type StatusEvent struct {
	ID        string         `json:"id"`
	To        string         `json:"to"`
	Status    DeliveryStatus `json:"status"`
	Provider  string         `json:"provider,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
	Attempts  int            `json:"attempts"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ValidationError represents a validation error with specific field information.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string

	// Message is the validation error message.
	Message string

	// Value is the invalid value (optional).
	Value interface{}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error in %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Is implements error matching for errors.Is.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ProviderError represents an error from an email provider.
type ProviderError struct {
	// Provider is the name of the provider that generated the error.
	Provider string

	// Code is the provider-specific error code.
	Code string

	// Message is the error message from the provider.
	Message string

	// StatusCode is the HTTP status code (for HTTP-based providers).
	StatusCode int

	// Cause is the underlying error that caused this provider error.
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s error [%s] (status: %d): %s",
			e.Provider, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s error [%s]: %s", e.Provider, e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is.
func (e *ProviderError) Is(target error) bool {
	pe, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Provider == pe.Provider && e.Code == pe.Code
}

// NewProviderError creates a new provider error.
func NewProviderError(provider, code, message string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
	}
}

// WrapProviderError creates a provider error carrying the underlying cause.
func WrapProviderError(provider, code string, cause error) *ProviderError {
	pe := &ProviderError{
		Provider: provider,
		Code:     code,
		Cause:    cause,
	}
	if cause != nil {
		pe.Message = cause.Error()
	}
	return pe
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewValidationErrorWithValue creates a new validation error with a value.
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
