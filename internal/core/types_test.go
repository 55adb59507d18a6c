package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail_Validate(t *testing.T) {
	var nilEmail *Email
	var verr *ValidationError

	require.ErrorAs(t, nilEmail.Validate(), &verr)
	assert.Equal(t, "email", verr.Field)

	require.ErrorAs(t, (&Email{To: "user@example.com"}).Validate(), &verr)
	assert.Equal(t, "id", verr.Field)

	assert.NoError(t, (&Email{ID: "a"}).Validate(), "content is not inspected")
}

func TestDeliveryStatus_Text(t *testing.T) {
	for _, s := range []DeliveryStatus{StatusNotFound, StatusQueued, StatusSuccess, StatusFailed, StatusDuplicate} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back DeliveryStatus
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	var s DeliveryStatus
	require.NoError(t, s.UnmarshalText([]byte("Not Found")))
	assert.Equal(t, StatusNotFound, s)
	assert.Error(t, s.UnmarshalText([]byte("Sent")))
}

func TestDeliveryStatus_Terminal(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusDuplicate.Terminal())
	assert.False(t, StatusNotFound.Terminal())
}

func TestStatusEvent_JSON(t *testing.T) {
	data, err := json.Marshal(StatusEvent{ID: "a", Status: StatusFailed, Attempts: 6, Error: "exhausted"})
	require.NoError(t, err)

	assert.Contains(t, string(data), `"status":"Failed"`)
	assert.Contains(t, string(data), `"attempts":6`)
	assert.NotContains(t, string(data), "provider")
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapProviderError("smtp", "dial", cause)

	assert.Equal(t, "provider smtp error [dial]: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, NewProviderError("smtp", "dial", "other message"))
	assert.NotErrorIs(t, err, NewProviderError("ses", "dial", ""))

	withStatus := &ProviderError{Provider: "sendgrid", Code: "http_error", Message: "bad request", StatusCode: 400}
	assert.Equal(t, "provider sendgrid error [http_error] (status: 400): bad request", withStatus.Error())
}

func TestValidationError(t *testing.T) {
	err := NewValidationErrorWithValue("port", "must be numeric", "abc")
	assert.Equal(t, "validation error in port: must be numeric (value: abc)", err.Error())
	assert.ErrorIs(t, err, &ValidationError{})
	assert.Equal(t, "validation error in id: id is required", NewValidationError("id", "id is required").Error())
}

func TestProviderSettings(t *testing.T) {
	ps := ProviderSettings{}
	ps.Set("region", "eu-west-1")
	assert.Equal(t, "eu-west-1", ps.Get("region"))
	assert.Empty(t, ps.Get("missing"))
}
