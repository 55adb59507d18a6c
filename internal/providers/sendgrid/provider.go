package sendgrid

import (
	"context"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/lattiq/mailrelay/internal/core"
)

// Provider implements the core.Provider interface for SendGrid.
type Provider struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewProvider creates a new SendGrid provider.
func NewProvider(settings core.ProviderSettings) (core.Provider, error) {
	apiKey := settings.Get("api_key")
	if apiKey == "" {
		return nil, core.NewValidationError("api_key", "SendGrid API key is required")
	}

	from := settings.Get("from")
	if from == "" {
		return nil, core.NewValidationError("from", "sender address is required")
	}

	return &Provider{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(settings.Get("from_name"), from),
	}, nil
}

// Send sends a single email using SendGrid.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	to := mail.NewEmail("", email.To)
	message := mail.NewSingleEmail(p.from, email.Subject, to, email.Body, "")

	// relay_id is echoed back on SendGrid webhook events.
	message.SetCustomArg("relay_id", email.ID)

	response, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return nil, core.WrapProviderError(p.Name(), "send_error", err)
	}

	if response.StatusCode >= 400 {
		return nil, &core.ProviderError{
			Provider:   p.Name(),
			Code:       "api_error",
			Message:    "SendGrid API error: " + response.Body,
			StatusCode: response.StatusCode,
		}
	}

	// SendGrid returns the message id in the X-Message-Id header
	messageID := response.Headers["X-Message-Id"]
	if len(messageID) == 0 {
		messageID = []string{"unknown"}
	}

	return &core.SendResult{
		MessageID: messageID[0],
		Provider:  p.Name(),
		Timestamp: time.Now(),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "sendgrid"
}
