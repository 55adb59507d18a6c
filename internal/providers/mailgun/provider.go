package mailgun

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/lattiq/mailrelay/internal/core"
)

// Provider implements the core.Provider interface for Mailgun.
type Provider struct {
	client mailgun.Mailgun
	from   string
}

// NewProvider creates a new Mailgun provider.
func NewProvider(settings core.ProviderSettings) (core.Provider, error) {
	apiKey := settings.Get("api_key")
	if apiKey == "" {
		return nil, core.NewValidationError("api_key", "Mailgun API key is required")
	}

	domain := settings.Get("domain")
	if domain == "" {
		return nil, core.NewValidationError("domain", "Mailgun domain is required")
	}

	from := settings.Get("from")
	if from == "" {
		return nil, core.NewValidationError("from", "sender address is required")
	}

	client := mailgun.NewMailgun(domain, apiKey)

	// Set base URL if provided (for EU customers)
	if baseURL := settings.Get("base_url"); baseURL != "" {
		client.SetAPIBase(baseURL)
	}

	return &Provider{
		client: client,
		from:   from,
	}, nil
}

// Send sends a single email using Mailgun.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	message := mailgun.NewMessage(p.from, email.Subject, email.Body, email.To)

	if err := message.AddVariable("relay_id", email.ID); err != nil {
		return nil, core.WrapProviderError(p.Name(), "variable_add_failed", err)
	}

	// Mailgun v4 returns 3 values: mes, id, err
	mes, id, err := p.client.Send(ctx, message)
	if err != nil {
		return nil, core.WrapProviderError(p.Name(), "send_failed", err)
	}

	return &core.SendResult{
		MessageID: id,
		Provider:  p.Name(),
		Timestamp: time.Now(),
		Metadata: map[string]interface{}{
			"message": mes,
		},
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mailgun"
}
