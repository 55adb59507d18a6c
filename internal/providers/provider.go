// Package providers builds delivery providers from their type and settings.
package providers

import (
	"fmt"

	"github.com/lattiq/mailrelay/internal/core"
	"github.com/lattiq/mailrelay/internal/providers/mailgun"
	"github.com/lattiq/mailrelay/internal/providers/sendgrid"
	"github.com/lattiq/mailrelay/internal/providers/ses"
	"github.com/lattiq/mailrelay/internal/providers/simulated"
	"github.com/lattiq/mailrelay/internal/providers/smtp"
)

// Supported provider types.
const (
	TypeSES       = "aws_ses"
	TypeSendGrid  = "sendgrid"
	TypeMailgun   = "mailgun"
	TypeSMTP      = "smtp"
	TypeSimulated = "simulated"
)

// New creates a provider of the given type.
func New(providerType string, settings core.ProviderSettings) (core.Provider, error) {
	if settings == nil {
		settings = core.ProviderSettings{}
	}

	switch providerType {
	case TypeSES:
		return ses.NewProvider(settings)
	case TypeSendGrid:
		return sendgrid.NewProvider(settings)
	case TypeMailgun:
		return mailgun.NewProvider(settings)
	case TypeSMTP:
		return smtp.NewProvider(settings)
	case TypeSimulated:
		return simulated.NewProvider(settings)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// Supported reports whether providerType can be built by New.
func Supported(providerType string) bool {
	switch providerType {
	case TypeSES, TypeSendGrid, TypeMailgun, TypeSMTP, TypeSimulated:
		return true
	default:
		return false
	}
}
