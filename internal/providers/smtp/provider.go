package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/lattiq/mailrelay/internal/core"
)

// Provider implements the core.Provider interface for SMTP relays.
type Provider struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewProvider creates a new SMTP provider.
func NewProvider(settings core.ProviderSettings) (core.Provider, error) {
	host := settings.Get("host")
	if host == "" {
		return nil, core.NewValidationError("host", "SMTP host is required")
	}

	portValue := settings.Get("port")
	if portValue == "" {
		return nil, core.NewValidationError("port", "SMTP port is required")
	}
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, core.NewValidationErrorWithValue("port", "invalid port number", portValue)
	}

	from := settings.Get("from")
	if from == "" {
		return nil, core.NewValidationError("from", "sender address is required")
	}

	d := gomail.NewDialer(host, port, settings.Get("username"), settings.Get("password"))
	if settings.Get("tls_skip_verify") == "true" {
		d.TLSConfig = &tls.Config{ServerName: host, InsecureSkipVerify: true} // #nosec G402 -- opt-in for test relays
	}
	if settings.Get("ssl") == "true" {
		d.SSL = true
	}

	return &Provider{
		dialer:   d,
		from:     from,
		fromName: settings.Get("from_name"),
	}, nil
}

// Send sends a single email over SMTP. The dial is abandoned when ctx is done.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	msg := p.buildMessage(email)

	done := make(chan error, 1)
	go func() {
		done <- p.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return nil, core.WrapProviderError(p.Name(), "timeout", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, core.WrapProviderError(p.Name(), "send_error", err)
		}
	}

	return &core.SendResult{
		MessageID: messageID(email, p.dialer.Host),
		Provider:  p.Name(),
		Timestamp: time.Now(),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}

func (p *Provider) buildMessage(email *core.Email) *gomail.Message {
	msg := gomail.NewMessage()
	if p.fromName != "" {
		msg.SetAddressHeader("From", p.from, p.fromName)
	} else {
		msg.SetHeader("From", p.from)
	}
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetHeader("Message-ID", "<"+messageID(email, p.dialer.Host)+">")
	msg.SetHeader("X-Relay-ID", email.ID)
	msg.SetDateHeader("Date", time.Now())
	msg.SetBody("text/plain", email.Body)
	return msg
}

// messageID derives a stable Message-ID so retried sends of the same email
// carry the same identifier.
func messageID(email *core.Email, host string) string {
	local := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, email.ID)
	return fmt.Sprintf("%s@%s", local, host)
}
