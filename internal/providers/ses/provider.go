package ses

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/lattiq/mailrelay/internal/core"
)

// sendEmailAPI is the subset of the SES client used for delivery.
type sendEmailAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Provider implements the core.Provider interface for AWS SES.
type Provider struct {
	client           sendEmailAPI
	from             string
	configurationSet string
}

// NewProvider creates a new AWS SES provider.
func NewProvider(settings core.ProviderSettings) (core.Provider, error) {
	region := settings.Get("region")
	if region == "" {
		return nil, core.NewValidationError("region", "AWS region is required")
	}

	from := settings.Get("from")
	if from == "" {
		return nil, core.NewValidationError("from", "sender address is required")
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, core.NewProviderError("aws_ses", "config_error", "failed to load AWS config: "+err.Error())
	}

	// Override with explicit credentials if provided
	if accessKey := settings.Get("access_key"); accessKey != "" {
		secretKey := settings.Get("secret_key")
		if secretKey == "" {
			return nil, core.NewValidationError("secret_key", "secret key is required when access key is provided")
		}

		cfg.Credentials = aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     accessKey,
				SecretAccessKey: secretKey,
				SessionToken:    settings.Get("session_token"),
			}, nil
		})
	}

	return newWithClient(ses.NewFromConfig(cfg), settings), nil
}

func newWithClient(client sendEmailAPI, settings core.ProviderSettings) *Provider {
	return &Provider{
		client:           client,
		from:             settings.Get("from"),
		configurationSet: settings.Get("configuration_set"),
	}
}

// Send sends a single email using AWS SES.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(p.from),
		Destination: &types.Destination{
			ToAddresses: []string{email.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(email.Subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(email.Body),
				},
			},
		},
		Tags: []types.MessageTag{
			{Name: aws.String("relay_id"), Value: aws.String(sanitizeTag(email.ID))},
		},
	}

	if p.configurationSet != "" {
		input.ConfigurationSetName = aws.String(p.configurationSet)
	}

	output, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return nil, core.WrapProviderError(p.Name(), "send_error", err)
	}

	return &core.SendResult{
		MessageID: aws.ToString(output.MessageId),
		Provider:  p.Name(),
		Timestamp: time.Now(),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "aws_ses"
}

// sanitizeTag maps a value onto the SES tag alphabet: ASCII letters, digits,
// underscore and dash, at most 256 characters.
func sanitizeTag(value string) string {
	out := make([]byte, 0, len(value))
	for i := 0; i < len(value) && len(out) < 256; i++ {
		c := value[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
