// Package mailrelay delivers transactional email exactly once on top of
// unreliable providers.
//
// A Dispatcher accepts messages keyed by a caller-assigned id, rejects ids it
// has already delivered or is still working on, and sends queued messages one
// at a time through an ordered list of providers. Each provider is retried
// with exponential backoff before the next one is tried. Outbound sends are
// spaced by a fixed interval derived from the configured rate.
//
// # Basic Usage
//
//	d, err := mailrelay.New(mailrelay.DefaultConfig(),
//		mailrelay.WithSendGrid(os.Getenv("SENDGRID_API_KEY"), "noreply@example.com"),
//		mailrelay.WithAWSSES("us-east-1", "noreply@example.com"),
//		mailrelay.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer d.Close(context.Background())
//
//	status, err := d.Submit(ctx, &mailrelay.Email{
//		ID:      "order-1042-receipt",
//		To:      "user@example.com",
//		Subject: "Your receipt",
//		Body:    "Thanks for your order.",
//	})
//
// Submit returns StatusQueued or StatusDuplicate. Delivery happens in the
// background; poll Status(id) for StatusSuccess or StatusFailed, or register a
// StatusListener to be told.
//
// # Supported Providers
//
//   - AWS SES
//   - SendGrid
//   - Mailgun
//   - Generic SMTP
//   - Simulated (configurable success rate, for demos and load tests)
//
// # Delivery Semantics
//
//   - An id that reached StatusSuccess is never sent again.
//   - Terminal statuses are write-once.
//   - Messages are sent in submission order by a single worker.
//   - A provider gets Retry.MaxRetries attempts, separated by
//     BackoffUnit * BackoffFactor^attempt, before fallback.
//   - Any error, nil result or panic from a provider counts as a failed attempt.
//
// State lives in memory only and is lost on restart.
package mailrelay
