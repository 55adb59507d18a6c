package mailrelay

import (
	"context"
)

// Public interfaces for the relay
type (
	// Service defines the dispatch surface collaborators depend on.
	// All methods are safe for concurrent use.
	Service interface {
		// Submit accepts a message for asynchronous delivery.
		// Returns StatusQueued or StatusDuplicate, or an error when the message
		// has no id or the service is closed.
		Submit(ctx context.Context, email *Email) (DeliveryStatus, error)

		// Status reports what is known about an id without blocking.
		Status(id string) DeliveryStatus

		// Wait blocks until every accepted message has reached a terminal status.
		Wait(ctx context.Context) error

		// Close stops accepting messages and waits for the queue to drain.
		Close(ctx context.Context) error
	}
)

var _ Service = (*Dispatcher)(nil)
