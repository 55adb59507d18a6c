package mailrelay

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StatusListener receives an event after an id reaches a terminal status.
// Publish is called from the drain worker; implementations should return promptly.
type StatusListener interface {
	Publish(ctx context.Context, event StatusEvent) error
}

// StatusListenerFunc adapts a function to the StatusListener interface.
type StatusListenerFunc func(ctx context.Context, event StatusEvent) error

// Publish calls f(ctx, event).
func (f StatusListenerFunc) Publish(ctx context.Context, event StatusEvent) error {
	return f(ctx, event)
}

const listenerTimeout = 5 * time.Second

// notify hands the event to every listener. Errors are logged and dropped.
func notify(log *zap.SugaredLogger, listeners []StatusListener, event StatusEvent) {
	if len(listeners) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), listenerTimeout)
	defer cancel()

	for _, l := range listeners {
		if err := publishSafely(ctx, l, event); err != nil {
			log.Warnw("status listener failed", "id", event.ID, "status", event.Status.String(), "error", err)
		}
	}
}

func publishSafely(ctx context.Context, l StatusListener, event StatusEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return l.Publish(ctx, event)
}
