package mailrelay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/lattiq/mailrelay/internal/core"
	"github.com/lattiq/mailrelay/internal/metrics"
	"github.com/lattiq/mailrelay/internal/providers"
	"github.com/lattiq/mailrelay/internal/store"
)

// Type aliases to re-export core types for the public API.
// This allows users to write mailrelay.Email instead of core.Email
// while the implementation stays internal.
type (
	Provider         = core.Provider
	ProviderSettings = core.ProviderSettings
	Email            = core.Email
	SendResult       = core.SendResult
	DeliveryStatus   = core.DeliveryStatus
	StatusEvent      = core.StatusEvent
	ValidationError  = core.ValidationError
	ProviderError    = core.ProviderError
)

// Delivery statuses.
const (
	StatusNotFound  = core.StatusNotFound
	StatusQueued    = core.StatusQueued
	StatusSuccess   = core.StatusSuccess
	StatusFailed    = core.StatusFailed
	StatusDuplicate = core.StatusDuplicate
)

// Error constructor functions
var (
	NewValidationError          = core.NewValidationError
	NewValidationErrorWithValue = core.NewValidationErrorWithValue
	NewProviderError            = core.NewProviderError
	WrapProviderError           = core.WrapProviderError
)

const tracerName = "github.com/lattiq/mailrelay"

type providerHandle struct {
	name    string
	client  Provider
	breaker *CircuitBreaker
}

// outcome is the result of driving one message through the provider chain.
type outcome struct {
	result   *SendResult
	provider string
	attempts int
	err      error
}

// Dispatcher accepts messages, dedupes them by id and delivers them one at a
// time through an ordered list of providers. All methods are safe for
// concurrent use.
type Dispatcher struct {
	config    Config
	providers []*providerHandle
	retry     *RetryPolicy
	limiter   *RateLimiter
	statuses  *store.Statuses
	delivered *store.DedupIndex
	listeners []StatusListener
	log       *zap.SugaredLogger
	tracer    trace.Tracer

	mu       sync.Mutex
	queue    []*Email
	pending  map[string]struct{}
	draining bool
	idle     chan struct{}
	closed   bool
}

// New creates a dispatcher from the configuration and options. Options are
// applied on top of config before it is validated.
func New(config Config, opts ...Option) (*Dispatcher, error) {
	for _, opt := range opts {
		opt(&config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		config:    config,
		retry:     NewRetryPolicy(config.Retry),
		limiter:   NewRateLimiter(config.RateLimit),
		statuses:  store.NewStatuses(),
		delivered: store.NewDedupIndex(),
		listeners: append([]StatusListener(nil), config.Listeners...),
		log:       logger.Named("dispatcher").Sugar(),
		pending:   make(map[string]struct{}),
	}

	if config.Monitoring.Tracing.Enabled {
		d.tracer = otel.Tracer(tracerName)
	} else {
		d.tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	for i, pc := range config.Providers {
		client := pc.Client
		if client == nil {
			p, err := providers.New(string(pc.Type), pc.Settings)
			if err != nil {
				return nil, fmt.Errorf("failed to create provider %d (%s): %w", i, pc.Type, err)
			}
			client = p
		}

		name := pc.Name
		if name == "" {
			name = client.Name()
		}

		h := &providerHandle{name: name, client: client}
		if config.CircuitBreaker.Enabled {
			h.breaker = NewCircuitBreaker(config.CircuitBreaker)
		}
		d.providers = append(d.providers, h)
	}

	return d, nil
}

// Submit accepts a message for delivery. It returns StatusQueued when the
// message was enqueued and StatusDuplicate when its id was already delivered
// or is still queued or in flight. Delivery outcomes are reported by Status,
// never by Submit.
func (d *Dispatcher) Submit(ctx context.Context, email *Email) (DeliveryStatus, error) {
	_, span := d.tracer.Start(ctx, "mailrelay.Dispatcher.Submit")
	defer span.End()

	if err := email.Validate(); err != nil {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return StatusNotFound, err
	}
	span.SetAttributes(attribute.String("mailrelay.id", email.ID))

	msg := *email

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		metrics.Submissions.WithLabelValues("rejected").Inc()
		span.RecordError(ErrDispatcherClosed)
		span.SetStatus(codes.Error, ErrDispatcherClosed.Error())
		return StatusNotFound, ErrDispatcherClosed
	}

	_, inFlight := d.pending[msg.ID]
	if inFlight || d.delivered.Contains(msg.ID) {
		d.mu.Unlock()
		metrics.Submissions.WithLabelValues("duplicate").Inc()
		d.log.Infow("duplicate submission", "id", msg.ID, "pending", inFlight)
		span.SetAttributes(attribute.String("mailrelay.status", StatusDuplicate.String()))
		return StatusDuplicate, nil
	}

	d.queue = append(d.queue, &msg)
	d.pending[msg.ID] = struct{}{}
	metrics.QueueDepth.Set(float64(len(d.queue)))
	d.startDrainLocked()
	d.mu.Unlock()

	metrics.Submissions.WithLabelValues("queued").Inc()
	span.SetAttributes(attribute.String("mailrelay.status", StatusQueued.String()))
	return StatusQueued, nil
}

// Status returns the recorded terminal status for id, StatusQueued while the
// id is queued or in flight, or StatusNotFound.
func (d *Dispatcher) Status(id string) DeliveryStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	if status, ok := d.statuses.Get(id); ok {
		return status
	}
	if _, ok := d.pending[id]; ok {
		return StatusQueued
	}
	return StatusNotFound
}

// QueueLength returns the number of messages waiting to be sent, excluding
// the one currently in flight.
func (d *Dispatcher) QueueLength() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Wait blocks until the drain worker is idle or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	for {
		d.mu.Lock()
		if !d.draining {
			d.mu.Unlock()
			return nil
		}
		idle := d.idle
		d.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting submissions and waits for queued messages to reach a
// terminal status. If ctx ends first the drain keeps running in the background
// and ctx's error is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	return d.Wait(ctx)
}

// startDrainLocked starts the drain worker unless one is running. d.mu must be held.
func (d *Dispatcher) startDrainLocked() {
	if d.draining {
		return
	}
	d.draining = true
	d.idle = make(chan struct{})
	go d.drain(d.idle)
}

func (d *Dispatcher) drain(idle chan struct{}) {
	defer close(idle)

	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.draining = false
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()

		waited := d.limiter.Wait()
		metrics.RateLimitWait.Observe(waited.Seconds())

		d.mu.Lock()
		email := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		metrics.QueueDepth.Set(float64(len(d.queue)))
		d.mu.Unlock()

		if d.process(email) {
			d.limiter.Done()
		}
	}
}

// process drives one message to a terminal status. It reports whether the
// message was handed to the provider chain.
func (d *Dispatcher) process(email *Email) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("recovered panic while processing message", "id", email.ID, "panic", r)
			d.finish(email, &outcome{err: &panicError{value: r}})
			sent = true
		}
	}()

	if d.delivered.Contains(email.ID) {
		d.mu.Lock()
		delete(d.pending, email.ID)
		d.mu.Unlock()
		d.log.Infow("skipping already delivered message", "id", email.ID)
		return false
	}

	ctx, span := d.tracer.Start(context.Background(), "mailrelay.Dispatcher.deliver",
		trace.WithAttributes(attribute.String("mailrelay.id", email.ID)))
	defer span.End()

	out := d.deliver(ctx, email)

	span.SetAttributes(attribute.Int("mailrelay.attempts", out.attempts))
	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, "delivery failed")
		span.SetAttributes(attribute.String("mailrelay.status", StatusFailed.String()))
	} else {
		span.SetAttributes(
			attribute.String("mailrelay.provider", out.provider),
			attribute.String("mailrelay.message_id", out.result.MessageID),
			attribute.String("mailrelay.status", StatusSuccess.String()),
		)
		span.SetStatus(codes.Ok, "email delivered")
	}

	d.finish(email, out)
	return true
}

// deliver tries each provider in order, up to MaxRetries attempts each.
func (d *Dispatcher) deliver(ctx context.Context, email *Email) *outcome {
	exhausted := &ExhaustedError{ID: email.ID}
	total := 0

	for i, p := range d.providers {
		if p.breaker != nil && !p.breaker.Allow() {
			metrics.ProviderSkipped.WithLabelValues(p.name).Inc()
			d.log.Warnw("provider circuit open, skipping", "id", email.ID, "provider", p.name)
			exhausted.Attempts = append(exhausted.Attempts, ProviderAttempts{Provider: p.name, Skipped: true})
			continue
		}

		attempt := 0
		for d.retry.ShouldRetry(attempt) {
			result, err := d.attempt(ctx, p, email)
			total++
			if err == nil {
				metrics.SendAttempts.WithLabelValues(p.name, "success").Inc()
				return &outcome{result: result, provider: p.name, attempts: total}
			}

			metrics.SendAttempts.WithLabelValues(p.name, "failure").Inc()
			exhausted.Last = err
			attempt++

			if !d.retry.ShouldRetry(attempt) {
				d.log.Warnw("send attempt failed", "id", email.ID, "provider", p.name, "attempt", attempt, "error", err)
				break
			}
			if p.breaker != nil && !p.breaker.Allow() {
				d.log.Warnw("send attempt failed, provider circuit opened", "id", email.ID, "provider", p.name, "attempt", attempt, "error", err)
				break
			}

			delay := d.retry.Delay(attempt)
			d.log.Warnw("send attempt failed, retrying", "id", email.ID, "provider", p.name, "attempt", attempt, "backoff", delay, "error", err)
			time.Sleep(delay)
		}

		exhausted.Attempts = append(exhausted.Attempts, ProviderAttempts{Provider: p.name, Attempts: attempt})
		metrics.ProviderExhausted.WithLabelValues(p.name).Inc()
		if i < len(d.providers)-1 {
			d.log.Warnw("provider exhausted, falling back", "id", email.ID, "provider", p.name, "attempts", attempt, "next", d.providers[i+1].name)
		} else {
			d.log.Warnw("provider exhausted", "id", email.ID, "provider", p.name, "attempts", attempt)
		}
	}

	return &outcome{attempts: total, err: exhausted}
}

// attempt makes a single Send call. Errors, a nil result and panics are all failures.
func (d *Dispatcher) attempt(ctx context.Context, p *providerHandle, email *Email) (result *SendResult, err error) {
	if timeout := d.config.Retry.AttemptTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &panicError{value: r}
		}
		if p.breaker != nil {
			p.breaker.Record(err)
		}
	}()

	msg := *email
	result, err = p.client.Send(ctx, &msg)
	if err == nil && result == nil {
		err = ErrEmptyResult
	}
	if err != nil {
		result = nil
	}
	return result, err
}

// finish records the terminal status, releases the pending entry and notifies listeners.
func (d *Dispatcher) finish(email *Email, out *outcome) {
	status := StatusSuccess
	if out.err != nil {
		status = StatusFailed
	}

	d.mu.Lock()
	if status == StatusSuccess {
		d.delivered.Add(email.ID)
	}
	recorded := d.statuses.Record(email.ID, status)
	existing, _ := d.statuses.Get(email.ID)
	delete(d.pending, email.ID)
	d.mu.Unlock()

	event := StatusEvent{
		ID:        email.ID,
		To:        email.To,
		Status:    status,
		Attempts:  out.attempts,
		Timestamp: time.Now().UTC(),
	}

	if status == StatusSuccess {
		metrics.Delivered.WithLabelValues(out.provider).Inc()
		event.Provider = out.provider
		event.MessageID = out.result.MessageID
		d.log.Infow("email delivered", "id", email.ID, "to", email.To, "provider", out.provider,
			"message_id", out.result.MessageID, "attempts", out.attempts)
	} else {
		metrics.DeliveryFailed.Inc()
		event.Error = out.err.Error()
		d.log.Errorw("email delivery failed", "id", email.ID, "to", email.To, "attempts", out.attempts, "error", out.err)
	}

	if !recorded {
		d.log.Warnw("terminal status already recorded, keeping it", "id", email.ID,
			"recorded", existing.String(), "outcome", status.String())
	}

	notify(d.log, d.listeners, event)
}
