// Package simulated provides a provider that succeeds at random, for demos and
// load experiments without a real transport.
package simulated

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lattiq/mailrelay/internal/core"
)

// Provider accepts a message with probability successRate after an optional latency.
type Provider struct {
	successRate float64
	latency     time.Duration
	roll        func() float64
	sent        atomic.Int64
}

// NewProvider creates a simulated provider.
// Settings: success_rate (0..1, default 0.5) and latency (Go duration, default 0).
func NewProvider(settings core.ProviderSettings) (core.Provider, error) {
	p := &Provider{successRate: 0.5, roll: rand.Float64}

	if v := settings.Get("success_rate"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 || rate > 1 {
			return nil, core.NewValidationErrorWithValue("success_rate", "must be a number between 0 and 1", v)
		}
		p.successRate = rate
	}

	if v := settings.Get("latency"); v != "" {
		latency, err := time.ParseDuration(v)
		if err != nil || latency < 0 {
			return nil, core.NewValidationErrorWithValue("latency", "must be a non-negative duration", v)
		}
		p.latency = latency
	}

	return p, nil
}

// Send simulates a delivery attempt.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, core.WrapProviderError(p.Name(), "timeout", ctx.Err())
		case <-timer.C:
		}
	}

	if p.roll() >= p.successRate {
		return nil, core.NewProviderError(p.Name(), "simulated_failure", "simulated provider rejected the message")
	}

	n := p.sent.Add(1)
	return &core.SendResult{
		MessageID: "sim-" + strconv.FormatInt(n, 10),
		Provider:  p.Name(),
		Timestamp: time.Now(),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "simulated"
}
