// Package metrics defines Prometheus metrics for the mail relay, covering
// submissions, provider attempts, fallbacks, terminal outcomes and queue depth.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailrelay_submissions_total",
		Help: "Total number of submissions grouped by result (queued, duplicate, rejected)",
	}, []string{"result"})

	// Provider attempt metrics
	SendAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailrelay_send_attempts_total",
		Help: "Total number of provider send attempts grouped by outcome",
	}, []string{"provider", "outcome"})
	ProviderExhausted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailrelay_provider_exhausted_total",
		Help: "Total number of times a provider ran out of retries and delivery fell back",
	}, []string{"provider"})
	ProviderSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailrelay_provider_skipped_total",
		Help: "Total number of times a provider was skipped because its circuit was open",
	}, []string{"provider"})

	// Terminal outcomes
	Delivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailrelay_delivered_total",
		Help: "Total number of messages delivered, by the provider that accepted them",
	}, []string{"provider"})
	DeliveryFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_delivery_failed_total",
		Help: "Total number of messages that exhausted every provider",
	})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mailrelay_queue_depth",
		Help: "Number of messages waiting in the dispatch queue",
	})
	RateLimitWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mailrelay_rate_limit_wait_seconds",
		Help:    "Time the drain worker spent waiting on the send rate limit",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
	})

	// HTTP boundary
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailrelay_http_requests_total",
		Help: "Total number of HTTP requests grouped by route and status code",
	}, []string{"route", "code"})
	StatusEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailrelay_status_events_published_total",
		Help: "Total number of status events published to the event stream grouped by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(Submissions)
	prometheus.MustRegister(SendAttempts)
	prometheus.MustRegister(ProviderExhausted)
	prometheus.MustRegister(ProviderSkipped)
	prometheus.MustRegister(Delivered)
	prometheus.MustRegister(DeliveryFailed)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(RateLimitWait)
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(StatusEventsPublished)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
