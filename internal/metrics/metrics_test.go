package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	SendAttempts.WithLabelValues("test-provider", "failure").Inc()
	if v := testutil.ToFloat64(SendAttempts.WithLabelValues("test-provider", "failure")); v < 1 {
		t.Fatalf("expected SendAttempts >= 1, got %v", v)
	}
	Delivered.WithLabelValues("test-provider").Inc()
	if v := testutil.ToFloat64(Delivered.WithLabelValues("test-provider")); v < 1 {
		t.Fatalf("expected Delivered >= 1, got %v", v)
	}
}

func TestMetricsHandlerExposesRegisteredMetrics(t *testing.T) {
	DeliveryFailed.Inc()

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "mailrelay_delivery_failed_total") {
		t.Fatalf("expected metrics output to contain mailrelay_delivery_failed_total")
	}
}
