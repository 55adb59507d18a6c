package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lattiq/mailrelay/internal/core"
	"github.com/lattiq/mailrelay/internal/metrics"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed++
	return nil
}

func sampleEvent() core.StatusEvent {
	return core.StatusEvent{
		ID:        "order-7",
		To:        "user@example.com",
		Status:    core.StatusSuccess,
		Provider:  "sendgrid",
		MessageID: "sg-1",
		Attempts:  2,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "mail-status", zap.NewNop())
	before := testutil.ToFloat64(metrics.StatusEventsPublished.WithLabelValues("success"))

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "order-7", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "Success", decoded["status"])
	assert.Equal(t, "sendgrid", decoded["provider"])
	assert.Equal(t, float64(2), decoded["attempts"])

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "Success", headers["status"])
	assert.Equal(t, "2", headers["attempts"])
	assert.Equal(t, "2026-01-02T03:04:05Z", headers["timestamp"])

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.StatusEventsPublished.WithLabelValues("success")))
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newPublisher(w, "mail-status", zap.NewNop())
	before := testutil.ToFloat64(metrics.StatusEventsPublished.WithLabelValues("error"))

	err := p.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.StatusEventsPublished.WithLabelValues("error")))
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "mail-status", zap.NewNop())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)

	assert.ErrorIs(t, p.Publish(context.Background(), sampleEvent()), ErrPublisherClosed)
	assert.Empty(t, w.messages)
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "t"}, nil)
	assert.Error(t, err)

	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)

	p, err := NewKafkaPublisher(KafkaConfig{
		Brokers:  []string{"localhost:9092"},
		Topic:    "mail-status",
		TLS:      true,
		Username: "relay",
		Password: "secret",
	}, nil)
	require.NoError(t, err)

	kw, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "mail-status", kw.Topic)
	assert.Equal(t, 10*time.Second, kw.WriteTimeout)
	require.NoError(t, p.Close())
}
