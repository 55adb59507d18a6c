// Package events publishes terminal delivery statuses to Kafka.
package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/lattiq/mailrelay/internal/core"
	"github.com/lattiq/mailrelay/internal/metrics"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("kafka publisher is closed")

// KafkaConfig configures the status event stream.
type KafkaConfig struct {
	// Brokers is the list of bootstrap brokers (host:port).
	Brokers []string `yaml:"brokers"`

	// Topic receives one message per terminal status.
	Topic string `yaml:"topic"`

	// WriteTimeout bounds a single write. Defaults to 10s.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// TLS enables TLS to the brokers.
	TLS bool `yaml:"tls"`

	// Username and Password enable SASL/PLAIN when set.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes status events as JSON, keyed by message id so that
// events for one id stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewKafkaPublisher creates a publisher for the configured topic.
func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &kafka.Transport{}
	if cfg.TLS {
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.Username != "" {
		transport.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafka.RequireAll,
		Transport:              transport,
		AllowAutoTopicCreation: false,
	}

	logger.Info("kafka status publisher created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.Bool("tls_enabled", cfg.TLS),
		zap.Bool("sasl_enabled", cfg.Username != ""))

	return newPublisher(writer, cfg.Topic, logger), nil
}

func newPublisher(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		logger: logger.Named("kafka-events"),
	}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, event core.StatusEvent) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		metrics.StatusEventsPublished.WithLabelValues("closed").Inc()
		return ErrPublisherClosed
	}
	p.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		metrics.StatusEventsPublished.WithLabelValues("serialization").Inc()
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(event.Status.String())},
			{Key: "attempts", Value: []byte(strconv.Itoa(event.Attempts))},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.StatusEventsPublished.WithLabelValues("error").Inc()
		p.logger.Warn("failed to publish status event",
			zap.String("id", event.ID),
			zap.String("topic", p.topic),
			zap.Error(err))
		return fmt.Errorf("failed to write status event: %w", err)
	}

	metrics.StatusEventsPublished.WithLabelValues("success").Inc()
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	p.logger.Info("closing kafka status publisher", zap.String("topic", p.topic))
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}
