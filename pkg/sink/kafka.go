package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/queuebridge/tap-mssql/pkg/config"
)

// Kafka publishes messages to a topic.
type Kafka struct {
	cfg    *config.BrokerConfig
	writer *kafka.Writer
	ctx    context.Context
}

// NewKafka validates the configuration and prepares a publisher.
func NewKafka(ctx context.Context, cfg *config.BrokerConfig) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}

	return &Kafka{cfg: cfg, ctx: ctx}, nil
}

// Connect creates the writer and verifies the brokers are reachable.
func (k *Kafka) Connect(ctx context.Context) error {
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(k.cfg.Brokers...),
		Topic:        k.cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		Compression:  kafka.Snappy,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}

	conn, err := kafka.DialContext(ctx, "tcp", k.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	return conn.Close()
}

// WriteMessage publishes one serialized Singer message.
func (k *Kafka) WriteMessage(p []byte) error {
	if k.writer == nil {
		return fmt.Errorf("not connected to Kafka")
	}

	// The writer may retain the slice across retries
	value := make([]byte, len(p))
	copy(value, p)

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("tap-mssql-%d", time.Now().UnixNano())),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "protocol", Value: []byte("singer")},
		},
	}

	if err := k.writer.WriteMessages(k.ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

// Close closes the writer.
func (k *Kafka) Close() error {
	if k.writer != nil {
		if err := k.writer.Close(); err != nil {
			return fmt.Errorf("failed to close writer: %w", err)
		}
	}
	return nil
}
