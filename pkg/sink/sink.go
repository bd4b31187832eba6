// Package sink routes the serialized message stream somewhere other
// than stdout. Broker sinks carry one Singer message per broker
// message, so downstream consumers see the same NDJSON payloads a
// target would read from a pipe.
package sink

import (
	"context"
	"fmt"

	"github.com/queuebridge/tap-mssql/pkg/config"
)

// Publisher is a send-only broker connection implementing
// singer.Output.
type Publisher interface {
	Connect(ctx context.Context) error
	WriteMessage(p []byte) error
	Close() error
}

// New creates a publisher from the broker configuration.
func New(ctx context.Context, cfg *config.BrokerConfig) (Publisher, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafka(ctx, cfg)
	case "rabbitmq":
		return NewRabbitMQ(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %s (supported: kafka, rabbitmq)", cfg.Type)
	}
}
