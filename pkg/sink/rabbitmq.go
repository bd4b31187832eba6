package sink

import (
	"context"
	"crypto/tls"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/queuebridge/tap-mssql/pkg/config"
)

// RabbitMQ publishes messages to a queue through the default
// exchange.
type RabbitMQ struct {
	cfg     *config.BrokerConfig
	conn    *amqp.Connection
	channel *amqp.Channel
	ctx     context.Context
}

// NewRabbitMQ validates the configuration and prepares a publisher.
func NewRabbitMQ(ctx context.Context, cfg *config.BrokerConfig) (*RabbitMQ, error) {
	if cfg.Queue == "" {
		return nil, fmt.Errorf("queue name is required for RabbitMQ")
	}

	resolved := *cfg
	if resolved.Host == "" {
		resolved.Host = "localhost"
	}
	if resolved.Port == 0 {
		if resolved.UseTLS {
			resolved.Port = 5671
		} else {
			resolved.Port = 5672
		}
	}
	if resolved.VHost == "" {
		resolved.VHost = "/"
	}

	return &RabbitMQ{cfg: &resolved, ctx: ctx}, nil
}

// Connect dials the broker and declares the queue. Queue parameters
// must match an existing queue of the same name.
func (r *RabbitMQ) Connect(ctx context.Context) error {
	scheme := "amqp"
	if r.cfg.UseTLS {
		scheme = "amqps"
	}

	connStr := fmt.Sprintf("%s://%s:%s@%s:%d/%s",
		scheme, r.cfg.User, r.cfg.Password, r.cfg.Host, r.cfg.Port, r.cfg.VHost)

	var err error
	if r.cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: r.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		r.conn, err = amqp.DialTLS(connStr, tlsConfig)
	} else {
		r.conn, err = amqp.Dial(connStr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = r.channel.QueueDeclare(
		r.cfg.Queue,
		r.cfg.Durable,
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		r.channel.Close()
		r.conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	return nil
}

// WriteMessage publishes one serialized Singer message.
func (r *RabbitMQ) WriteMessage(p []byte) error {
	if r.channel == nil {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	body := make([]byte, len(p))
	copy(body, p)

	err := r.channel.PublishWithContext(
		r.ctx,
		"",          // default exchange
		r.cfg.Queue, // routing key = queue name
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the channel and connection.
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
