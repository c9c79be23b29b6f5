package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/motorlog/motorlog-backend/pkg/config"
	"github.com/motorlog/motorlog-backend/pkg/logger"
)

// deadLetterExchange receives messages rejected after their delivery
// attempts run out. Every queue declared through DeclareQueue dead-letters
// into it, each with its own parking queue.
const deadLetterExchange = "dlx.events"

// RabbitMQ wraps a broker connection and the single channel the services
// publish and consume on. The full topology (the document and vehicle topic
// exchanges plus the dead letter exchange) is declared on every connect, so
// either service can start first against a fresh broker.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	logger  *logger.Logger
	mu      sync.RWMutex
	closed  bool
}

// New dials the broker and declares the exchange topology.
func New(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	rmq := &RabbitMQ{
		config: cfg,
		logger: log,
	}

	if err := rmq.connect(); err != nil {
		return nil, err
	}

	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(r.config.PrefetchCount, 0, false); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	for _, exchange := range []string{ExchangeDocumentEvents, ExchangeVehicleEvents, deadLetterExchange} {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			conn.Close()
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	r.conn = conn
	r.channel = ch
	r.logger.Info().Msg("connected to RabbitMQ")
	return nil
}

// Channel returns the channel for the current connection. Callers should
// fetch it per use rather than caching it, since Reconnect replaces it.
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Close shuts the connection down for good; Reconnect refuses afterwards.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close channel")
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// Health reports whether the broker connection is still open.
func (r *RabbitMQ) Health() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := map[string]string{
		"status": "up",
	}

	if r.conn == nil || r.conn.IsClosed() {
		status["status"] = "down"
		status["error"] = "connection closed"
	}

	return status
}

// DeclareQueue declares a durable queue together with its dead letter
// companion: rejected messages land on dlq.<name>, routed there by the
// queue's own name so parked messages never mix between services.
func (r *RabbitMQ) DeclareQueue(name string) (amqp.Queue, error) {
	queue, err := r.channel.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    deadLetterExchange,
			"x-dead-letter-routing-key": name,
		},
	)
	if err != nil {
		return queue, err
	}

	dlq := "dlq." + name
	if _, err := r.channel.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return queue, fmt.Errorf("failed to declare %s: %w", dlq, err)
	}
	if err := r.channel.QueueBind(dlq, name, deadLetterExchange, false, nil); err != nil {
		return queue, fmt.Errorf("failed to bind %s: %w", dlq, err)
	}

	return queue, nil
}

// BindQueue binds a queue to an exchange with a routing key pattern.
func (r *RabbitMQ) BindQueue(queueName, exchange, routingKey string) error {
	return r.channel.QueueBind(
		queueName,
		routingKey,
		exchange,
		false,
		nil,
	)
}

// Reconnect re-dials the broker with the configured backoff. Consumers call
// it when their delivery channel closes underneath them; durable queues and
// bindings survive on the broker, so reconnecting is enough to resume.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("connection closed for shutdown")
	}

	var lastErr error
	for attempt := 1; attempt <= r.config.MaxRetries; attempt++ {
		if lastErr = r.connect(); lastErr == nil {
			r.logger.Info().Int("attempt", attempt).Msg("reconnected to RabbitMQ")
			return nil
		}
		r.logger.Warn().Err(lastErr).Int("attempt", attempt).Msg("reconnect attempt failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.config.ReconnectDelay):
		}
	}

	return fmt.Errorf("failed to reconnect after %d attempts: %w", r.config.MaxRetries, lastErr)
}
