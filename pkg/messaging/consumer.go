package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/motorlog/motorlog-backend/pkg/logger"
)

// MessageHandler processes a single delivered event. Returning an error
// requeues the event until its delivery attempts run out.
type MessageHandler func(ctx context.Context, event *Event) error

// maxDeliveryAttempts before a failing event is parked on the dead letter
// queue instead of being redelivered.
const maxDeliveryAttempts = 3

// Consumer dispatches events from one queue to per-type handlers.
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	handlers  map[string]MessageHandler
	logger    *logger.Logger
}

// NewConsumer declares the queue (and its dead letter companion) and
// returns a consumer for it.
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if _, err := rmq.DeclareQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}, nil
}

// Subscribe binds the queue to an exchange with a routing key pattern. The
// exchanges themselves are declared when the connection comes up.
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start begins consuming in the background until ctx is cancelled. A closed
// delivery channel triggers a reconnect and the consumer resumes on the new
// connection.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go c.run(ctx, deliveries)
	return nil
}

func (c *Consumer) consume() (<-chan amqp.Delivery, error) {
	return c.rmq.Channel().Consume(
		c.queueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
}

func (c *Consumer) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
			return
		case msg, ok := <-deliveries:
			if !ok {
				if err := c.rmq.Reconnect(ctx); err != nil {
					c.logger.Error().Err(err).Str("queue", c.queueName).
						Msg("lost broker connection and could not reconnect")
					return
				}
				next, err := c.consume()
				if err != nil {
					c.logger.Error().Err(err).Str("queue", c.queueName).
						Msg("failed to resume consuming after reconnect")
					return
				}
				deliveries = next
				continue
			}
			c.dispatch(ctx, msg)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queueName).Msg("dropping undecodable message")
		// Straight to the DLQ; redelivery cannot fix a broken payload.
		msg.Reject(false)
		return
	}

	handler, ok := c.handlers[event.Type]
	if !ok {
		// Topic bindings can be broader than the handled set.
		msg.Ack(false)
		return
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		attempts := deliveryAttempts(msg) + 1
		failure := c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Int("attempts", attempts)

		if attempts >= maxDeliveryAttempts {
			failure.Msg("handler kept failing, parking event on the dead letter queue")
			msg.Reject(false)
		} else {
			failure.Msg("handler failed, requeueing event")
			msg.Nack(false, true)
		}
		return
	}

	msg.Ack(false)
}

// deliveryAttempts counts prior failed deliveries from the x-death header
// the broker stamps on dead-lettered messages.
func deliveryAttempts(msg amqp.Delivery) int {
	deaths, ok := msg.Headers["x-death"].([]interface{})
	if !ok {
		return 0
	}

	for _, death := range deaths {
		if d, ok := death.(amqp.Table); ok {
			if count, ok := d["count"].(int64); ok {
				return int(count)
			}
		}
	}
	return 0
}
