package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"habitflow/internal/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

const maxDeliveryAttempts = 3

type Consumer struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	retries    *util.RetryCounter
	logger     *zap.Logger
}

// NewConsumer creates a consumer for a specific routing key.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// SetRetryCounter bounds redeliveries of failing messages. Without it a
// retryable failure requeues indefinitely.
func (c *Consumer) SetRetryCounter(rc *util.RetryCounter) {
	c.retries = rc
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming consumes messages until the context is cancelled or the
// delivery channel closes. This method blocks and should run in a goroutine.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	msgs, err := c.channel.Consume(
		c.queue.Name,
		"habitflow",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			if err := c.handler(ctx, msg.Body); err != nil {
				c.dispose(ctx, msg, err)
				continue
			}

			if err := msg.Ack(false); err != nil {
				c.logger.Error("Failed to ack message",
					zap.String("routing_key", c.routingKey),
					zap.Error(err),
				)
			}
		}
	}
}

// dispose decides the fate of a failed delivery: permanent failures are
// dropped, retryable ones requeue until the attempt budget runs out.
func (c *Consumer) dispose(ctx context.Context, msg amqp091.Delivery, handlerErr error) {
	retryable, kind := util.IsRetryableError(handlerErr)

	if !retryable {
		c.logger.Error("Handler failed permanently, dropping message",
			zap.String("routing_key", c.routingKey),
			zap.String("error_type", kind),
			zap.Error(handlerErr),
		)
		_ = msg.Nack(false, false)
		return
	}

	if c.retries != nil && msg.MessageId != "" {
		key := util.FormatRetryKey(c.queue.Name, msg.MessageId)
		count, err := c.retries.IncrementAndGet(ctx, key)
		if err == nil && count >= maxDeliveryAttempts {
			c.logger.Error("Retry budget exhausted, dropping message",
				zap.String("routing_key", c.routingKey),
				zap.String("message_id", msg.MessageId),
				zap.Int64("attempts", count),
				zap.Error(handlerErr),
			)
			_ = c.retries.Reset(ctx, key)
			_ = msg.Nack(false, false)
			return
		}
	}

	c.logger.Error("Handler failed, requeueing",
		zap.String("routing_key", c.routingKey),
		zap.String("error_type", kind),
		zap.Error(handlerErr),
	)
	_ = msg.Nack(false, true)
}
