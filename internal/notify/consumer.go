package notify

import (
	"context"
	"encoding/json"
	"errors"

	"storefront-be/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Consumer feeds broker deliveries to a Dispatcher, one at a time.
type Consumer struct {
	handler Dispatcher
}

func NewConsumer(handler Dispatcher) *Consumer {
	return &Consumer{handler: handler}
}

// Run blocks until ctx is done or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "consumer"),
		zap.String("routing_key", d.RoutingKey),
		zap.Uint64("delivery_tag", d.DeliveryTag),
	)

	var n Notification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		log.Error("dropping undecodable notification", zap.Error(err))
		c.nack(log, d, false)
		return
	}
	if err := n.Validate(); err != nil {
		log.Error("dropping invalid notification", zap.Error(err))
		c.nack(log, d, false)
		return
	}

	if err := c.handler.Dispatch(ctx, n); err != nil {
		log.Warn("notification delivery failed, requeueing", zap.Error(err))
		c.nack(log, d, true)
		return
	}

	if err := d.Ack(false); err != nil {
		log.Error("failed to ack delivery", zap.Error(err))
	}
}

func (c *Consumer) nack(log *zap.Logger, d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		log.Error("failed to nack delivery", zap.Error(err))
	}
}
