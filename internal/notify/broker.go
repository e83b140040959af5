package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-be/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	DefaultExchange = "storefront.notifications"
	MailQueue       = "storefront.mail"

	publishTimeout = 5 * time.Second
	dialAttempts   = 5
)

// Broker owns the AMQP connection and the channel used for publishing.
type Broker struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// Dial connects with a short backoff and declares the topic exchange.
func Dial(url, exchange string) (*Broker, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		wait := time.Duration(i*i)*time.Second + time.Second
		logger.L().Warn("rabbitmq dial failed, retrying", zap.Duration("wait", wait), zap.Error(err))
		time.Sleep(wait)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &Broker{conn: conn, ch: ch, exchange: exchange}, nil
}

func (b *Broker) Publisher() *Publisher {
	return NewPublisher(b.ch, b.exchange)
}

// Consume declares the durable mail queue, binds every notification kind
// to it and starts a manual-ack consumer with prefetch 1.
func (b *Broker) Consume(queue string) (<-chan amqp.Delivery, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	for _, key := range []Kind{KindOrderPlaced, KindOrderCancelled, KindOrderDelivered, KindContactMessage} {
		if err := ch.QueueBind(q.Name, string(key), b.exchange, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to bind queue %s with key %s: %w", queue, key, err)
		}
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to start consuming from queue %s: %w", queue, err)
	}
	return deliveries, nil
}

func (b *Broker) Close() error {
	if b.ch != nil {
		if err := b.ch.Close(); err != nil {
			return err
		}
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher hands notifications to the broker; the notifier process
// delivers them.
type Publisher struct {
	ch       publishChannel
	exchange string
	now      func() time.Time
}

func NewPublisher(ch publishChannel, exchange string) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{ch: ch, exchange: exchange, now: time.Now}
}

func (p *Publisher) Dispatch(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,     // exchange
		string(n.Kind), // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			MessageId:    logger.RequestIDFrom(ctx),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s to exchange %s: %w", n.Kind, p.exchange, err)
	}
	return nil
}
