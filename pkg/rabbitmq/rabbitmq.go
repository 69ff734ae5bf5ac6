package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tienda/pkg/logger"

	amqp "github.com/streadway/amqp"
	"go.uber.org/multierr"
)

const (
	DefaultExchange = "tienda.orders"
	DefaultQueue    = "tienda.order_events"
	// BindingKey matches every order.* routing key.
	BindingKey = "order.#"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex

	exchange string
	queue    string
	log      *logger.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
	Queue    string
}

// NewClient connects to RabbitMQ, declares the topic exchange and binds the
// order events queue to it.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declare(ch, cfg); err != nil {
		return nil, multierr.Combine(err, ch.Close(), conn.Close())
	}

	log.Info(log.WithField(context.Background(), "exchange", cfg.Exchange), "rabbitmq client connected")

	return &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		log:      log,
	}, nil
}

func declare(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}
	if err := ch.QueueBind(cfg.Queue, BindingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.Queue, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errs
}

// Publish sends payload as a persistent JSON message on the exchange.
func (c *Client) Publish(ctx context.Context, routingKey string, payload any) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}
	msg, err := newPublishing(payload, time.Now())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	err = c.channel.Publish(c.exchange, routingKey, false, false, msg)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	c.log.Debug(c.log.WithField(ctx, "routing_key", routingKey), "order event published")
	return nil
}

func newPublishing(payload any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
	}, nil
}

// Handler processes one delivery. Returning ErrDrop discards the message instead
// of requeueing it.
type Handler func(ctx context.Context, routingKey string, body []byte) error

// ErrDrop marks deliveries that will never succeed, such as malformed bodies.
var ErrDrop = errors.New("drop message")

// ConsumeOrderEvents consumes the order events queue until ctx is cancelled.
func (c *Client) ConsumeOrderEvents(ctx context.Context, handle Handler) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	c.mu.Lock()
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.dispatch(ctx, msg, handle)
			}
		}
	}()
	return nil
}

func (c *Client) dispatch(ctx context.Context, msg amqp.Delivery, handle Handler) {
	msgCtx := c.log.WithFields(ctx, map[string]any{"routing_key": msg.RoutingKey, "delivery_tag": msg.DeliveryTag})
	err := handle(msgCtx, msg.RoutingKey, msg.Body)
	var ackErr error
	switch {
	case err == nil:
		ackErr = msg.Ack(false)
	case errors.Is(err, ErrDrop):
		c.log.Warn(msgCtx, "dropping order event", err)
		ackErr = msg.Nack(false, false)
	default:
		c.log.Error(msgCtx, "order event handler failed, requeueing", err)
		ackErr = msg.Nack(false, true)
	}
	if ackErr != nil {
		c.log.Error(msgCtx, "failed to acknowledge order event", ackErr)
	}
}
