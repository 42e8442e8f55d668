package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the slice of *amqp.Channel the messaging layer uses. Keeping it
// an interface lets topology, publish, and consume logic run against fakes.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Config carries broker connection and topology settings. The declare/bind
// toggles exist because some deployments pre-provision topology out-of-band.
type Config struct {
	URL          string
	Exchange     string
	ExchangeType string

	DeclareExchange bool
	DeclareQueue    bool
	BindQueue       bool
}

// DefaultConfig returns the settings every service starts from.
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		Exchange:        "ecommerce_events",
		ExchangeType:    "direct",
		DeclareExchange: true,
		DeclareQueue:    true,
		BindQueue:       true,
	}
}

// Client owns one connection and one channel. It is constructed on service
// start and released with Close on shutdown; the channel must not be shared
// across goroutines without external synchronization.
type Client struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewClient dials the broker, opens a channel, and declares the configured
// exchange when the toggle is on.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if cfg.DeclareExchange {
		if err := NewTopology(ch).DeclareExchange(cfg.Exchange, cfg.ExchangeType, true, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	return &Client{cfg: cfg, conn: conn, ch: ch}, nil
}

func (c *Client) Channel() *amqp.Channel {
	return c.ch
}

func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
