package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"kanban-tracker/internal/config"
)

var ErrNack = errors.New("publish NACK from broker")

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation // publisher confirms
	mu   sync.Mutex               // one publish in flight while waiting for its confirm
}

// URL renders the AMQP connection URL for cfg.
func URL(cfg config.RabbitMQConfig) string {
	scheme := "amqp"
	if cfg.UseTLS {
		scheme = "amqps"
	}
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	u := url.URL{
		Scheme:  scheme,
		User:    url.UserPassword(cfg.User, cfg.Password),
		Host:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:    "/" + vhost,
		RawPath: "/" + url.PathEscape(vhost),
	}
	return u.String()
}

// Dial connects and opens a publishing channel in confirm mode.
func Dial(cfg config.RabbitMQConfig) (*Client, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.UseTLS {
		conn, err = amqp.DialTLS(URL(cfg), &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(URL(cfg))
	}
	if err != nil {
		return nil, fmt.Errorf("amqp dial %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareFanout declares a durable fanout exchange.
func (c *Client) DeclareFanout(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ch.ExchangeDeclare(name, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", name, err)
	}
	return nil
}

// Publish sends msg and waits for the broker's ack.
func (c *Client) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if err := c.ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return err
	}

	select {
	case conf, ok := <-c.acks:
		if !ok {
			return errors.New("rabbitmq channel closed while waiting for confirm")
		}
		if conf.Ack {
			return nil
		}
		return ErrNack
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeFanout binds a private, auto-deleted queue to the fanout exchange
// on its own channel and starts consuming with auto-ack. The returned func
// closes that channel.
func (c *Client) ConsumeFanout(exchange string) (<-chan amqp.Delivery, func() error, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	fail := func(err error) (<-chan amqp.Delivery, func() error, error) {
		_ = ch.Close()
		return nil, nil, err
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare %s: %w", exchange, err))
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fail(fmt.Errorf("queue declare: %w", err))
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fail(fmt.Errorf("queue bind %s: %w", q.Name, err))
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fail(err)
	}
	return msgs, ch.Close, nil
}
