package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned by Pop when the broker closed the consumer
var ErrDeliveriesClosed = errors.New("rabbitmq delivery channel closed")

// Config holds RabbitMQ connection configuration
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	VHost          string
	QueueName      string
	DeadLetterName string
	Durable        bool
	RetryAttempts  int
	RetryInterval  time.Duration
	Heartbeat      time.Duration
	ConsumerTag    string
}

// Client is a RabbitMQ-backed job queue. Messages are published through the
// default exchange with the queue name as routing key.
type Client struct {
	config      *Config
	conn        *amqp.Connection
	channel     *amqp.Channel
	deliveries  <-chan amqp.Delivery
	logger      *slog.Logger
	isConnected bool
}

// NewClient creates a new RabbitMQ client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config: config,
		logger: logger,
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		c.conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.declareQueues(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to declare queues: %w", err)
	}

	// one unacknowledged message at a time; Pop acks on receipt
	if err := c.channel.Qos(1, 0, false); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	c.deliveries = nil
	c.isConnected = true

	c.logger.Info("RabbitMQ client initialized",
		slog.String("queue", c.config.QueueName),
		slog.String("dead_letter", c.config.DeadLetterName),
	)

	return nil
}

func (c *Client) declareQueues() error {
	for _, name := range []string{c.config.QueueName, c.config.DeadLetterName} {
		if name == "" {
			continue
		}
		_, err := c.channel.QueueDeclare(
			name,             // name
			c.config.Durable, // durable
			false,            // auto-delete
			false,            // exclusive
			false,            // no-wait
			nil,              // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}
	return nil
}

func (c *Client) publish(ctx context.Context, queue string, body []byte, headers amqp.Table) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	err := c.channel.PublishWithContext(
		ctx,
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Headers:      headers,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("Failed to publish message to RabbitMQ",
			slog.String("queue", queue),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.String("queue", queue),
		slog.Int("body_size", len(body)),
	)
	return nil
}

// Push publishes a job message onto the queue
func (c *Client) Push(ctx context.Context, body []byte) error {
	return c.publish(ctx, c.config.QueueName, body, nil)
}

// DeadLetter parks an unprocessable message on the dead-letter queue
func (c *Client) DeadLetter(ctx context.Context, body []byte, reason string) error {
	return c.publish(ctx, c.config.DeadLetterName, body, amqp.Table{"x-reason": reason})
}

// Pop blocks until the next message arrives and acknowledges it immediately,
// so the message is removed from the broker before any work starts.
// Pop must only be called from a single goroutine.
func (c *Client) Pop(ctx context.Context) ([]byte, error) {
	if !c.IsConnected() {
		c.logger.Warn("RabbitMQ connection lost, reconnecting")
		if err := c.connect(); err != nil {
			return nil, err
		}
	}

	if c.deliveries == nil {
		deliveries, err := c.channel.Consume(
			c.config.QueueName,   // queue
			c.config.ConsumerTag, // consumer tag
			false,                // auto-ack
			false,                // exclusive
			false,                // no-local
			false,                // no-wait
			nil,                  // args
		)
		if err != nil {
			return nil, fmt.Errorf("failed to consume messages: %w", err)
		}
		c.deliveries = deliveries

		c.logger.Info("Started consuming messages from RabbitMQ",
			slog.String("queue", c.config.QueueName),
			slog.String("consumer_tag", c.config.ConsumerTag),
		)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case delivery, ok := <-c.deliveries:
		if !ok {
			c.deliveries = nil
			c.isConnected = false
			return nil, ErrDeliveriesClosed
		}
		if err := delivery.Ack(false); err != nil {
			return nil, fmt.Errorf("failed to ack delivery: %w", err)
		}
		return delivery.Body, nil
	}
}

// Close closes the RabbitMQ connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	c.isConnected = false

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}
