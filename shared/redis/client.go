package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config holds Redis connection and queue configuration
type Config struct {
	Host           string
	Port           int
	Password       string
	DB             int
	PoolSize       int
	DialTimeout    time.Duration
	QueueName      string
	DeadLetterName string
}

// DeadLetter is the envelope stored on the dead-letter list
type DeadLetter struct {
	Reason   string    `json:"reason"`
	Body     string    `json:"body"`
	FailedAt time.Time `json:"failed_at"`
}

// Client is a list-backed job queue on Redis
type Client struct {
	rdb    *goredis.Client
	config *Config
	logger *slog.Logger
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	poolSize := config.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:                  fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:              config.Password,
		DB:                    config.DB,
		DialTimeout:           dialTimeout,
		PoolSize:              poolSize,
		ContextTimeoutEnabled: true, // lets ctx cancellation interrupt BLPOP
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis",
			slog.String("addr", rdb.Options().Addr),
			slog.Any("error", err),
		)
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis",
		slog.String("addr", rdb.Options().Addr),
		slog.String("queue", config.QueueName),
	)

	return &Client{rdb: rdb, config: config, logger: logger}, nil
}

// Pop blocks until a message is available on the queue and removes it.
// There is no acknowledgment: a popped message is gone from Redis.
func (c *Client) Pop(ctx context.Context) ([]byte, error) {
	for {
		result, err := c.rdb.BLPop(ctx, 0, c.config.QueueName).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to pop from %s: %w", c.config.QueueName, err)
		}
		// BLPOP replies with [key, value]
		if len(result) != 2 {
			return nil, fmt.Errorf("unexpected BLPOP reply of length %d", len(result))
		}
		return []byte(result[1]), nil
	}
}

// Push appends a message to the tail of the queue
func (c *Client) Push(ctx context.Context, body []byte) error {
	if err := c.rdb.RPush(ctx, c.config.QueueName, body).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", c.config.QueueName, err)
	}

	c.logger.Debug("Message pushed to Redis",
		slog.String("queue", c.config.QueueName),
		slog.Int("body_size", len(body)),
	)
	return nil
}

// DeadLetter parks an unprocessable message on the dead-letter list
func (c *Client) DeadLetter(ctx context.Context, body []byte, reason string) error {
	envelope, err := json.Marshal(DeadLetter{
		Reason:   reason,
		Body:     string(body),
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	if err := c.rdb.RPush(ctx, c.config.DeadLetterName, envelope).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", c.config.DeadLetterName, err)
	}
	return nil
}

// Close closes the Redis connection pool
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.rdb.Close()
}
