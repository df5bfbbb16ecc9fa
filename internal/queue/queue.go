// Package queue opens the transfer queue selected by configuration.
package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/archival-ingest/internal/config"
	"github.com/cuongbtq/archival-ingest/shared/rabbitmq"
	"github.com/cuongbtq/archival-ingest/shared/redis"
)

// Queue is the subset shared by every backend
type Queue interface {
	Push(ctx context.Context, body []byte) error
	Pop(ctx context.Context) ([]byte, error)
	DeadLetter(ctx context.Context, body []byte, reason string) error
	Close() error
}

var (
	_ Queue = (*redis.Client)(nil)
	_ Queue = (*rabbitmq.Client)(nil)
)

// Open connects to the backend named by cfg.Queue.Backend
func Open(cfg *config.Config, logger *slog.Logger) (Queue, error) {
	switch cfg.Queue.Backend {
	case config.QueueBackendRedis, "":
		client, err := redis.NewClient(RedisConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.QueueBackendRabbitMQ:
		client, err := rabbitmq.NewClient(RabbitMQConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown queue backend: %q", cfg.Queue.Backend)
	}
}

// RedisConfig maps the application config to the Redis client config
func RedisConfig(cfg *config.Config) *redis.Config {
	return &redis.Config{
		Host:           cfg.Redis.Host,
		Port:           cfg.Redis.Port,
		Password:       cfg.Redis.Password,
		DB:             cfg.Redis.DB,
		PoolSize:       cfg.Redis.PoolSize,
		DialTimeout:    cfg.Redis.DialTimeout,
		QueueName:      cfg.Queue.Name,
		DeadLetterName: cfg.Queue.DeadLetter,
	}
}

// RabbitMQConfig maps the application config to the RabbitMQ client config
func RabbitMQConfig(cfg *config.Config) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:           cfg.RabbitMQ.Host,
		Port:           cfg.RabbitMQ.Port,
		User:           cfg.RabbitMQ.User,
		Password:       cfg.RabbitMQ.Password,
		VHost:          cfg.RabbitMQ.VHost,
		QueueName:      cfg.Queue.Name,
		DeadLetterName: cfg.Queue.DeadLetter,
		Durable:        cfg.RabbitMQ.Durable,
		RetryAttempts:  cfg.RabbitMQ.Connection.RetryAttempts,
		RetryInterval:  cfg.RabbitMQ.Connection.RetryInterval,
		Heartbeat:      cfg.RabbitMQ.Connection.Heartbeat,
		ConsumerTag:    cfg.App.Name,
	}
}
