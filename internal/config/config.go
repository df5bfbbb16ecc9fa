package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Queue backends
const (
	QueueBackendRedis    = "redis"
	QueueBackendRabbitMQ = "rabbitmq"
)

// Defaults applied by ApplyDefaults
const (
	DefaultConvertTimeout  = 120 * time.Second
	DefaultUploadTimeout   = 30 * time.Second
	DefaultRegistryTimeout = 15 * time.Second
	DefaultNotifyTimeout   = 15 * time.Second
	DefaultRetryInterval   = 5 * time.Second
	DefaultConverterBinary = "soffice"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Queue      QueueConfig      `yaml:"queue"`
	Redis      RedisConfig      `yaml:"redis"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Storage    StorageConfig    `yaml:"storage"`
	Worker     WorkerConfig     `yaml:"worker"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Services   ServicesConfig   `yaml:"services"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// QueueConfig selects the transfer queue backend
type QueueConfig struct {
	Backend    string `yaml:"backend"`
	Name       string `yaml:"name"`
	DeadLetter string `yaml:"dead_letter"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Durable    bool             `yaml:"durable"`
	Connection ConnectionConfig `yaml:"connection"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// MinIOConfig holds object store credentials for the storage service
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
}

// StorageConfig names the buckets for originals and preservation copies
type StorageConfig struct {
	OriginalsBucket    string `yaml:"originals_bucket"`
	PreservationBucket string `yaml:"preservation_bucket"`
}

// WorkerConfig holds ingestion worker configuration
type WorkerConfig struct {
	SubmissionsRoot string        `yaml:"submissions_root"`
	WorkDir         string        `yaml:"work_dir"`
	RetryInterval   time.Duration `yaml:"retry_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// NormalizerConfig holds the document converter settings
type NormalizerConfig struct {
	Binary  string        `yaml:"binary"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServicesConfig holds URLs and timeouts of the HTTP collaborators
type ServicesConfig struct {
	StorageURL      string        `yaml:"storage_url"`
	RegistryURL     string        `yaml:"registry_url"`
	NotifyURL       string        `yaml:"notify_url"`
	UploadTimeout   time.Duration `yaml:"upload_timeout"`
	RegistryTimeout time.Duration `yaml:"registry_timeout"`
	NotifyTimeout   time.Duration `yaml:"notify_timeout"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills zero values that have a sensible default
func (c *Config) ApplyDefaults() {
	if c.Queue.Backend == "" {
		c.Queue.Backend = QueueBackendRedis
	}
	if c.Queue.DeadLetter == "" && c.Queue.Name != "" {
		c.Queue.DeadLetter = c.Queue.Name + ":dead"
	}
	if c.Normalizer.Binary == "" {
		c.Normalizer.Binary = DefaultConverterBinary
	}
	if c.Normalizer.Timeout <= 0 {
		c.Normalizer.Timeout = DefaultConvertTimeout
	}
	if c.Services.UploadTimeout <= 0 {
		c.Services.UploadTimeout = DefaultUploadTimeout
	}
	if c.Services.RegistryTimeout <= 0 {
		c.Services.RegistryTimeout = DefaultRegistryTimeout
	}
	if c.Services.NotifyTimeout <= 0 {
		c.Services.NotifyTimeout = DefaultNotifyTimeout
	}
	if c.Worker.RetryInterval <= 0 {
		c.Worker.RetryInterval = DefaultRetryInterval
	}
	if c.Worker.WorkDir == "" {
		c.Worker.WorkDir = os.TempDir()
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func validatePort(name string, port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("invalid %s port: %d (must be between %d and %d)", name, port, MinPort, MaxPort)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if err := validatePort("database", c.Database.Port); err != nil {
		return err
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.Name == "" {
		return fmt.Errorf("queue name is required")
	}

	switch c.Queue.Backend {
	case QueueBackendRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
		return validatePort("redis", c.Redis.Port)
	case QueueBackendRabbitMQ:
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}
		return validatePort("rabbitmq", c.RabbitMQ.Port)
	default:
		return fmt.Errorf("unknown queue backend: %q", c.Queue.Backend)
	}
}

func (c *Config) validateBuckets() error {
	if c.Storage.OriginalsBucket == "" {
		return fmt.Errorf("storage originals_bucket is required")
	}
	if c.Storage.PreservationBucket == "" {
		return fmt.Errorf("storage preservation_bucket is required")
	}
	return nil
}

// ValidateAPIConfig checks the settings the registration API needs
func (c *Config) ValidateAPIConfig() error {
	if err := validatePort("server", c.Server.Port); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	return c.validateBuckets()
}

// ValidateWorkerConfig checks the settings the ingestion worker needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateBuckets(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Worker.SubmissionsRoot) == "" {
		return fmt.Errorf("worker submissions_root is required")
	}
	if c.Services.StorageURL == "" {
		return fmt.Errorf("services storage_url is required")
	}
	if c.Services.RegistryURL == "" {
		return fmt.Errorf("services registry_url is required")
	}
	if c.Normalizer.Timeout <= 0 {
		return fmt.Errorf("normalizer timeout must be greater than 0")
	}
	return nil
}

// ValidateStorageConfig checks the settings the object storage service needs
func (c *Config) ValidateStorageConfig() error {
	if err := validatePort("server", c.Server.Port); err != nil {
		return err
	}
	if c.MinIO.Endpoint == "" {
		return fmt.Errorf("minio endpoint is required")
	}
	return c.validateBuckets()
}
