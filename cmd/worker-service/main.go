package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cuongbtq/archival-ingest/internal/clients/notifier"
	"github.com/cuongbtq/archival-ingest/internal/clients/objectstore"
	"github.com/cuongbtq/archival-ingest/internal/clients/registry"
	"github.com/cuongbtq/archival-ingest/internal/config"
	"github.com/cuongbtq/archival-ingest/internal/metrics"
	"github.com/cuongbtq/archival-ingest/internal/normalizer"
	"github.com/cuongbtq/archival-ingest/internal/queue"
	"github.com/cuongbtq/archival-ingest/internal/worker"
	"github.com/cuongbtq/archival-ingest/internal/worker/storage"
	"github.com/cuongbtq/archival-ingest/shared/logger"
	"github.com/cuongbtq/archival-ingest/shared/postgresql"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	jobQueue, err := queue.Open(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize %s queue: %w", cfg.Queue.Backend, err)
	}
	defer jobQueue.Close()

	appLogger.Info("Queue connection established",
		slog.String("backend", cfg.Queue.Backend),
		slog.String("queue", cfg.Queue.Name),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	workerMetrics := metrics.NewWorker(reg)
	if cfg.Metrics.Enabled {
		metrics.Serve(ctx, cfg.Metrics.ListenAddr, cfg.Metrics.Path, reg, appLogger.Logger)
	}

	docNormalizer := initNormalizer(&cfg.Normalizer, appLogger.Logger)
	docNormalizer.OnOutcome(func(o normalizer.Outcome) {
		workerMetrics.Normalizations.WithLabelValues(string(o)).Inc()
	})

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:             appLogger.Logger,
		Queue:              jobQueue,
		Sessions:           worker.NewSessionOpener(storage.NewStorage(dbClient.GetDB(), appLogger.Logger)),
		Uploader:           objectstore.New(cfg.Services.StorageURL, cfg.Services.UploadTimeout),
		Normalizer:         docNormalizer,
		Registry:           registry.New(cfg.Services.RegistryURL, cfg.Services.RegistryTimeout),
		Notifier:           notifier.New(cfg.Services.NotifyURL, cfg.Services.NotifyTimeout, appLogger.Logger),
		Metrics:            workerMetrics,
		SubmissionsRoot:    cfg.Worker.SubmissionsRoot,
		WorkDir:            cfg.Worker.WorkDir,
		OriginalsBucket:    cfg.Storage.OriginalsBucket,
		PreservationBucket: cfg.Storage.PreservationBucket,
		RetryInterval:      cfg.Worker.RetryInterval,
	})

	errChan := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully",
		slog.String("submissions_root", cfg.Worker.SubmissionsRoot),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker stopped consuming",
			slog.Any("error", err),
		)
		return err
	}

	cancel()

	shutdownTimeout := cfg.Worker.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-time.After(shutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initNormalizer builds the LibreOffice-backed document normalizer
func initNormalizer(cfg *config.NormalizerConfig, logger *slog.Logger) *normalizer.Normalizer {
	converter := normalizer.NewLibreOffice(normalizer.WithBinary(cfg.Binary))
	return normalizer.New(converter, cfg.Timeout, logger)
}
