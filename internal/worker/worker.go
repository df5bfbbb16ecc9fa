package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/archival-ingest/internal/clients/notifier"
	"github.com/cuongbtq/archival-ingest/internal/metrics"
	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
	"github.com/cuongbtq/archival-ingest/internal/worker/storage"
)

const defaultRetryInterval = 5 * time.Second

// Queue is a destructive job queue: a popped message is gone.
type Queue interface {
	Pop(ctx context.Context) ([]byte, error)
	DeadLetter(ctx context.Context, body []byte, reason string) error
}

// FolderSession is a per-job persistence session
type FolderSession interface {
	FolderReader
	Close() error
}

// SessionOpener acquires a FolderSession at the start of every job
type SessionOpener interface {
	OpenSession(ctx context.Context) (FolderSession, error)
}

// Registrar persists the archival record of a finished job
type Registrar interface {
	Register(ctx context.Context, record *domain.ArchivalRecord) error
}

// Config holds worker configuration
type Config struct {
	Logger     *slog.Logger
	Queue      Queue
	Sessions   SessionOpener
	Uploader   Uploader
	Normalizer DocumentNormalizer
	Registry   Registrar
	Notifier   notifier.Notifier
	FS         FileSystem
	Metrics    *metrics.Worker

	SubmissionsRoot    string
	WorkDir            string
	OriginalsBucket    string
	PreservationBucket string
	RetryInterval      time.Duration
}

// Worker consumes ingest jobs one at a time
type Worker struct {
	workerID           string
	logger             *slog.Logger
	queue              Queue
	sessions           SessionOpener
	uploader           Uploader
	normalizer         DocumentNormalizer
	registry           Registrar
	notifier           notifier.Notifier
	fs                 FileSystem
	metrics            *metrics.Worker
	submissionsRoot    string
	workDir            string
	originalsBucket    string
	preservationBucket string
	retryInterval      time.Duration
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	fs := cfg.FS
	if fs == nil {
		fs = OSFileSystem{}
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}

	workerID := uuid.New().String()
	return &Worker{
		workerID:           workerID,
		logger:             cfg.Logger.With(slog.String("worker_id", workerID)),
		queue:              cfg.Queue,
		sessions:           cfg.Sessions,
		uploader:           cfg.Uploader,
		normalizer:         cfg.Normalizer,
		registry:           cfg.Registry,
		notifier:           cfg.Notifier,
		fs:                 fs,
		metrics:            cfg.Metrics,
		submissionsRoot:    cfg.SubmissionsRoot,
		workDir:            cfg.WorkDir,
		originalsBucket:    cfg.OriginalsBucket,
		preservationBucket: cfg.PreservationBucket,
		retryInterval:      retryInterval,
	}
}

// NewSessionOpener adapts the folder storage to SessionOpener
func NewSessionOpener(s *storage.Storage) SessionOpener {
	return storageSessions{s}
}

type storageSessions struct {
	store *storage.Storage
}

func (s storageSessions) OpenSession(ctx context.Context) (FolderSession, error) {
	session, err := s.store.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}
