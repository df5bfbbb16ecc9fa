package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/archival-ingest/internal/api/model"
	"github.com/cuongbtq/archival-ingest/internal/api/storage"
	"github.com/cuongbtq/archival-ingest/internal/clients/objectstore"
	"github.com/cuongbtq/archival-ingest/internal/metrics"
)

// AIPStore persists and reads archival records
type AIPStore interface {
	CreateAIP(ctx context.Context, aip *model.AIP, originals, preserved []model.File) error
	GetAIPByTransferID(ctx context.Context, transferID string) (*model.AIP, error)
	FirstFile(ctx context.Context, aipID, area string) (*model.File, error)
	ListAIPs(ctx context.Context, filter storage.AIPFilter) ([]model.AIP, error)
}

// Publisher enqueues ingest jobs
type Publisher interface {
	Push(ctx context.Context, body []byte) error
}

// ObjectStater reads object metadata from the storage service
type ObjectStater interface {
	Stat(ctx context.Context, bucket, path string) (*objectstore.ObjectInfo, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger             *slog.Logger
	Store              AIPStore
	Queue              Publisher
	Objects            ObjectStater
	Metrics            *metrics.API
	OriginalsBucket    string
	PreservationBucket string
}

// AIPHandler handles archival record requests
type AIPHandler struct {
	logger             *slog.Logger
	store              AIPStore
	objects            ObjectStater
	metrics            *metrics.API
	originalsBucket    string
	preservationBucket string
}

// NewAIPHandler creates a new AIPHandler instance
func NewAIPHandler(deps *Dependencies) *AIPHandler {
	return &AIPHandler{
		logger:             deps.Logger,
		store:              deps.Store,
		objects:            deps.Objects,
		metrics:            deps.Metrics,
		originalsBucket:    deps.OriginalsBucket,
		preservationBucket: deps.PreservationBucket,
	}
}

// TransferHandler enqueues transfers for ingestion
type TransferHandler struct {
	logger  *slog.Logger
	queue   Publisher
	metrics *metrics.API
}

// NewTransferHandler creates a new TransferHandler instance
func NewTransferHandler(deps *Dependencies) *TransferHandler {
	return &TransferHandler{
		logger:  deps.Logger,
		queue:   deps.Queue,
		metrics: deps.Metrics,
	}
}
