// Package storageapi is the HTTP front of the object store.
package storageapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/archival-ingest/internal/fileutil"
	"github.com/cuongbtq/archival-ingest/internal/metrics"
	"github.com/cuongbtq/archival-ingest/shared/minio"
)

// Store is the object backend behind the handlers
type Store interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (int64, error)
	Stat(ctx context.Context, bucket, key string) (*minio.ObjectInfo, error)
}

// Dependencies holds everything the storage handlers need
type Dependencies struct {
	Logger  *slog.Logger
	Store   Store
	Buckets []string
	Metrics *metrics.Storage
}

// Handler serves the storage endpoints
type Handler struct {
	logger  *slog.Logger
	store   Store
	buckets map[string]struct{}
	metrics *metrics.Storage
}

type uploadForm struct {
	Bucket    string `form:"bucket" binding:"required"`
	KeyPrefix string `form:"keyPrefix"`
}

type uploadResponse struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

type metadataRequest struct {
	Bucket string `json:"bucket" binding:"required"`
	Path   string `json:"path" binding:"required"`
}

type metadataResponse struct {
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

// NewHandler creates a Handler restricted to the configured buckets
func NewHandler(deps *Dependencies) *Handler {
	buckets := make(map[string]struct{}, len(deps.Buckets))
	for _, b := range deps.Buckets {
		buckets[b] = struct{}{}
	}
	return &Handler{
		logger:  deps.Logger,
		store:   deps.Store,
		buckets: buckets,
		metrics: deps.Metrics,
	}
}

func (h *Handler) knownBucket(bucket string) bool {
	_, ok := h.buckets[bucket]
	return ok
}

// Upload handles POST /storage/upload
func (h *Handler) Upload(c *gin.Context) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "bucket is required"})
		return
	}
	if !h.knownBucket(form.Bucket) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown bucket"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer f.Close()

	name := filepath.Base(fh.Filename)
	key := fileutil.ObjectKey(form.KeyPrefix, name)

	size, err := h.store.Put(c.Request.Context(), form.Bucket, key, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("Failed to store object",
			slog.String("bucket", form.Bucket),
			slog.String("key", key),
			slog.Any("error", err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to store object"})
		return
	}

	if h.metrics != nil {
		h.metrics.ObjectsStored.WithLabelValues(form.Bucket).Inc()
		h.metrics.StoredBytes.WithLabelValues(form.Bucket).Add(float64(size))
	}
	h.logger.Info("Object stored",
		slog.String("bucket", form.Bucket),
		slog.String("key", key),
		slog.Int64("size", size),
	)

	c.JSON(http.StatusCreated, uploadResponse{Bucket: form.Bucket, Path: key, Size: size})
}

// Metadata handles POST /storage/metadata
func (h *Handler) Metadata(c *gin.Context) {
	var req metadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bucket and path are required"})
		return
	}
	if !h.knownBucket(req.Bucket) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown bucket"})
		return
	}

	info, err := h.store.Stat(c.Request.Context(), req.Bucket, req.Path)
	if err != nil {
		if errors.Is(err, minio.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		h.logger.Error("Failed to stat object",
			slog.String("bucket", req.Bucket),
			slog.String("path", req.Path),
			slog.Any("error", err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read object metadata"})
		return
	}

	c.JSON(http.StatusOK, metadataResponse{
		Size:         info.Size,
		LastModified: info.LastModified.UTC().Format(time.RFC3339),
	})
}
