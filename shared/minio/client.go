package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned by Stat when the object does not exist
var ErrNotFound = errors.New("object not found")

// Config holds MinIO connection configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// ObjectInfo is the subset of object metadata exposed by the storage service
type ObjectInfo struct {
	Size         int64
	LastModified time.Time
	ETag         string
}

// Client wraps the MinIO SDK client
type Client struct {
	mc     *minio.Client
	logger *slog.Logger
}

// NewClient initializes a MinIO client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init MinIO client: %w", err)
	}

	logger.Info("MinIO client initialized",
		slog.String("endpoint", config.Endpoint),
		slog.Bool("ssl", config.UseSSL),
	)

	return &Client{mc: mc, logger: logger}, nil
}

// EnsureBucket creates the bucket if it does not exist yet
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := c.mc.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		c.logger.Info("Bucket exists", slog.String("bucket", bucket))
		return nil
	}

	if err := c.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	c.logger.Info("Bucket created", slog.String("bucket", bucket))
	return nil
}

// Put streams an object into the bucket
func (c *Client) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (int64, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := c.mc.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return 0, fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}

	c.logger.Debug("Object uploaded",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Int64("size", info.Size),
	)
	return info.Size, nil
}

// Stat returns object metadata
func (c *Client) Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	info, err := c.mc.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat %s/%s: %w", bucket, key, err)
	}

	return &ObjectInfo{
		Size:         info.Size,
		LastModified: info.LastModified,
		ETag:         info.ETag,
	}, nil
}
