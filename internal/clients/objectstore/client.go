// Package objectstore is the HTTP client for the storage service.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuongbtq/archival-ingest/internal/fileutil"
)

// DefaultTimeout bounds every storage service call.
const DefaultTimeout = 30 * time.Second

// ErrObjectNotFound is returned by Stat when the storage service answers 404.
var ErrObjectNotFound = errors.New("object not found")

// HTTPDoer describes the HTTP client used by the storage client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ObjectInfo is the metadata reported by the storage service.
type ObjectInfo struct {
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

type uploadResponse struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

type metadataRequest struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
}

// Client talks to the storage service.
type Client struct {
	baseURL string
	client  HTTPDoer
}

// New creates a storage client with its own http.Client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewWithDoer(baseURL, &http.Client{Timeout: timeout})
}

// NewWithDoer creates a storage client on top of an existing HTTP doer.
func NewWithDoer(baseURL string, client HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

// Upload sends localPath to bucket under keyPrefix and returns the stored path.
func (c *Client) Upload(ctx context.Context, localPath, bucket, keyPrefix string) (string, error) {
	name := filepath.Base(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", name, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		pw.CloseWithError(writeUploadForm(mw, f, name, bucket, keyPrefix))
	}()
	// unblocks the writer when the request ends before the body is consumed
	defer pr.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/storage/upload", pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage upload of %s returned %d", name, resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Path == "" {
		return fileutil.ObjectKey(keyPrefix, name), nil
	}
	return out.Path, nil
}

// writeUploadForm streams the multipart body of an upload into mw.
func writeUploadForm(mw *multipart.Writer, f io.Reader, name, bucket, keyPrefix string) error {
	if err := mw.WriteField("bucket", bucket); err != nil {
		return fmt.Errorf("failed to write bucket field: %w", err)
	}
	if err := mw.WriteField("keyPrefix", keyPrefix); err != nil {
		return fmt.Errorf("failed to write keyPrefix field: %w", err)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return nil
}

// Stat fetches size and modification time of an object.
func (c *Client) Stat(ctx context.Context, bucket, path string) (*ObjectInfo, error) {
	payload, err := json.Marshal(metadataRequest{Bucket: bucket, Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/storage/metadata", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s/%s: %w", bucket, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrObjectNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("storage metadata for %s/%s returned %d", bucket, path, resp.StatusCode)
	}

	var info ObjectInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode metadata response: %w", err)
	}
	return &info, nil
}
