// Package registry submits archival records to the registration service.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

// DefaultTimeout bounds a registration call.
const DefaultTimeout = 15 * time.Second

// HTTPDoer describes the HTTP client used by the registry client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a registration response other than 201.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registration failed with status %d", e.Code)
}

// Client posts archival records to {base}/aips/.
type Client struct {
	baseURL string
	client  HTTPDoer
}

// New creates a registry client with its own http.Client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewWithDoer(baseURL, &http.Client{Timeout: timeout})
}

// NewWithDoer creates a registry client on top of an existing HTTP doer.
func NewWithDoer(baseURL string, client HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

// Register creates the archival record. Only 201 Created counts as success.
func (c *Client) Register(ctx context.Context, record *domain.ArchivalRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal archival record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/aips/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", record.TransferID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
