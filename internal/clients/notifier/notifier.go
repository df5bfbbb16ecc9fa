// Package notifier reports job outcomes to the configured receiver.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

// DefaultTimeout bounds a notification call.
const DefaultTimeout = 15 * time.Second

// Notifier delivers job outcomes. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, outcome domain.JobOutcome)
}

// HTTPDoer describes the HTTP client used by the notifier.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New returns an HTTP notifier, or a no-op notifier when url is empty.
func New(url string, timeout time.Duration, logger *slog.Logger) Notifier {
	url = strings.TrimSpace(url)
	if url == "" {
		return noop{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// NewWithDoer returns an HTTP notifier using the given doer.
func NewWithDoer(url string, client HTTPDoer, logger *slog.Logger) Notifier {
	return &httpNotifier{url: strings.TrimSpace(url), client: client, logger: logger}
}

type noop struct{}

func (noop) Notify(context.Context, domain.JobOutcome) {}

type httpNotifier struct {
	url    string
	client HTTPDoer
	logger *slog.Logger
}

func (n *httpNotifier) Notify(ctx context.Context, outcome domain.JobOutcome) {
	if err := n.send(ctx, outcome); err != nil {
		n.logger.Warn("Failed to deliver notification",
			slog.String("transfer_id", outcome.TransferID),
			slog.String("status", outcome.Status),
			slog.Any("error", err),
		)
		return
	}

	n.logger.Debug("Notification delivered",
		slog.String("transfer_id", outcome.TransferID),
		slog.String("status", outcome.Status),
	)
}

func (n *httpNotifier) send(ctx context.Context, outcome domain.JobOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification receiver returned %d", resp.StatusCode)
	}
	return nil
}
