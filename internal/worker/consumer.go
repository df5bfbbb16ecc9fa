package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

// maxConsecutivePopFailures is how many dequeue errors in a row Start
// tolerates before giving up.
const maxConsecutivePopFailures = 12

// Start runs the consumer loop until ctx is canceled. It returns nil on
// cancellation and an error when the queue stays unusable or the loop
// itself panics, so the process can exit instead of idling silently.
func (w *Worker) Start(ctx context.Context) (err error) {
	w.logger.Info("Starting worker",
		slog.String("submissions_root", w.submissionsRoot),
		slog.String("work_dir", w.workDir),
		slog.Duration("retry_interval", w.retryInterval),
	)

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Worker loop panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("worker loop panicked: %v", r)
		}
	}()

	failures := 0
	for {
		body, popErr := w.queue.Pop(ctx)
		if popErr != nil {
			if ctx.Err() != nil {
				w.logger.Info("Worker context canceled, stopping...")
				return nil
			}

			failures++
			if w.metrics != nil {
				w.metrics.QueueErrorsTotal.Inc()
			}
			w.logger.Error("Failed to dequeue job",
				slog.Any("error", popErr),
				slog.Int("consecutive_failures", failures),
			)
			if failures >= maxConsecutivePopFailures {
				return fmt.Errorf("queue unavailable after %d attempts: %w", failures, popErr)
			}

			select {
			case <-ctx.Done():
				w.logger.Info("Worker context canceled, stopping...")
				return nil
			case <-time.After(w.retryInterval):
			}
			continue
		}
		failures = 0

		w.handleMessage(ctx, body)
	}
}

// handleMessage decodes one queue message and runs it to a single outcome.
// Messages without a recoverable transfer id cannot be notified and are
// parked on the dead-letter queue instead.
func (w *Worker) handleMessage(ctx context.Context, body []byte) {
	job, err := domain.DecodeJob(body)
	if err != nil {
		w.logger.Warn("Rejecting queue message",
			slog.Any("error", err),
			slog.String("body", truncate(string(body), 512)),
		)
		if dlErr := w.queue.DeadLetter(ctx, body, err.Error()); dlErr != nil {
			w.logger.Error("Failed to dead-letter message", slog.Any("error", dlErr))
			return
		}
		if w.metrics != nil {
			w.metrics.DeadLetteredTotal.Inc()
		}
		return
	}

	outcome := w.processJob(ctx, job)
	w.notifier.Notify(context.WithoutCancel(ctx), outcome)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
