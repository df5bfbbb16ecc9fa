// Package normalizer produces preservation derivatives (PDF) of submitted
// documents. Conversion is best effort: every failure is logged and reported
// as "no derivative", never as an error.
package normalizer

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"
)

// DefaultTimeout bounds a single conversion.
const DefaultTimeout = 120 * time.Second

// Outcome classifies a Normalize call.
type Outcome string

const (
	OutcomeConverted   Outcome = "converted"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeFailed      Outcome = "failed"
)

// Normalizer wraps a Converter with a timeout and logging.
type Normalizer struct {
	converter Converter
	timeout   time.Duration
	logger    *slog.Logger
	observe   func(Outcome)
}

// New creates a Normalizer. A non-positive timeout falls back to DefaultTimeout.
func New(converter Converter, timeout time.Duration, logger *slog.Logger) *Normalizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Normalizer{
		converter: converter,
		timeout:   timeout,
		logger:    logger,
		observe:   func(Outcome) {},
	}
}

// OnOutcome registers a callback invoked once per Normalize call.
func (n *Normalizer) OnOutcome(fn func(Outcome)) {
	if fn != nil {
		n.observe = fn
	}
}

// Normalize converts inputPath into outputDir. It returns the derivative path
// and true on success, or "" and false when no derivative was produced.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputDir string) (string, bool) {
	name := filepath.Base(inputPath)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	derivative, err := n.converter.Convert(ctx, inputPath, outputDir)
	if err == nil {
		n.observe(OutcomeConverted)
		n.logger.Info("Document normalized",
			slog.String("file", name),
			slog.String("derivative", filepath.Base(derivative)),
			slog.Duration("duration", time.Since(start)),
		)
		return derivative, true
	}

	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		n.observe(OutcomeUnsupported)
		n.logger.Info("Skipping normalization for unsupported format",
			slog.String("file", name),
		)
	case errors.Is(err, context.DeadlineExceeded):
		n.observe(OutcomeTimeout)
		n.logger.Warn("Normalization timed out",
			slog.String("file", name),
			slog.Duration("timeout", n.timeout),
		)
	default:
		n.observe(OutcomeFailed)
		n.logger.Warn("Normalization failed",
			slog.String("file", name),
			slog.Any("error", err),
		)
	}
	return "", false
}
