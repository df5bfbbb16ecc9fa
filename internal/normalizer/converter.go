package normalizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cuongbtq/archival-ingest/internal/fileutil"
)

var commandContext = exec.CommandContext

// ErrUnsupportedFormat marks inputs the converter cannot turn into PDF.
var ErrUnsupportedFormat = errors.New("unsupported format")

// unsupported lists extensions that are skipped without spawning a process.
var unsupported = map[string]struct{}{
	"dwg": {},
	"dxf": {},
	"dgn": {},
	"rvt": {},
	"skp": {},
}

// Converter produces a PDF derivative of inputPath inside outputDir and
// returns the derivative path.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputDir string) (string, error)
}

// Option configures the LibreOffice converter.
type Option func(*LibreOffice)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(l *LibreOffice) {
		if binary != "" {
			l.binary = binary
		}
	}
}

// LibreOffice converts documents with a headless soffice run.
type LibreOffice struct {
	binary string
}

// NewLibreOffice constructs a converter using defaults.
func NewLibreOffice(opts ...Option) *LibreOffice {
	l := &LibreOffice{binary: "soffice"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Supported reports whether the converter accepts the file name.
func Supported(name string) bool {
	ext := fileutil.Extension(name)
	if ext == "" {
		return false
	}
	_, skip := unsupported[ext]
	return !skip
}

// Convert runs soffice and returns <outputDir>/<stem>.pdf.
func (l *LibreOffice) Convert(ctx context.Context, inputPath, outputDir string) (string, error) {
	if inputPath == "" {
		return "", errors.New("input path required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", errors.New("output directory required")
	}
	if !Supported(inputPath) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(inputPath))
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	base := filepath.Base(inputPath)
	outputPath := filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")

	// a leftover PDF with the same stem must not pass for this run's output
	if err := os.Remove(outputPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("remove stale output %s: %w", filepath.Base(outputPath), err)
	}

	args := []string{"--headless", "--norestore", "--convert-to", "pdf", "--outdir", outputDir, inputPath}
	cmd := commandContext(ctx, l.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s convert %s: %w", l.binary, base, ctxErr)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("%s convert %s: %w: %s", l.binary, base, err, detail)
		}
		return "", fmt.Errorf("%s convert %s: %w", l.binary, base, err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("%s produced no output for %s: %w", l.binary, base, err)
	}
	return outputPath, nil
}
