package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cuongbtq/archival-ingest/internal/fileutil"
	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

// Uploader stores a local file in a bucket under a key prefix and returns
// the object path.
type Uploader interface {
	Upload(ctx context.Context, localPath, bucket, keyPrefix string) (string, error)
}

// DocumentNormalizer produces a preservation derivative, or reports none.
type DocumentNormalizer interface {
	Normalize(ctx context.Context, inputPath, outputDir string) (string, bool)
}

var checksumFile = fileutil.Checksum

type fileResult struct {
	original  domain.FileArtifact
	preserved *domain.FileArtifact
}

// processFile runs one submitted file through checksum, upload, normalization
// and derivative upload. Only checksum and upload failures are fatal.
func (w *Worker) processFile(ctx context.Context, path, prefix, scratchDir string, logger *slog.Logger) (*fileResult, error) {
	name := filepath.Base(path)

	if clean := fileutil.SanitizeFileName(name); clean != name {
		renamed := filepath.Join(filepath.Dir(path), clean)
		if err := w.fs.Rename(path, renamed); err != nil {
			return nil, domain.NewJobError(domain.ErrUnexpectedWorker, fmt.Sprintf("rename failed for %s", name), err)
		}
		logger.Info("File renamed", slog.String("from", name), slog.String("to", clean))
		path, name = renamed, clean
	}

	sum, err := checksumFile(path)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrChecksumFailure, fmt.Sprintf("checksum failed for %s", name), err)
	}

	storagePath, err := w.uploader.Upload(ctx, path, w.originalsBucket, prefix)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrUploadFailure, fmt.Sprintf("upload failed for %s", name), err)
	}
	w.recordUpload(domain.AreaOriginals, path)

	result := &fileResult{
		original: domain.FileArtifact{
			Name:        name,
			StoragePath: storagePath,
			Checksum:    sum,
			Format:      fileutil.FormatOf(name),
		},
	}
	logger.Info("Original stored",
		slog.String("file", name),
		slog.String("path", storagePath),
		slog.String("format", result.original.Format),
	)

	// one output directory per file; converters name output after the stem
	outputDir, err := os.MkdirTemp(scratchDir, "file-")
	if err != nil {
		return nil, domain.NewJobError(domain.ErrUnexpectedWorker, fmt.Sprintf("scratch directory unavailable for %s", name), err)
	}

	derivative, ok := w.normalizer.Normalize(ctx, path, outputDir)
	if !ok {
		return result, nil
	}

	derivativeName := DerivativeName(name)
	if named := filepath.Join(outputDir, derivativeName); named != derivative {
		if err := w.fs.Rename(derivative, named); err != nil {
			return nil, domain.NewJobError(domain.ErrUnexpectedWorker, fmt.Sprintf("rename failed for %s", filepath.Base(derivative)), err)
		}
		derivative = named
	}

	derivativeSum, err := checksumFile(derivative)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrChecksumFailure, fmt.Sprintf("checksum failed for %s", derivativeName), err)
	}

	derivativePath, err := w.uploader.Upload(ctx, derivative, w.preservationBucket, prefix)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrUploadFailure, fmt.Sprintf("derivative upload failed for %s", name), err)
	}
	w.recordUpload(domain.AreaPreservation, derivative)

	result.preserved = &domain.FileArtifact{
		Name:        derivativeName,
		StoragePath: derivativePath,
		Checksum:    derivativeSum,
		Format:      domain.PreservedFormat,
	}
	logger.Info("Derivative stored",
		slog.String("file", derivativeName),
		slog.String("path", derivativePath),
	)

	return result, nil
}

// DerivativeName is the preservation file name of a submitted file. The full
// original name is kept so every file of a submission maps to its own key.
func DerivativeName(name string) string {
	return name + "." + domain.PreservedFormat
}

func (w *Worker) recordUpload(area, path string) {
	if w.metrics == nil {
		return
	}
	w.metrics.FilesUploaded.WithLabelValues(area).Inc()
	if info, err := os.Stat(path); err == nil {
		w.metrics.UploadedBytes.WithLabelValues(area).Add(float64(info.Size()))
	}
}
