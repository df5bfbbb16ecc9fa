package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cuongbtq/archival-ingest/internal/clients/registry"
	"github.com/cuongbtq/archival-ingest/internal/fileutil"
	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

// processJob runs one job and returns its outcome. It never panics: a panic
// in the job body is reported as a FAILED outcome.
func (w *Worker) processJob(ctx context.Context, job *domain.Job) (outcome domain.JobOutcome) {
	logger := w.logger.With(slog.String("transfer_id", job.TransferID))
	start := time.Now()

	logger.Info("Processing job",
		slog.String("ra", job.RA),
		slog.String("folder_id", job.FolderID),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			outcome = failed(job.TransferID, domain.NewJobError(domain.ErrUnexpectedWorker, fmt.Sprintf("unexpected worker error: %v", r), nil))
		}

		if w.metrics != nil {
			w.metrics.JobsTotal.WithLabelValues(outcome.Status).Inc()
			w.metrics.JobDuration.Observe(time.Since(start).Seconds())
		}
		logger.Info("Job finished",
			slog.String("status", outcome.Status),
			slog.String("message", outcome.Message),
			slog.Duration("duration", time.Since(start)),
		)
	}()

	record, err := w.ingest(ctx, job, logger)
	if err != nil {
		logger.Error("Job failed", slog.Any("error", err))
		return failed(job.TransferID, err)
	}

	return domain.JobOutcome{
		TransferID: job.TransferID,
		Status:     domain.StatusCompleted,
		Message: fmt.Sprintf("registered %d original and %d preserved files",
			len(record.Originals), len(record.Preserved)),
	}
}

// ingest drives the job through prefix resolution, the per-file pipeline and
// registration. The database session is released on every path.
func (w *Worker) ingest(ctx context.Context, job *domain.Job, logger *slog.Logger) (*domain.ArchivalRecord, error) {
	submissionDir := filepath.Join(w.submissionsRoot, job.TransferID)
	if !w.fs.Exists(submissionDir) {
		return nil, domain.NewJobError(domain.ErrInputMissing,
			fmt.Sprintf("submission directory not found for %s", job.TransferID), nil)
	}

	session, err := w.sessions.OpenSession(ctx)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrUnexpectedWorker, "database session unavailable", err)
	}
	defer session.Close()

	resolution := ResolvePrefix(ctx, session, job.FolderID, job.RA)
	for _, warning := range resolution.Warnings {
		logger.Warn("Folder path truncated", slog.String("reason", warning))
	}
	prefix := resolution.Prefix
	logger.Info("Storage prefix resolved", slog.String("prefix", prefix))

	files, err := w.fs.ListRegularFiles(submissionDir)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrInputMissing,
			fmt.Sprintf("submission directory unreadable for %s", job.TransferID), err)
	}

	scratchDir, err := os.MkdirTemp(w.workDir, fileutil.Slugify(job.TransferID)+"-")
	if err != nil {
		return nil, domain.NewJobError(domain.ErrUnexpectedWorker, "scratch directory unavailable", err)
	}
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			logger.Warn("Failed to remove scratch directory",
				slog.String("dir", scratchDir),
				slog.Any("error", err),
			)
		}
	}()

	originals := make([]domain.FileArtifact, 0, len(files))
	preserved := make([]domain.FileArtifact, 0, len(files))
	for _, path := range files {
		result, err := w.processFile(ctx, path, prefix, scratchDir, logger)
		if err != nil {
			return nil, err
		}
		originals = append(originals, result.original)
		if result.preserved != nil {
			preserved = append(preserved, *result.preserved)
		}
	}

	record := &domain.ArchivalRecord{
		TransferID: job.TransferID,
		Title:      titleOf(job.TransferID, originals),
		RA:         job.RA,
		FolderID:   resolution.FolderID,
		Originals:  originals,
		Preserved:  preserved,
	}

	if err := w.registry.Register(ctx, record); err != nil {
		var statusErr *registry.StatusError
		if errors.As(err, &statusErr) {
			return nil, domain.NewJobError(domain.ErrRegistrationFailure,
				fmt.Sprintf("registration failed with status %d", statusErr.Code), err)
		}
		return nil, domain.NewJobError(domain.ErrRegistrationFailure, "registration failed", err)
	}
	logger.Info("Archival record registered",
		slog.String("title", record.Title),
		slog.Int("originals", len(originals)),
		slog.Int("preserved", len(preserved)),
	)

	return record, nil
}

// titleOf names the record after its first original file.
func titleOf(transferID string, originals []domain.FileArtifact) string {
	if len(originals) > 0 {
		base := originals[0].Name
		if title := strings.TrimSuffix(base, filepath.Ext(base)); title != "" {
			return title
		}
	}
	return "Transfer " + transferID
}

func failed(transferID string, err error) domain.JobOutcome {
	message := err.Error()
	var jobErr *domain.JobError
	if errors.As(err, &jobErr) {
		message = jobErr.Reason
	}
	return domain.JobOutcome{
		TransferID: transferID,
		Status:     domain.StatusFailed,
		Message:    message,
	}
}
