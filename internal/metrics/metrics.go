// Package metrics holds the Prometheus collectors of the ingest services.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "archival_ingest"

// Worker collectors
type Worker struct {
	JobsTotal         *prometheus.CounterVec
	JobDuration       prometheus.Histogram
	FilesUploaded     *prometheus.CounterVec
	UploadedBytes     *prometheus.CounterVec
	Normalizations    *prometheus.CounterVec
	DeadLetteredTotal prometheus.Counter
	QueueErrorsTotal  prometheus.Counter
}

// NewWorker creates and registers the worker collectors
func NewWorker(reg prometheus.Registerer) *Worker {
	w := &Worker{
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Number of processed jobs by final status.",
		}, []string{"status"}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Wall time spent on a single job.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		FilesUploaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "files_uploaded_total",
			Help:      "Number of files uploaded by storage area.",
		}, []string{"area"}),
		UploadedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "uploaded_bytes_total",
			Help:      "Total bytes uploaded by storage area.",
		}, []string{"area"}),
		Normalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalizer",
			Name:      "conversions_total",
			Help:      "Number of normalization attempts by outcome.",
		}, []string{"outcome"}),
		DeadLetteredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "dead_lettered_total",
			Help:      "Number of queue messages parked on the dead-letter queue.",
		}),
		QueueErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_errors_total",
			Help:      "Number of failed dequeue attempts.",
		}),
	}

	reg.MustRegister(
		w.JobsTotal,
		w.JobDuration,
		w.FilesUploaded,
		w.UploadedBytes,
		w.Normalizations,
		w.DeadLetteredTotal,
		w.QueueErrorsTotal,
	)
	return w
}

// API collectors
type API struct {
	RequestsTotal   *prometheus.CounterVec
	AIPsRegistered  prometheus.Counter
	TransfersQueued prometheus.Counter
}

// NewAPI creates and registers the api-service collectors
func NewAPI(reg prometheus.Registerer) *API {
	a := &API{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		AIPsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "aips_registered_total",
			Help:      "Number of archival records persisted.",
		}),
		TransfersQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "transfers_queued_total",
			Help:      "Number of transfers enqueued for ingestion.",
		}),
	}

	reg.MustRegister(a.RequestsTotal, a.AIPsRegistered, a.TransfersQueued)
	return a
}

// Storage collectors
type Storage struct {
	ObjectsStored *prometheus.CounterVec
	StoredBytes   *prometheus.CounterVec
}

// NewStorage creates and registers the storage-service collectors
func NewStorage(reg prometheus.Registerer) *Storage {
	s := &Storage{
		ObjectsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "objects_stored_total",
			Help:      "Number of objects written by bucket.",
		}, []string{"bucket"}),
		StoredBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "stored_bytes_total",
			Help:      "Total bytes written by bucket.",
		}, []string{"bucket"}),
	}

	reg.MustRegister(s.ObjectsStored, s.StoredBytes)
	return s
}

// Serve exposes gatherer on addr until ctx is canceled.
func Serve(ctx context.Context, addr, path string, gatherer prometheus.Gatherer, logger *slog.Logger) {
	if addr == "" {
		return
	}
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("Metrics server listening",
			slog.String("addr", addr),
			slog.String("path", path),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.Any("error", err))
		}
	}()
}
