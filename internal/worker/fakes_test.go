package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/archival-ingest/internal/fileutil"
	"github.com/cuongbtq/archival-ingest/internal/normalizer"
	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeQueue struct {
	mu          sync.Mutex
	messages    chan []byte
	deadLetters []string
	popErr      error
}

func newFakeQueue(messages ...string) *fakeQueue {
	q := &fakeQueue{messages: make(chan []byte, len(messages)+1)}
	for _, m := range messages {
		q.messages <- []byte(m)
	}
	return q
}

func (q *fakeQueue) Pop(ctx context.Context) ([]byte, error) {
	q.mu.Lock()
	popErr := q.popErr
	q.mu.Unlock()
	if popErr != nil {
		return nil, popErr
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case body := <-q.messages:
		return body, nil
	}
}

func (q *fakeQueue) DeadLetter(ctx context.Context, body []byte, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadLetters = append(q.deadLetters, string(body))
	return nil
}

func (q *fakeQueue) deadLettered() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deadLetters...)
}

type fakeFolders struct {
	folders map[string]domain.Folder
	errs    map[string]error
}

func (f fakeFolders) GetFolder(ctx context.Context, id string) (*domain.Folder, error) {
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	folder, ok := f.folders[id]
	if !ok {
		return nil, domain.ErrFolderNotFound
	}
	return &folder, nil
}

func folder(id, name, parent string) domain.Folder {
	f := domain.Folder{ID: id, Name: name}
	if parent != "" {
		f.ParentID = &parent
	}
	return f
}

type fakeSessions struct {
	mu      sync.Mutex
	folders fakeFolders
	opened  int
	closed  int
	openErr error
}

type fakeSession struct {
	fakeFolders
	owner *fakeSessions
}

func (s *fakeSession) Close() error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	s.owner.closed++
	return nil
}

func (s *fakeSessions) OpenSession(ctx context.Context) (FolderSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	return &fakeSession{fakeFolders: s.folders, owner: s}, nil
}

type upload struct {
	name   string
	bucket string
	prefix string
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []upload
	fail    map[string]error // keyed by "<bucket>/<file name>"
	panicOn string
}

func (u *fakeUploader) Upload(ctx context.Context, localPath, bucket, keyPrefix string) (string, error) {
	name := filepath.Base(localPath)
	if u.panicOn == name {
		panic("storage client exploded")
	}
	if err, ok := u.fail[bucket+"/"+name]; ok {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads = append(u.uploads, upload{name: name, bucket: bucket, prefix: keyPrefix})
	return fileutil.ObjectKey(keyPrefix, name), nil
}

// fakeConverter writes a PDF for supported names, simulates a timeout for
// names containing "slow" and a crash for names containing "broken".
type fakeConverter struct{}

func (fakeConverter) Convert(ctx context.Context, inputPath, outputDir string) (string, error) {
	base := filepath.Base(inputPath)
	switch {
	case !normalizer.Supported(base):
		return "", fmt.Errorf("%w: %s", normalizer.ErrUnsupportedFormat, base)
	case strings.Contains(base, "slow"):
		return "", fmt.Errorf("soffice convert %s: %w", base, context.DeadlineExceeded)
	case strings.Contains(base, "broken"):
		return "", errors.New("exit status 81")
	}
	out := filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if err := os.WriteFile(out, []byte("%PDF-1.7 "+base), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

type fakeRegistry struct {
	mu      sync.Mutex
	records []*domain.ArchivalRecord
	err     error
}

func (r *fakeRegistry) Register(ctx context.Context, record *domain.ArchivalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func (r *fakeRegistry) registered() []*domain.ArchivalRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.ArchivalRecord(nil), r.records...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	outcomes []domain.JobOutcome
}

func (n *fakeNotifier) Notify(ctx context.Context, outcome domain.JobOutcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
}

func (n *fakeNotifier) notified() []domain.JobOutcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.JobOutcome(nil), n.outcomes...)
}

type harness struct {
	worker   *Worker
	queue    *fakeQueue
	sessions *fakeSessions
	uploader *fakeUploader
	registry *fakeRegistry
	notifier *fakeNotifier
	root     string
	workDir  string
}

func newHarness(t *testing.T, messages ...string) *harness {
	t.Helper()
	h := &harness{
		queue:    newFakeQueue(messages...),
		sessions: &fakeSessions{folders: fakeFolders{folders: map[string]domain.Folder{}}},
		uploader: &fakeUploader{fail: map[string]error{}},
		registry: &fakeRegistry{},
		notifier: &fakeNotifier{},
		root:     t.TempDir(),
		workDir:  t.TempDir(),
	}
	h.worker = NewWorker(&Config{
		Logger:             discardLogger(),
		Queue:              h.queue,
		Sessions:           h.sessions,
		Uploader:           h.uploader,
		Normalizer:         normalizer.New(fakeConverter{}, time.Second, discardLogger()),
		Registry:           h.registry,
		Notifier:           h.notifier,
		SubmissionsRoot:    h.root,
		WorkDir:            h.workDir,
		OriginalsBucket:    "originals",
		PreservationBucket: "preservation",
		RetryInterval:      time.Millisecond,
	})
	return h
}

// submit creates the submission directory of transferID with the given files.
func (h *harness) submit(t *testing.T, transferID string, files ...string) {
	t.Helper()
	dir := filepath.Join(h.root, transferID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0o644))
	}
}

func (h *harness) run(t *testing.T, transferID string) domain.JobOutcome {
	t.Helper()
	return h.worker.processJob(context.Background(), &domain.Job{TransferID: transferID})
}
