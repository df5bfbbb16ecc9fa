package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/archival-ingest/internal/api/domain"
	"github.com/cuongbtq/archival-ingest/internal/api/dto"
	"github.com/cuongbtq/archival-ingest/internal/api/handler"
	"github.com/cuongbtq/archival-ingest/internal/api/model"
	"github.com/cuongbtq/archival-ingest/internal/api/storage"
	"github.com/cuongbtq/archival-ingest/internal/clients/objectstore"
	"github.com/cuongbtq/archival-ingest/internal/metrics"
	workerdomain "github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

type memoryStore struct {
	aips      []model.AIP
	files     map[string][]model.File // keyed by aip id + area
	createErr error
	seq       int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: map[string][]model.File{}}
}

func (m *memoryStore) CreateAIP(ctx context.Context, aip *model.AIP, originals, preserved []model.File) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	aip.ID = fmt.Sprintf("aip-%d", m.seq)
	aip.CreatedAt = time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
	m.aips = append(m.aips, *aip)
	m.files[aip.ID+domain.AreaOriginals] = originals
	m.files[aip.ID+domain.AreaPreservation] = preserved
	return nil
}

func (m *memoryStore) GetAIPByTransferID(ctx context.Context, transferID string) (*model.AIP, error) {
	for _, a := range m.aips {
		if a.TransferID == transferID {
			return &a, nil
		}
	}
	return nil, domain.ErrAIPNotFound
}

func (m *memoryStore) FirstFile(ctx context.Context, aipID, area string) (*model.File, error) {
	files := m.files[aipID+area]
	if len(files) == 0 {
		return nil, domain.ErrFileNotFound
	}
	return &files[0], nil
}

func (m *memoryStore) ListAIPs(ctx context.Context, filter storage.AIPFilter) ([]model.AIP, error) {
	sorted := append([]model.AIP(nil), m.aips...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	var out []model.AIP
	for _, a := range sorted {
		if filter.Cursor != nil && !a.CreatedAt.Before(filter.Cursor.CreatedAt) {
			continue
		}
		out = append(out, a)
		if len(out) == filter.PageSize+1 {
			break
		}
	}
	return out, nil
}

type fakeQueue struct {
	bodies [][]byte
	err    error
}

func (q *fakeQueue) Push(ctx context.Context, body []byte) error {
	if q.err != nil {
		return q.err
	}
	q.bodies = append(q.bodies, body)
	return nil
}

type fakeObjects struct {
	info *objectstore.ObjectInfo
	err  error
}

func (f fakeObjects) Stat(ctx context.Context, bucket, path string) (*objectstore.ObjectInfo, error) {
	return f.info, f.err
}

type testServer struct {
	engine  *gin.Engine
	store   *memoryStore
	queue   *fakeQueue
	metrics *metrics.API
}

func newTestServer(t *testing.T, objects handler.ObjectStater) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		store:   newMemoryStore(),
		queue:   &fakeQueue{},
		metrics: metrics.NewAPI(prometheus.NewRegistry()),
	}
	ts.engine = SetupRouter(&handler.Dependencies{
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:              ts.store,
		Queue:              ts.queue,
		Objects:            objects,
		Metrics:            ts.metrics,
		OriginalsBucket:    "originals",
		PreservationBucket: "preservation",
	})
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func record(transferID string, withPreserved bool) workerdomain.ArchivalRecord {
	r := workerdomain.ArchivalRecord{
		TransferID: transferID,
		Title:      "minutes",
		RA:         "RA-1",
		Originals: []workerdomain.FileArtifact{
			{Name: "minutes.docx", StoragePath: "RA-1/minutes.docx", Checksum: "aa", Format: "docx"},
		},
		Preserved: []workerdomain.FileArtifact{},
	}
	if withPreserved {
		r.Preserved = append(r.Preserved, workerdomain.FileArtifact{
			Name: "minutes.pdf", StoragePath: "RA-1/minutes.pdf", Checksum: "bb", Format: "pdf",
		})
	}
	return r
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAIP(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/aips/", record("T-1", true))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.CreateAIPResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AIPID)
	assert.Equal(t, "AIP registered", resp.Message)

	require.Len(t, ts.store.aips, 1)
	aip := ts.store.aips[0]
	assert.Equal(t, "T-1", aip.TransferID)
	require.NotNil(t, aip.RA)
	assert.Equal(t, "RA-1", *aip.RA)
	assert.Nil(t, aip.FolderID)
	assert.Len(t, ts.store.files[aip.ID+domain.AreaPreservation], 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.AIPsRegistered))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.RequestsTotal.WithLabelValues("/aips/", "201")))
}

func TestCreateAIP_Rejections(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/aips/", map[string]any{"title": "no id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad := record("T-2", false)
	bad.Originals[0].Checksum = ""
	w = ts.do(http.MethodPost, "/aips/", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.store.createErr = errors.New("deadlock detected")
	w = ts.do(http.MethodPost, "/aips/", record("T-3", false))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, ts.store.aips)
}

func TestGetLocation_PrefersPreservation(t *testing.T) {
	modified := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := newTestServer(t, fakeObjects{info: &objectstore.ObjectInfo{Size: 321, LastModified: modified}})
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/aips/", record("T-1", true)).Code)

	w := ts.do(http.MethodGet, "/aips/T-1/location", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.LocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "preservation", resp.Bucket)
	assert.Equal(t, "RA-1/minutes.pdf", resp.Path)
	assert.Equal(t, "minutes.pdf", resp.Filename)
	require.NotNil(t, resp.Size)
	assert.Equal(t, int64(321), *resp.Size)
	assert.Equal(t, "2024-06-01T12:00:00Z", resp.LastModified)
}

func TestGetLocation_FallsBackToOriginal(t *testing.T) {
	ts := newTestServer(t, fakeObjects{err: objectstore.ErrObjectNotFound})
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/aips/", record("T-1", false)).Code)

	w := ts.do(http.MethodGet, "/aips/T-1/location", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.LocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "originals", resp.Bucket)
	assert.Equal(t, "RA-1/minutes.docx", resp.Path)
	assert.Nil(t, resp.Size)
}

func TestGetLocation_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/aips/T-404/location", nil).Code)

	empty := record("T-5", false)
	empty.Originals = nil
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/aips/", empty).Code)
	w := ts.do(http.MethodGet, "/aips/T-5/location", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No file associated")
}

func TestListAIPs_Paginates(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, id := range []string{"T-1", "T-2", "T-3"} {
		require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/aips/", record(id, false)).Code)
	}

	w := ts.do(http.MethodGet, "/aips?page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var first dto.ListAIPsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Len(t, first.AIPs, 2)
	assert.Equal(t, "T-3", first.AIPs[0].TransferID)
	assert.Equal(t, "T-2", first.AIPs[1].TransferID)
	require.NotEmpty(t, first.NextCursor)

	w = ts.do(http.MethodGet, "/aips?page_size=2&cursor="+first.NextCursor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var second dto.ListAIPsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.Len(t, second.AIPs, 1)
	assert.Equal(t, "T-1", second.AIPs[0].TransferID)
	assert.Empty(t, second.NextCursor)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/aips?cursor=%25%25", nil).Code)
}

func TestCreateTransfer(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/transfers", map[string]string{"transferId": "T-9", "ra": "RA-2", "folderId": "f1"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, ts.queue.bodies, 1)

	job, err := workerdomain.DecodeJob(ts.queue.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, &workerdomain.Job{TransferID: "T-9", RA: "RA-2", FolderID: "f1"}, job)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/transfers", map[string]string{"ra": "RA-2"}).Code)

	ts.queue.err = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(http.MethodPost, "/transfers", map[string]string{"transferId": "T-10"}).Code)
}
