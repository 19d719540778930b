package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

type fakeJobs struct {
	mu        sync.Mutex
	records   map[string]schemas.JobRecord
	submitted []schemas.RunRequest
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{records: make(map[string]schemas.JobRecord)}
}

func (f *fakeJobs) Submit(_ context.Context, req schemas.RunRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	id := "job-1"
	f.records[id] = schemas.JobRecord{ID: id, Status: schemas.JobRunning, Request: req}
	return id, nil
}

func (f *fakeJobs) Get(id string) (schemas.JobRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	return rec, ok
}

func testServerConfig() config.ServerConfig {
	cfg := config.NewDefaultConfig().Server
	cfg.Addr = "127.0.0.1:0"
	cfg.SubmitRate = 100
	cfg.SubmitBurst = 100
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

func setupServer(t *testing.T, cfg config.ServerConfig) (*httptest.Server, *fakeJobs, string) {
	t.Helper()
	dir := t.TempDir()
	jobs := newFakeJobs()
	srv := New(cfg, config.EvidenceConfig{Dir: dir, URLPrefix: "/screenshots"}, dir, jobs, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, jobs, dir
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	ts, _, _ := setupServer(t, testServerConfig())
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestSubmitRun(t *testing.T) {
	ts, jobs, _ := setupServer(t, testServerConfig())

	t.Run("Accepted", func(t *testing.T) {
		body := `{"url":"https://example.com","instructions":"check the title","options":{"captureScreenshots":true,"deviceProfile":"mobile"}}`
		resp, err := http.Post(ts.URL+"/api/run", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Equal(t, "job-1", decodeBody(t, resp)["jobId"])

		require.Len(t, jobs.submitted, 1)
		assert.Equal(t, schemas.DeviceMobile, jobs.submitted[0].Options.DeviceProfile)
		assert.True(t, jobs.submitted[0].Options.CaptureScreenshots)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/run", "application/json", strings.NewReader(`{"url":`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeBody(t, resp)["error"], "invalid request body")
	})

	t.Run("EmptyBody", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/run", "application/json", strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/run", "application/json", strings.NewReader(`{"url":"https://example.com"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "instructions are required", decodeBody(t, resp)["error"])
	})
}

func TestSubmitRun_RateLimited(t *testing.T) {
	cfg := testServerConfig()
	cfg.SubmitRate = 0.001
	cfg.SubmitBurst = 1
	ts, _, _ := setupServer(t, cfg)

	body := `{"url":"https://example.com","instructions":"x"}`
	first, err := http.Post(ts.URL+"/api/run", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusAccepted, first.StatusCode)

	second, err := http.Post(ts.URL+"/api/run", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "rate limit exceeded", decodeBody(t, second)["error"])

	// Status reads are not limited.
	status, err := http.Get(ts.URL + "/api/status/job-1")
	require.NoError(t, err)
	status.Body.Close()
	assert.Equal(t, http.StatusOK, status.StatusCode)
}

func TestGetStatus(t *testing.T) {
	ts, jobs, _ := setupServer(t, testServerConfig())
	jobs.records["done"] = schemas.JobRecord{
		ID:     "done",
		Status: schemas.JobSuccess,
		Report: &schemas.RunReport{RunID: "done", Status: schemas.RunSuccess, Message: "ok"},
	}

	t.Run("Found", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/status/done")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "done", body["jobId"])
		assert.Equal(t, "success", body["status"])
		assert.NotNil(t, body["report"])
	})

	t.Run("NotFound", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/status/unknown")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, map[string]interface{}{"error": "job not found"}, decodeBody(t, resp))
	})
}

func TestScreenshotsAndMetrics(t *testing.T) {
	ts, _, dir := setupServer(t, testServerConfig())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "initial_1.png"), []byte("\x89PNG"), 0644))

	resp, err := http.Get(ts.URL + "/screenshots/initial_1.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/screenshots/missing.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_GracefulShutdown(t *testing.T) {
	dir := t.TempDir()
	srv := New(testServerConfig(), config.EvidenceConfig{Dir: dir, URLPrefix: "/screenshots"}, dir, newFakeJobs(), zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testServerConfig()
	cfg.Addr = ln.Addr().String()
	dir := t.TempDir()
	srv := New(cfg, config.EvidenceConfig{Dir: dir, URLPrefix: "/screenshots"}, dir, newFakeJobs(), zaptest.NewLogger(t))

	err = srv.Serve(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, http.ErrServerClosed))
}
