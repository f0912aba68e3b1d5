package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/app"
	"github.com/yourusername/pydown-go/internal/domain"
	"github.com/yourusername/pydown-go/internal/observability"
	"github.com/yourusername/pydown-go/pkg/logger"
)

// fakeFetcher writes a small file and reports two progress updates
type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, opts domain.FetchOptions, onProgress func(domain.FetchProgress)) (*domain.FetchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	onProgress(domain.FetchProgress{Status: domain.FetchDownloading, DownloadedBytes: 5, TotalBytes: 10})
	onProgress(domain.FetchProgress{Status: domain.FetchFinished, DownloadedBytes: 10, TotalBytes: 10})

	ext := "webm"
	if opts.MergeFormat != "" {
		ext = opts.MergeFormat
	}
	path := filepath.Join(opts.OutputDir, "media."+ext)
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		return nil, err
	}
	return &domain.FetchResult{FilePath: path, Output: []string{"[download] Destination: " + path}}, nil
}

type copyTranscoder struct{}

func (copyTranscoder) Transcode(ctx context.Context, input, output string, format domain.AudioFormat) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0644)
}

type testServer struct {
	router  *gin.Engine
	jobs    *app.JobManager
	config  *domain.Config
	logPath string
}

func newTestServer(t *testing.T, variant domain.VariantConfig, fetcher domain.MediaFetcher) *testServer {
	t.Helper()
	dir := t.TempDir()

	config := domain.DefaultConfig()
	config.Download.OutputDir = filepath.Join(dir, "out")
	config.Variant = variant

	var (
		logs      domain.LogSink
		logReader *logger.LogReader
		logPath   string
	)
	if variant.PersistLog {
		logPath = filepath.Join(dir, "VanillaPyDown.log")
		sink, err := logger.OpenFileSink(logPath)
		require.NoError(t, err)
		t.Cleanup(func() { sink.Close() })
		logs = sink
		logReader = logger.NewLogReader(logPath)
	}

	metrics := observability.New()
	orchestrator := app.NewOrchestrator(fetcher, copyTranscoder{}, config, nil, metrics, zap.NewNop())
	jobs := app.NewJobManager(orchestrator, logs, zap.NewNop())

	return &testServer{
		router:  SetupRouter(jobs, config, logReader, metrics, zap.NewNop()),
		jobs:    jobs,
		config:  config,
		logPath: logPath,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) submit(t *testing.T, body map[string]string) domain.Job {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/downloads", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var job domain.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	return job
}

func (s *testServer) wait(t *testing.T, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.jobs.Wait(ctx, id)
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, domain.VariantClassic, resp["variant"])
}

func TestFormats(t *testing.T) {
	s := newTestServer(t, domain.CompactVariant(), &fakeFetcher{})

	w := s.do(t, http.MethodGet, "/api/v1/formats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Variant      string   `json:"variant"`
		AudioFormats []string `json:"audio_formats"`
		VideoFormats []string `json:"video_formats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.VariantCompact, resp.Variant)
	assert.Equal(t, []string{"mp3", "wav"}, resp.AudioFormats)
	assert.Equal(t, []string{"mp4", "mov", "mkv"}, resp.VideoFormats)
}

func TestAddDownload_AudioSucceeds(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})

	job := s.submit(t, map[string]string{"url": "https://example.com/v", "mode": "audio", "audio_format": "ogg"})
	assert.Equal(t, domain.AudioOGG, job.Request.AudioFormat)
	s.wait(t, job.ID)

	w := s.do(t, http.MethodGet, "/api/v1/downloads/"+job.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.PhaseDone, got.Phase)
	require.NotNil(t, got.Result)
	assert.Equal(t, domain.OutcomeSuccess, got.Result.Outcome)
	assert.Equal(t, filepath.Join(s.config.Download.OutputDir, "media.ogg"), got.Result.OutputPath)
}

func TestAddDownload_ValidationErrors(t *testing.T) {
	s := newTestServer(t, domain.CompactVariant(), &fakeFetcher{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty url", map[string]string{"url": "", "mode": "audio"}},
		{"bad mode", map[string]string{"url": "https://example.com/v", "mode": "karaoke"}},
		{"format not in variant", map[string]string{"url": "https://example.com/v", "mode": "audio", "audio_format": "ogg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/downloads", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"kind":"validation"`)
		})
	}

	assert.Empty(t, s.jobs.List())
}

func TestAddDownload_MalformedJSON(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/downloads", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddDownload_FetchFailureRecorded(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{err: assert.AnError})

	job := s.submit(t, map[string]string{"url": "https://example.com/v", "mode": "video", "video_format": "avi"})
	assert.Equal(t, domain.VideoMP4, job.Request.VideoFormat)
	s.wait(t, job.ID)

	w := s.do(t, http.MethodGet, "/api/v1/downloads/"+job.ID, nil)
	var got domain.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.PhaseError, got.Phase)
	assert.Equal(t, domain.KindFetch, got.Result.ErrorKind)
	assert.Equal(t, assert.AnError.Error(), got.Result.ErrorDetail)
}

func TestGetDownload_NotFound(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})

	w := s.do(t, http.MethodGet, "/api/v1/downloads/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/downloads/nope/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListDownloadsAndStats(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})

	job := s.submit(t, map[string]string{"url": "https://example.com/v", "mode": "video"})
	s.wait(t, job.ID)

	w := s.do(t, http.MethodGet, "/api/v1/downloads", nil)
	var jobs []domain.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)

	w = s.do(t, http.MethodGet, "/api/v1/downloads?phase=error", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	assert.Empty(t, jobs)

	w = s.do(t, http.MethodGet, "/api/v1/downloads/stats", nil)
	var stats struct {
		Total   int            `json:"total"`
		ByPhase map[string]int `json:"by_phase"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByPhase["done"])
}

func TestEventsWebSocket(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})
	job := s.submit(t, map[string]string{"url": "https://example.com/v", "mode": "audio", "audio_format": "mp3"})
	s.wait(t, job.ID)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/downloads/" + job.ID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var phases []domain.Phase
	for {
		var ev domain.ProgressEvent
		if err := conn.ReadJSON(&ev); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		phases = append(phases, ev.Phase)
	}

	assert.Equal(t, []domain.Phase{domain.PhaseDownloading, domain.PhasePostProcessing, domain.PhaseDone}, phases)
}

func TestLogs_Persisted(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})
	job := s.submit(t, map[string]string{"url": "https://example.com/v", "mode": "audio", "audio_format": "wav"})
	s.wait(t, job.ID)

	w := s.do(t, http.MethodGet, "/api/v1/logs?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Persisted bool     `json:"persisted"`
		Lines     []string `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Persisted)
	require.Len(t, resp.Lines, 1)
	assert.True(t, strings.HasPrefix(resp.Lines[0], "Saved WAV: "))

	w = s.do(t, http.MethodGet, "/api/v1/logs?q=destination", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 1)
	assert.Contains(t, resp.Lines[0], "[download] Destination:")

	w = s.do(t, http.MethodGet, "/api/v1/logs/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Saved WAV: ")
}

func TestLogs_NotPersisted(t *testing.T) {
	s := newTestServer(t, domain.CompactVariant(), &fakeFetcher{})

	w := s.do(t, http.MethodGet, "/api/v1/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"persisted":false`)

	w = s.do(t, http.MethodGet, "/api/v1/logs/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})
	job := s.submit(t, map[string]string{"url": "https://example.com/v", "mode": "video"})
	s.wait(t, job.ID)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `pydown_downloads_completed_total{mode="video"} 1`)
	assert.Contains(t, w.Body.String(), `pydown_http_requests_total{method="POST",path="/api/v1/downloads",status="202"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})

	w := s.do(t, http.MethodOptions, "/api/v1/downloads", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t, domain.ClassicVariant(), &fakeFetcher{})

	w := s.do(t, http.MethodGet, "/api/v1/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
