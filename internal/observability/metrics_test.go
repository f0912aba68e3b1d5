package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_DownloadLifecycle(t *testing.T) {
	m := New()

	m.DownloadStarted("audio")
	m.DownloadStarted("video")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DownloadsInFlight))

	m.DownloadCompleted("audio", 3*time.Second)
	m.DownloadFailed("video", "network", time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.DownloadsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DownloadsStarted.WithLabelValues("audio")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DownloadsCompleted.WithLabelValues("audio")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DownloadsFailed.WithLabelValues("video", "network")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.DownloadDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.DownloadStarted("audio")
		m.DownloadCompleted("audio", time.Second)
		m.DownloadFailed("audio", "tool", time.Second)
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	})
}

func TestMetrics_InstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.DownloadStarted("audio")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.DownloadsInFlight))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.DownloadsInFlight))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/health", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pydown_http_requests_total{method="GET",path="/health",status="200"} 1`)
}
