//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pydown-go/api"
	"github.com/yourusername/pydown-go/internal/app"
	"github.com/yourusername/pydown-go/internal/domain"
)

func TestAPI_DownloadLifecycle(t *testing.T) {
	url := testURL(t)
	rt := newRuntime(t, domain.ClassicVariant())

	jobs := app.NewJobManager(rt.Orchestrator, rt.LogSink, rt.Logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		jobs.Shutdown(ctx)
	})

	server := httptest.NewServer(api.SetupRouter(jobs, rt.Config, rt.LogReader, rt.Metrics, rt.Logger))
	defer server.Close()

	body, _ := json.Marshal(map[string]string{
		"url":          url,
		"mode":         "audio",
		"audio_format": "ogg",
	})
	resp, err := http.Post(server.URL+"/api/v1/downloads", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var job domain.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	done, err := jobs.Wait(ctx, job.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseDone, done.Phase)
	assert.True(t, done.Result.Succeeded())

	logs, err := http.Get(server.URL + "/api/v1/logs?q=Saved")
	require.NoError(t, err)
	defer logs.Body.Close()
	assert.Equal(t, http.StatusOK, logs.StatusCode)
}
