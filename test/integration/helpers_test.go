//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/pydown-go/internal/bootstrap"
	"github.com/yourusername/pydown-go/internal/domain"
)

// testURL is a short public clip, set through PYDOWN_IT_URL
func testURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("PYDOWN_IT_URL")
	if url == "" {
		t.Skip("PYDOWN_IT_URL not set")
	}
	for _, bin := range []string{"yt-dlp", "ffmpeg"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}
	return url
}

func newRuntime(t *testing.T, variant domain.VariantConfig) *bootstrap.Runtime {
	t.Helper()
	dir := t.TempDir()

	config := domain.DefaultConfig()
	config.Variant = variant
	config.Variant.LogFile = filepath.Join(dir, "pydown.log")
	config.Download.OutputDir = dir
	config.Logging.Level = "debug"

	rt, err := bootstrap.New(config)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}
