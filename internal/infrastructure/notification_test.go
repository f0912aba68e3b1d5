package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pydown-go/internal/domain"
)

type recordedCommand struct {
	name string
	args []string
}

func newTestNotifier(config *domain.NotificationConfig, runErr error) (*NotificationService, *[]recordedCommand) {
	var calls []recordedCommand
	n := NewNotificationService(config, nil)
	n.run = func(name string, args ...string) error {
		calls = append(calls, recordedCommand{name: name, args: args})
		return runErr
	}
	return n, &calls
}

func TestNotificationService_Disabled(t *testing.T) {
	n, calls := newTestNotifier(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil)

	require.NoError(t, n.Send("title", "message"))
	assert.Empty(t, *calls)
}

func TestNotificationService_NotifySend(t *testing.T) {
	n, calls := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	req := domain.DownloadRequest{URL: "https://example.com/v", Mode: domain.ModeAudio, AudioFormat: domain.AudioWAV}
	n.NotifyDownloadCompleted(req, "/tmp/out/Song.wav")

	require.Len(t, *calls, 1)
	assert.Equal(t, "notify-send", (*calls)[0].name)
	assert.Equal(t, []string{"Download Completed", "Saved WAV: Song.wav"}, (*calls)[0].args)
}

func TestNotificationService_OSAScriptEscapesQuotes(t *testing.T) {
	n, calls := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "osascript"}, nil)

	require.NoError(t, n.Send("Done", `say "hi"`))

	require.Len(t, *calls, 1)
	assert.Equal(t, "osascript", (*calls)[0].name)
	assert.Equal(t, `display notification "say \"hi\"" with title "Done"`, (*calls)[0].args[1])
}

func TestNotificationService_FailedDownload(t *testing.T) {
	n, calls := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	n.NotifyDownloadFailed(domain.DownloadRequest{URL: "https://example.com/a/very/long/path/to/media"}, errors.New("network unreachable"))

	require.Len(t, *calls, 1)
	assert.Equal(t, "Download Failed", (*calls)[0].args[0])
	assert.Equal(t, "https://example.com/a/very/lon...: network unreachable", (*calls)[0].args[1])
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	n, calls := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "pigeon"}, nil)

	require.NoError(t, n.Send("t", "m"))
	assert.Empty(t, *calls)
}

func TestNotificationService_CommandError(t *testing.T) {
	n, _ := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, errors.New("not installed"))

	assert.Error(t, n.Send("t", "m"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
}
