package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDownloadRequest_Normalizes(t *testing.T) {
	req := NewDownloadRequest("  https://example/video123 \n", " Audio", "WAV ", "")

	assert.Equal(t, "https://example/video123", req.URL)
	assert.Equal(t, ModeAudio, req.Mode)
	assert.Equal(t, AudioWAV, req.AudioFormat)
	assert.Equal(t, VideoFormat(""), req.VideoFormat)
}

func TestNewJob(t *testing.T) {
	req := NewDownloadRequest("https://example/v", ModeVideo, "", VideoMKV)

	job := NewJob(req)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, req, job.Request)
	assert.Equal(t, PhaseIdle, job.Phase)
	assert.False(t, job.IsTerminal())
	assert.Nil(t, job.CompletedAt)
}

func TestJob_ApplyAndComplete(t *testing.T) {
	job := NewJob(NewDownloadRequest("https://example/v", ModeAudio, AudioMP3, ""))

	job.Apply(ProgressEvent{Phase: PhaseDownloading, Percent: 12.5})
	assert.Equal(t, PhaseDownloading, job.Phase)
	assert.Equal(t, 12.5, job.LastEvent.Percent)

	job.Complete(&DownloadResult{Outcome: OutcomeSuccess, OutputPath: "/tmp/a.mp3"})
	assert.True(t, job.IsTerminal())
	assert.Equal(t, PhaseDone, job.Phase)
	assert.NotNil(t, job.CompletedAt)
}

func TestJob_CompleteFailure(t *testing.T) {
	job := NewJob(NewDownloadRequest("https://example/v", ModeAudio, AudioMP3, ""))

	job.Complete(&DownloadResult{Outcome: OutcomeFailure, ErrorDetail: "boom", ErrorKind: KindFetch})

	assert.Equal(t, PhaseError, job.Phase)
	assert.False(t, job.Result.Succeeded())
}

func TestPhase_IsTerminal(t *testing.T) {
	assert.False(t, PhaseIdle.IsTerminal())
	assert.False(t, PhaseDownloading.IsTerminal())
	assert.False(t, PhasePostProcessing.IsTerminal())
	assert.True(t, PhaseDone.IsTerminal())
	assert.True(t, PhaseError.IsTerminal())
}

func TestValidateFormats(t *testing.T) {
	assert.True(t, ValidateMode(ModeAudio))
	assert.True(t, ValidateMode(ModeVideo))
	assert.False(t, ValidateMode("playlist"))

	assert.True(t, ValidateAudioFormat(AudioOGG))
	assert.False(t, ValidateAudioFormat("flac"))

	assert.True(t, ValidateVideoFormat(VideoMOV))
	assert.False(t, ValidateVideoFormat("avi"))
}

func TestFetchProgress_Fraction(t *testing.T) {
	f, ok := FetchProgress{DownloadedBytes: 50, TotalBytes: 200}.Fraction()
	assert.True(t, ok)
	assert.Equal(t, 0.25, f)

	f, ok = FetchProgress{DownloadedBytes: 300, TotalBytes: 200}.Fraction()
	assert.True(t, ok)
	assert.Equal(t, 1.0, f)

	_, ok = FetchProgress{DownloadedBytes: 10}.Fraction()
	assert.False(t, ok)
}

func TestDownloadError_Kinds(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := fmt.Errorf("running: %w", NewDownloadError(KindFetch, cause))

	assert.True(t, errors.Is(err, ErrFetch))
	assert.False(t, errors.Is(err, ErrTranscode))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindFetch, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}

func TestDownloadError_WrapsSentinel(t *testing.T) {
	err := NewDownloadError(KindValidation, ErrEmptyURL)

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, ErrEmptyURL))
	assert.Equal(t, ErrEmptyURL.Error(), err.Error())
}

func TestValidationf(t *testing.T) {
	err := Validationf("invalid mode: %s", "karaoke")

	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "invalid mode: karaoke", err.Message)
}
