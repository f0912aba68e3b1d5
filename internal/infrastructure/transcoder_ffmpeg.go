package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/domain"
)

// stderrTailLines bounds how much ffmpeg output ends up in an error
const stderrTailLines = 5

// FFmpegTranscoder implements domain.Transcoder by running ffmpeg
type FFmpegTranscoder struct {
	config *domain.TranscoderConfig
	logger *zap.Logger
}

// NewFFmpegTranscoder creates a new ffmpeg transcoder
func NewFFmpegTranscoder(config *domain.TranscoderConfig, logger *zap.Logger) *FFmpegTranscoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegTranscoder{
		config: config,
		logger: logger,
	}
}

// Transcode re-encodes input as format into output, overwriting output
func (t *FFmpegTranscoder) Transcode(ctx context.Context, input, output string, format domain.AudioFormat) error {
	args, err := t.args(input, output, format)
	if err != nil {
		return err
	}

	t.logger.Debug("Running ffmpeg", zap.String("command", ShellEscapeCommand(t.config.FFmpegBinary, args...)))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.config.FFmpegBinary, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if tail := lastLines(stderr.String(), stderrTailLines); tail != "" {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, tail)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}

	return nil
}

// args builds the ffmpeg argument list; video streams are always dropped
func (t *FFmpegTranscoder) args(input, output string, format domain.AudioFormat) ([]string, error) {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", input, "-vn"}

	switch format {
	case domain.AudioMP3:
		args = append(args, "-codec:a", "libmp3lame", "-b:a", valueOr(t.config.MP3Bitrate, "192k"))
	case domain.AudioWAV:
		args = append(args, "-codec:a", "pcm_s16le")
	case domain.AudioOGG:
		args = append(args, "-codec:a", "libvorbis", "-q:a", valueOr(t.config.OGGQuality, "5"))
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", format)
	}

	return append(args, output), nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// lastLines returns the last n non-empty lines of s joined by "; "
func lastLines(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
