package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/domain"
	"github.com/yourusername/pydown-go/internal/observability"
)

const (
	audioFormatSelector = "bestaudio/best"
	videoFormatSelector = "bestvideo+bestaudio/best"
)

// Orchestrator executes download requests: it drives the media fetcher,
// conditionally the transcoder, and reports through the supplied sinks.
// It holds no per-request state, so one instance serves any number of
// concurrent requests.
type Orchestrator struct {
	fetcher    domain.MediaFetcher
	transcoder domain.Transcoder
	config     *domain.Config
	notifier   domain.Notifier
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewOrchestrator creates a new orchestrator. notifier and metrics may be nil.
func NewOrchestrator(
	fetcher domain.MediaFetcher,
	transcoder domain.Transcoder,
	config *domain.Config,
	notifier domain.Notifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:    fetcher,
		transcoder: transcoder,
		config:     config,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// Validate normalizes req and checks it against the active variant.
// Video containers the variant does not offer fall back to mp4.
func (o *Orchestrator) Validate(req domain.DownloadRequest) (domain.DownloadRequest, error) {
	req = domain.NewDownloadRequest(req.URL, req.Mode, req.AudioFormat, req.VideoFormat)
	variant := &o.config.Variant

	if req.URL == "" {
		return req, domain.NewDownloadError(domain.KindValidation, domain.ErrEmptyURL)
	}

	switch req.Mode {
	case domain.ModeAudio:
		if req.AudioFormat == "" {
			req.AudioFormat = variant.DefaultAudioFormat
		}
		if !domain.ValidateAudioFormat(req.AudioFormat) || !variant.SupportsAudio(req.AudioFormat) {
			return req, domain.Validationf("unsupported audio format: %s", req.AudioFormat)
		}
	case domain.ModeVideo:
		if req.VideoFormat == "" {
			req.VideoFormat = variant.DefaultVideoFormat
		}
		if !domain.ValidateVideoFormat(req.VideoFormat) || !variant.SupportsVideo(req.VideoFormat) {
			o.logger.Debug("Unrecognized video format, falling back",
				zap.String("requested", string(req.VideoFormat)),
				zap.String("fallback", string(domain.DefaultVideoFormat)))
			req.VideoFormat = domain.DefaultVideoFormat
		}
	default:
		return req, domain.Validationf("invalid mode selected: %q", req.Mode)
	}

	return req, nil
}

// Execute runs one request to completion. A validation failure returns a nil
// result and emits nothing. Every other failure is reported as exactly one
// error event and a failed result, alongside the same *domain.DownloadError.
func (o *Orchestrator) Execute(
	ctx context.Context,
	req domain.DownloadRequest,
	progress domain.ProgressSink,
	logs domain.LogSink,
) (*domain.DownloadResult, error) {
	req, err := o.Validate(req)
	if err != nil {
		o.logger.Info("Rejected download request", zap.String("url", req.URL), zap.Error(err))
		return nil, err
	}

	rep := newProgressReporter(progress, logs, o.logger)
	start := time.Now()
	o.metrics.DownloadStarted(string(req.Mode))

	o.logger.Info("Processing download",
		zap.String("url", req.URL),
		zap.String("mode", string(req.Mode)),
		zap.String("audio_format", string(req.AudioFormat)),
		zap.String("video_format", string(req.VideoFormat)))

	outputPath, err := o.run(ctx, req, rep)
	if err != nil {
		de := asDownloadError(err)
		rep.Fail(de.Message)
		o.metrics.DownloadFailed(string(req.Mode), string(de.Kind), time.Since(start))

		o.logger.Error("Download failed",
			zap.String("url", req.URL),
			zap.String("kind", string(de.Kind)),
			zap.Error(de.Err))

		if o.notifier != nil {
			o.notifier.NotifyDownloadFailed(req, de)
		}

		return &domain.DownloadResult{
			Outcome:     domain.OutcomeFailure,
			ErrorDetail: de.Message,
			ErrorKind:   de.Kind,
		}, de
	}

	rep.Done(fmt.Sprintf("Saved %s: %s", strings.ToUpper(activeFormat(req)), outputPath))
	o.metrics.DownloadCompleted(string(req.Mode), time.Since(start))

	o.logger.Info("Download completed",
		zap.String("url", req.URL),
		zap.String("file", outputPath),
		zap.Duration("elapsed", time.Since(start)))

	if o.notifier != nil {
		o.notifier.NotifyDownloadCompleted(req, outputPath)
	}

	return &domain.DownloadResult{
		Outcome:    domain.OutcomeSuccess,
		OutputPath: outputPath,
	}, nil
}

// run dispatches on the mode
func (o *Orchestrator) run(ctx context.Context, req domain.DownloadRequest, rep *progressReporter) (string, error) {
	switch req.Mode {
	case domain.ModeAudio:
		return o.runAudio(ctx, req, rep)
	case domain.ModeVideo:
		return o.runVideo(ctx, req, rep)
	}
	return "", domain.Validationf("invalid mode selected: %q", req.Mode)
}

// runAudio fetches the best audio stream, transcodes it and removes the raw file
func (o *Orchestrator) runAudio(ctx context.Context, req domain.DownloadRequest, rep *progressReporter) (string, error) {
	opts := o.fetchOptions(audioFormatSelector)

	raw, err := o.fetch(ctx, req.URL, opts, rep)
	if err != nil {
		return "", err
	}

	output := replaceExt(raw, string(req.AudioFormat))
	rep.PostProcessing("Processing file...")
	rep.Log(fmt.Sprintf("Converting %s to %s", filepath.Base(raw), strings.ToUpper(string(req.AudioFormat))))

	if output == raw {
		// Raw container already carries the target extension: transcode into a
		// staging file and move it over the raw one.
		staging := replaceExt(raw, "transcode."+string(req.AudioFormat))
		if err := o.transcode(ctx, raw, staging, req.AudioFormat); err != nil {
			os.Remove(staging)
			return "", err
		}
		if err := os.Rename(staging, output); err != nil {
			return "", domain.NewDownloadError(domain.KindFilesystem, fmt.Errorf("failed to replace %s: %w", output, err))
		}
		return output, nil
	}

	if err := o.transcode(ctx, raw, output, req.AudioFormat); err != nil {
		return "", err
	}

	if err := os.Remove(raw); err != nil {
		o.logger.Warn("Failed to remove intermediate file", zap.String("file", raw), zap.Error(err))
		rep.Log(fmt.Sprintf("warning: could not remove %s: %v", raw, err))
	}

	return output, nil
}

// runVideo fetches video+audio and lets the fetcher merge them into the container
func (o *Orchestrator) runVideo(ctx context.Context, req domain.DownloadRequest, rep *progressReporter) (string, error) {
	container := string(req.VideoFormat)

	opts := o.fetchOptions(videoFormatSelector)
	opts.MergeFormat = container
	opts.PostProcessorArgs = fmt.Sprintf("Merger+ffmpeg:-c:v copy -c:a aac -b:a %s", o.config.Fetcher.MergeAudioBitrate)

	path, err := o.fetch(ctx, req.URL, opts, rep)
	if err != nil {
		return "", err
	}

	if !strings.EqualFold(filepath.Ext(path), "."+container) {
		if candidate := replaceExt(path, container); fileExists(candidate) {
			path = candidate
		}
	}

	return path, nil
}

func (o *Orchestrator) fetchOptions(selector string) domain.FetchOptions {
	return domain.FetchOptions{
		Format:         selector,
		OutputDir:      o.config.Download.OutputDir,
		OutputTemplate: o.config.Download.FilenameTemplate,
	}
}

// fetch runs the fetcher and checks that the reported file is on disk
func (o *Orchestrator) fetch(ctx context.Context, url string, opts domain.FetchOptions, rep *progressReporter) (string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", domain.NewDownloadError(domain.KindFilesystem, fmt.Errorf("failed to create output directory: %w", err))
	}

	var res *domain.FetchResult
	err := o.guard(domain.KindFetch, func() error {
		var ferr error
		res, ferr = o.fetcher.Fetch(ctx, url, opts, rep.OnFetchProgress)
		return ferr
	})
	if res != nil {
		for _, line := range res.Output {
			rep.Log(line)
		}
	}
	if err != nil {
		if domain.KindOf(err) != "" {
			return "", err
		}
		return "", domain.NewDownloadError(domain.KindFetch, err)
	}

	if res == nil || res.FilePath == "" {
		return "", domain.NewDownloadError(domain.KindFetch, errors.New("fetcher did not report a downloaded file"))
	}
	if _, err := os.Stat(res.FilePath); err != nil {
		return "", domain.NewDownloadError(domain.KindFilesystem, fmt.Errorf("downloaded file missing: %w", err))
	}

	return res.FilePath, nil
}

func (o *Orchestrator) transcode(ctx context.Context, input, output string, format domain.AudioFormat) error {
	err := o.guard(domain.KindTranscode, func() error {
		return o.transcoder.Transcode(ctx, input, output, format)
	})
	if err != nil {
		if domain.KindOf(err) != "" {
			return err
		}
		return domain.NewDownloadError(domain.KindTranscode, err)
	}
	return nil
}

// guard calls fn and turns a panic inside it into a DownloadError of kind
func (o *Orchestrator) guard(kind domain.ErrorKind, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Recovered panic in collaborator",
				zap.String("kind", string(kind)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = domain.NewDownloadError(kind, fmt.Errorf("internal error: %v", r))
		}
	}()
	return fn()
}

// asDownloadError normalizes anything that escaped the run into a DownloadError
func asDownloadError(err error) *domain.DownloadError {
	var de *domain.DownloadError
	if errors.As(err, &de) {
		return de
	}
	return domain.NewDownloadError(domain.KindFetch, err)
}

func activeFormat(req domain.DownloadRequest) string {
	if req.Mode == domain.ModeAudio {
		return string(req.AudioFormat)
	}
	return string(req.VideoFormat)
}

// replaceExt swaps the extension of path for ext (given without a dot)
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
