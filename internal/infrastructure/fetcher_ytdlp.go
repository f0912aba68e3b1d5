package infrastructure

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/domain"
)

const (
	progressFrequency = 200 * time.Millisecond

	// finalFileMarker tags the path yt-dlp prints once the file is in place
	finalFileMarker = "PYDOWN_FILE:"
	printAfterMove  = "after_move:" + finalFileMarker + "%(filepath)s"
)

// YTDLPFetcher implements domain.MediaFetcher on top of the yt-dlp binary
type YTDLPFetcher struct {
	config *domain.FetcherConfig
	logger *zap.Logger
}

// NewYTDLPFetcher creates a new yt-dlp backed fetcher
func NewYTDLPFetcher(config *domain.FetcherConfig, logger *zap.Logger) *YTDLPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YTDLPFetcher{
		config: config,
		logger: logger,
	}
}

// Fetch downloads url according to opts and reports progress to onProgress
func (f *YTDLPFetcher) Fetch(ctx context.Context, url string, opts domain.FetchOptions, onProgress func(domain.FetchProgress)) (*domain.FetchResult, error) {
	command := f.command(opts, onProgress)

	f.logger.Debug("Running yt-dlp",
		zap.String("url", url),
		zap.String("format", opts.Format),
		zap.String("output_dir", opts.OutputDir))

	res, err := command.Run(ctx, url)
	result := &domain.FetchResult{}
	if res != nil {
		result.Output = outputLines(res.Stdout, res.Stderr)
		f.logger.Debug("yt-dlp finished",
			zap.String("command", ShellEscapeCommand(res.Executable, res.Args...)),
			zap.Int("exit_code", res.ExitCode))
	}
	if err != nil {
		return result, fmt.Errorf("yt-dlp: %w", err)
	}

	result.FilePath = lastFilePath(res.Stdout)

	info, err := res.GetExtractedInfo()
	if err != nil {
		f.logger.Debug("No extracted info from yt-dlp", zap.Error(err))
	}
	if len(info) > 0 {
		if info[0].Title != nil {
			result.Title = *info[0].Title
		}
		if result.FilePath == "" && info[0].Filename != nil {
			result.FilePath = *info[0].Filename
		}
	}

	return result, nil
}

// command builds the yt-dlp invocation for opts
func (f *YTDLPFetcher) command(opts domain.FetchOptions, onProgress func(domain.FetchProgress)) *ytdlp.Command {
	command := ytdlp.New().
		Format(opts.Format).
		Output(filepath.Join(opts.OutputDir, opts.OutputTemplate)).
		PrintJSON().
		Print(printAfterMove)

	if f.config.YTDLPBinary != "" {
		command = command.SetExecutable(f.config.YTDLPBinary)
	}
	if opts.MergeFormat != "" {
		command = command.MergeOutputFormat(opts.MergeFormat)
	}
	if opts.PostProcessorArgs != "" {
		command = command.PostProcessorArgs(opts.PostProcessorArgs)
	}
	if f.config.NoPlaylist {
		command = command.NoPlaylist()
	}
	if f.config.RestrictFilenames {
		command = command.RestrictFilenames()
	}
	if f.config.CookieFile != "" && fileExists(f.config.CookieFile) {
		command = command.Cookies(f.config.CookieFile)
	}
	if onProgress != nil {
		command = command.ProgressFunc(progressFrequency, func(update ytdlp.ProgressUpdate) {
			onProgress(toFetchProgress(update))
		})
	}

	return command
}

// toFetchProgress converts a yt-dlp progress update
func toFetchProgress(update ytdlp.ProgressUpdate) domain.FetchProgress {
	return domain.FetchProgress{
		Status:          domain.FetchStatus(update.Status),
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
		Filename:        update.Filename,
	}
}

// lastFilePath returns the last path yt-dlp printed after the final move
func lastFilePath(stdout string) string {
	var path string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, finalFileMarker) {
			continue
		}
		if p := strings.TrimSpace(strings.TrimPrefix(line, finalFileMarker)); p != "" {
			path = p
		}
	}
	return path
}

// outputLines splits yt-dlp output into log lines, dropping JSON info dumps
// and the final file marker
func outputLines(stdout, stderr string) []string {
	var lines []string
	for _, stream := range []string{stdout, stderr} {
		for _, line := range strings.Split(stream, "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" || json.Valid([]byte(line)) || strings.HasPrefix(line, finalFileMarker) {
				continue
			}
			lines = append(lines, line)
		}
	}
	return lines
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
