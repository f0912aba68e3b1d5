package domain

import "context"

// FetchStatus mirrors the lifecycle reported by the media fetcher
type FetchStatus string

const (
	FetchStarting       FetchStatus = "starting"
	FetchDownloading    FetchStatus = "downloading"
	FetchPostProcessing FetchStatus = "post_processing"
	FetchFinished       FetchStatus = "finished"
	FetchError          FetchStatus = "error"
)

// FetchProgress is a raw progress update from the fetcher
type FetchProgress struct {
	Status          FetchStatus
	DownloadedBytes int64
	TotalBytes      int64
	Filename        string
}

// Fraction returns downloaded/total in [0,1], and false when the update
// carries no usable total
func (p FetchProgress) Fraction() (float64, bool) {
	if p.TotalBytes <= 0 || p.DownloadedBytes < 0 {
		return 0, false
	}
	f := float64(p.DownloadedBytes) / float64(p.TotalBytes)
	if f > 1 {
		f = 1
	}
	return f, true
}

// FetchOptions tells the fetcher what to retrieve and where to put it
type FetchOptions struct {
	Format            string // format selector, e.g. "bestaudio/best"
	OutputDir         string
	OutputTemplate    string // e.g. "%(title)s.%(ext)s"
	MergeFormat       string // container for merged video, empty for audio
	PostProcessorArgs string // NAME:ARGS passed to the merger
}

// FetchResult is what a successful fetch produced
type FetchResult struct {
	FilePath string
	Title    string
	Output   []string // fetcher console output, one line per entry
}

// MediaFetcher retrieves media streams from a URL
type MediaFetcher interface {
	// Fetch blocks until the media is on disk. onProgress may be nil.
	Fetch(ctx context.Context, url string, opts FetchOptions, onProgress func(FetchProgress)) (*FetchResult, error)
}

// Transcoder converts a downloaded audio file into another format
type Transcoder interface {
	// Transcode writes input re-encoded as format to output
	Transcode(ctx context.Context, input, output string, format AudioFormat) error
}

// ProgressSink receives normalized progress events
type ProgressSink interface {
	OnProgress(ev ProgressEvent)
}

// ProgressFunc adapts a function to ProgressSink
type ProgressFunc func(ev ProgressEvent)

// OnProgress calls f(ev)
func (f ProgressFunc) OnProgress(ev ProgressEvent) {
	f(ev)
}

// LogSink receives human-readable log lines
type LogSink interface {
	WriteLine(msg string)
}

// LogFunc adapts a function to LogSink
type LogFunc func(msg string)

// WriteLine calls f(msg)
func (f LogFunc) WriteLine(msg string) {
	f(msg)
}

// Notifier is told about terminal outcomes, replacing modal dialogs
type Notifier interface {
	NotifyDownloadCompleted(req DownloadRequest, outputPath string)
	NotifyDownloadFailed(req DownloadRequest, err error)
}
