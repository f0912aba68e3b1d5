package app

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/domain"
)

// progressReporter turns raw fetcher updates into the normalized event stream
// of a single request. It enforces the per-request state machine:
// idle -> downloading -> (post-processing | done) -> done, with error reachable
// from any non-terminal phase. Percent never decreases while downloading and
// nothing is emitted after the terminal event.
type progressReporter struct {
	progress domain.ProgressSink
	logs     domain.LogSink
	logger   *zap.Logger

	mu      sync.Mutex
	phase   domain.Phase
	percent float64
}

func newProgressReporter(progress domain.ProgressSink, logs domain.LogSink, logger *zap.Logger) *progressReporter {
	if progress == nil {
		progress = domain.ProgressFunc(func(domain.ProgressEvent) {})
	}
	if logs == nil {
		logs = domain.LogFunc(func(string) {})
	}
	return &progressReporter{
		progress: progress,
		logs:     logs,
		logger:   logger,
		phase:    domain.PhaseIdle,
	}
}

// Phase returns the current phase
func (r *progressReporter) Phase() domain.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// OnFetchProgress is handed to the fetcher as its progress hook
func (r *progressReporter) OnFetchProgress(p domain.FetchProgress) {
	switch p.Status {
	case domain.FetchDownloading:
		r.downloading(p)
	case domain.FetchFinished:
		r.PostProcessing("Processing file...")
	}
}

func (r *progressReporter) downloading(p domain.FetchProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != domain.PhaseIdle && r.phase != domain.PhaseDownloading {
		r.logger.Debug("Ignoring download progress after post-processing started",
			zap.String("phase", string(r.phase)),
			zap.String("file", p.Filename))
		return
	}

	fraction, ok := p.Fraction()
	if !ok {
		// Malformed or incomplete progress data is dropped, not surfaced.
		r.logger.Debug("Ignoring progress update without usable total",
			zap.Int64("downloaded_bytes", p.DownloadedBytes),
			zap.Int64("total_bytes", p.TotalBytes))
		return
	}

	percent := fraction * 100
	if percent < r.percent {
		// A second stream restarts the fetcher's counter.
		percent = r.percent
	}
	r.percent = percent
	r.phase = domain.PhaseDownloading

	r.progress.OnProgress(domain.ProgressEvent{
		Phase:   domain.PhaseDownloading,
		Percent: percent,
		Message: fmt.Sprintf("Downloading... %.1f%%", percent),
	})
}

// PostProcessing moves to the post-processing phase once; repeated calls are no-ops
func (r *progressReporter) PostProcessing(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != domain.PhaseIdle && r.phase != domain.PhaseDownloading {
		return
	}
	r.phase = domain.PhasePostProcessing

	r.logs.WriteLine(message)
	r.progress.OnProgress(domain.ProgressEvent{
		Phase:   domain.PhasePostProcessing,
		Percent: r.percent,
		Message: message,
	})
}

// Log forwards a line to the log sink
func (r *progressReporter) Log(line string) {
	if line == "" {
		return
	}
	r.logs.WriteLine(line)
}

// Done emits the terminal success event
func (r *progressReporter) Done(message string) {
	r.terminate(domain.ProgressEvent{
		Phase:   domain.PhaseDone,
		Percent: 100,
		Message: message,
	}, message)
}

// Fail emits the terminal error event
func (r *progressReporter) Fail(message string) {
	r.terminate(domain.ProgressEvent{
		Phase:   domain.PhaseError,
		Percent: r.currentPercent(),
		Message: message,
	}, "ERROR: "+message)
}

func (r *progressReporter) currentPercent() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.percent
}

func (r *progressReporter) terminate(ev domain.ProgressEvent, logLine string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase.IsTerminal() {
		r.logger.Warn("Dropping event after terminal state",
			zap.String("phase", string(r.phase)),
			zap.String("event", string(ev.Phase)))
		return
	}
	r.phase = ev.Phase
	if ev.Phase == domain.PhaseDone {
		r.percent = 100
	}

	r.logs.WriteLine(logLine)
	r.progress.OnProgress(ev)
}
