// Package bootstrap assembles the components both front ends share.
package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/app"
	"github.com/yourusername/pydown-go/internal/domain"
	"github.com/yourusername/pydown-go/internal/infrastructure"
	"github.com/yourusername/pydown-go/internal/observability"
	"github.com/yourusername/pydown-go/pkg/logger"
)

// Runtime holds the wired application
type Runtime struct {
	Config       *domain.Config
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Orchestrator *app.Orchestrator
	// LogSink receives every download log line: the persisted file when the
	// variant keeps one, plus any extra sinks passed to New
	LogSink domain.LogSink
	// LogReader is nil when the variant does not persist its log
	LogReader *logger.LogReader

	logFile *logger.FileSink
}

// New wires a Runtime from config. extra sinks are teed after the log file.
func New(config *domain.Config, extra ...logger.LineWriter) (*Runtime, error) {
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewWithLogger(config, log, extra...)
}

// NewWithLogger is New with an already built zap logger
func NewWithLogger(config *domain.Config, log *zap.Logger, extra ...logger.LineWriter) (*Runtime, error) {
	rt := &Runtime{
		Config:  config,
		Logger:  log,
		Metrics: observability.New(),
	}

	sinks := make([]logger.LineWriter, 0, len(extra)+1)
	if config.Variant.PersistLog {
		file, err := logger.OpenFileSink(config.Variant.LogFile)
		if err != nil {
			return nil, err
		}
		rt.logFile = file
		rt.LogReader = logger.NewLogReader(file.Path())
		sinks = append(sinks, file)
		log.Debug("Persisting download log", zap.String("path", file.Path()))
	}
	sinks = append(sinks, extra...)
	rt.LogSink = logger.NewTee(sinks...)

	var notifier domain.Notifier
	if config.Notification.Enabled {
		notifier = infrastructure.NewNotificationService(&config.Notification, log)
	}

	rt.Orchestrator = app.NewOrchestrator(
		infrastructure.NewYTDLPFetcher(&config.Fetcher, log),
		infrastructure.NewFFmpegTranscoder(&config.Transcoder, log),
		config,
		notifier,
		rt.Metrics,
		log,
	)

	return rt, nil
}

// Close flushes the logger and closes the persisted log
func (r *Runtime) Close() error {
	var err error
	if r.logFile != nil {
		if ferr := r.logFile.Err(); ferr != nil {
			r.Logger.Warn("Writing the download log failed", zap.Error(ferr))
		}
		err = r.logFile.Close()
	}
	r.Logger.Sync()
	return err
}
