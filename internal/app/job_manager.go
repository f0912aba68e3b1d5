package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/domain"
)

// ErrJobNotFound is returned for unknown job IDs
var ErrJobNotFound = errors.New("job not found")

// Executor validates and runs download requests
type Executor interface {
	Validate(req domain.DownloadRequest) (domain.DownloadRequest, error)
	Execute(ctx context.Context, req domain.DownloadRequest, progress domain.ProgressSink, logs domain.LogSink) (*domain.DownloadResult, error)
}

// jobEntry is the manager's private record of a job
type jobEntry struct {
	job     *domain.Job
	events  []domain.ProgressEvent
	changed chan struct{} // closed and replaced on every update
	done    chan struct{}
}

// JobManager launches each accepted request on its own goroutine and keeps
// every job's events in memory so late watchers can replay them.
// Requests are not serialized against each other.
type JobManager struct {
	executor Executor
	logs     domain.LogSink
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	jobs   map[string]*jobEntry
	order  []string
	wg     sync.WaitGroup
	closed bool
}

// NewJobManager creates a job manager. logs receives the log lines of every
// job and may be nil.
func NewJobManager(executor Executor, logs domain.LogSink, logger *zap.Logger) *JobManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		executor: executor,
		logs:     logs,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*jobEntry),
	}
}

// Submit validates req and starts it in the background. Invalid requests are
// rejected synchronously and never become jobs.
func (m *JobManager) Submit(req domain.DownloadRequest) (*domain.Job, error) {
	req, err := m.executor.Validate(req)
	if err != nil {
		return nil, err
	}

	entry := &jobEntry{
		job:     domain.NewJob(req),
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("job manager is shut down")
	}
	m.jobs[entry.job.ID] = entry
	m.order = append(m.order, entry.job.ID)
	snapshot := *entry.job
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("Download job accepted",
		zap.String("id", snapshot.ID),
		zap.String("url", req.URL),
		zap.String("mode", string(req.Mode)))

	go m.run(entry)

	return &snapshot, nil
}

func (m *JobManager) run(entry *jobEntry) {
	defer m.wg.Done()

	res, err := m.execute(entry)
	if res == nil {
		// Validation already passed, so this only happens if the request
		// changed meaning between Submit and Execute
		res = &domain.DownloadResult{Outcome: domain.OutcomeFailure, ErrorKind: domain.KindOf(err)}
		if err != nil {
			res.ErrorDetail = err.Error()
		}
	}

	m.mu.Lock()
	entry.job.Complete(res)
	close(entry.done)
	m.signal(entry)
	id := entry.job.ID
	m.mu.Unlock()

	m.logger.Info("Download job finished",
		zap.String("id", id),
		zap.String("outcome", string(res.Outcome)))
}

// execute runs the job's request. A panic escaping the executor fails the
// job instead of taking the process down.
func (m *JobManager) execute(entry *jobEntry) (res *domain.DownloadResult, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		m.logger.Error("Download job panicked",
			zap.String("id", entry.job.ID),
			zap.Any("panic", r),
			zap.Stack("stack"))

		de := domain.NewDownloadError(domain.KindFetch, fmt.Errorf("internal error: %v", r))
		m.publishFailure(entry, de.Message)
		res = &domain.DownloadResult{
			Outcome:     domain.OutcomeFailure,
			ErrorDetail: de.Message,
			ErrorKind:   de.Kind,
		}
		err = de
	}()

	progress := domain.ProgressFunc(func(ev domain.ProgressEvent) {
		m.publish(entry, ev)
	})
	return m.executor.Execute(m.ctx, entry.job.Request, progress, m.logs)
}

// publishFailure emits an error event unless the job already has a terminal one
func (m *JobManager) publishFailure(entry *jobEntry, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.job.LastEvent != nil && entry.job.LastEvent.Phase.IsTerminal() {
		return
	}
	ev := domain.ProgressEvent{Phase: domain.PhaseError, Message: message}
	if entry.job.LastEvent != nil {
		ev.Percent = entry.job.LastEvent.Percent
	}
	entry.job.Apply(ev)
	entry.events = append(entry.events, ev)
	m.signal(entry)
}

func (m *JobManager) publish(entry *jobEntry, ev domain.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.job.Apply(ev)
	entry.events = append(entry.events, ev)
	m.signal(entry)
}

// signal wakes all watchers. Callers hold m.mu.
func (m *JobManager) signal(entry *jobEntry) {
	close(entry.changed)
	entry.changed = make(chan struct{})
}

// Get returns a snapshot of the job
func (m *JobManager) Get(id string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *entry.job
	return &snapshot, nil
}

// List returns snapshots of all jobs in submission order
func (m *JobManager) List() []*domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*domain.Job, 0, len(m.order))
	for _, id := range m.order {
		snapshot := *m.jobs[id].job
		jobs = append(jobs, &snapshot)
	}
	return jobs
}

// Events returns the job's events from index from onwards, whether the job
// has finished, and a channel that is closed on the next update
func (m *JobManager) Events(id string, from int) ([]domain.ProgressEvent, bool, <-chan struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.jobs[id]
	if !ok {
		return nil, false, nil, ErrJobNotFound
	}

	if from < 0 {
		from = 0
	}
	var events []domain.ProgressEvent
	if from < len(entry.events) {
		events = append(events, entry.events[from:]...)
	}

	finished := false
	select {
	case <-entry.done:
		finished = true
	default:
	}

	return events, finished, entry.changed, nil
}

// Watch streams the job's events to fn, replaying past ones first, until the
// job finishes or ctx is done. It returns fn's first error.
func (m *JobManager) Watch(ctx context.Context, id string, fn func(domain.ProgressEvent) error) error {
	next := 0
	for {
		events, finished, changed, err := m.Events(id, next)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := fn(ev); err != nil {
				return err
			}
		}
		next += len(events)
		if finished {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Wait blocks until the job finishes or ctx is done
func (m *JobManager) Wait(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.RLock()
	entry, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}

	select {
	case <-entry.done:
		return m.Get(id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats counts jobs by phase
func (m *JobManager) Stats() map[domain.Phase]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[domain.Phase]int)
	for _, entry := range m.jobs {
		stats[entry.job.Phase]++
	}
	return stats
}

// Shutdown stops accepting jobs and waits for running ones. When ctx ends
// first, running jobs are cancelled.
func (m *JobManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		<-finished
		return ctx.Err()
	}
}
