package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LineWriter receives human-readable log lines
type LineWriter interface {
	WriteLine(msg string)
}

// ConsoleSink writes log lines to a terminal or any other writer
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink creates a console sink; a nil writer means stdout
func NewConsoleSink(out io.Writer) *ConsoleSink {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleSink{out: out}
}

// WriteLine writes msg followed by a newline. Empty messages are skipped.
func (s *ConsoleSink) WriteLine(msg string) {
	if msg == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, strings.TrimRight(msg, "\n"))
}

// FileSink appends log lines to a file that persists across runs
type FileSink struct {
	mu   sync.Mutex
	path string
	file *os.File
	err  error
}

// OpenFileSink opens path for appending, creating it and its directory if needed
func OpenFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &FileSink{path: path, file: file}, nil
}

// Path returns the file the sink appends to
func (s *FileSink) Path() string {
	return s.path
}

// WriteLine appends msg as one line. Write failures are kept for Err.
func (s *FileSink) WriteLine(msg string) {
	if msg == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	if _, err := s.file.WriteString(strings.TrimRight(msg, "\n") + "\n"); err != nil && s.err == nil {
		s.err = err
	}
}

// Err returns the first write error, if any
func (s *FileSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the underlying file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Tee fans every line out to several sinks
type Tee []LineWriter

// NewTee builds a Tee, dropping nil sinks
func NewTee(sinks ...LineWriter) Tee {
	t := make(Tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	return t
}

// WriteLine writes msg to every sink in order
func (t Tee) WriteLine(msg string) {
	for _, s := range t {
		s.WriteLine(msg)
	}
}
