package logger

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"
)

const (
	// followPollInterval is how often Follow checks for new lines
	followPollInterval = 100 * time.Millisecond

	// maxLineLength caps a returned line; the rest of a longer line is dropped
	maxLineLength = 1024 * 1024
	truncatedMark = "...[truncated]"
)

// LogReader reads the persisted download log
type LogReader struct {
	path string
}

// NewLogReader creates a new log reader for the file at path
func NewLogReader(path string) *LogReader {
	return &LogReader{path: path}
}

// Path returns the log file path
func (lr *LogReader) Path() string {
	return lr.path
}

// ReadLines returns the last limit lines of the log, or all lines when
// limit <= 0. A missing file yields no lines.
func (lr *LogReader) ReadLines(limit int) ([]string, error) {
	file, err := os.Open(lr.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer file.Close()

	lines := []string{}
	err = eachLine(file, func(line string) {
		if line == "" {
			return
		}
		lines = append(lines, line)
		// Keep memory bounded to the window we return
		if limit > 0 && len(lines) > 2*limit {
			lines = append(lines[:0], lines[len(lines)-limit:]...)
		}
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

// eachLine calls fn for every line of r without its line ending. Lines over
// maxLineLength are cut short and marked instead of failing the read.
func eachLine(r io.Reader, fn func(line string)) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	truncated := false
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			if len(buf) > 0 || truncated {
				fn(finishLine(buf, truncated))
			}
			return nil
		}
		if err != nil {
			return err
		}

		if room := maxLineLength - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
				truncated = true
			}
			buf = append(buf, chunk...)
		} else if len(chunk) > 0 {
			truncated = true
		}
		if isPrefix {
			continue
		}

		fn(finishLine(buf, truncated))
		buf = buf[:0]
		truncated = false
	}
}

func finishLine(buf []byte, truncated bool) string {
	line := strings.TrimRight(string(buf), "\r")
	if truncated {
		line += truncatedMark
	}
	return line
}

// SearchLines returns lines containing query, case-insensitively
func (lr *LogReader) SearchLines(query string, limit int) ([]string, error) {
	lines, err := lr.ReadLines(0)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	filtered := []string{}
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), query) {
			filtered = append(filtered, line)
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, nil
}

// Follow sends lines appended after the call to out until ctx is done.
// It waits for the file to appear if it does not exist yet.
func (lr *LogReader) Follow(ctx context.Context, out chan<- string) error {
	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	var file *os.File
	for file == nil {
		f, err := os.Open(lr.path)
		switch {
		case err == nil:
			file = f
			if _, err := file.Seek(0, io.SeekEnd); err != nil {
				file.Close()
				return err
			}
		case !os.IsNotExist(err):
			return err
		default:
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var partial string
	for {
		chunk, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if err == io.EOF {
			partial += chunk
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			continue
		}

		line := strings.TrimRight(partial+chunk, "\r\n")
		partial = ""
		if line == "" {
			continue
		}
		select {
		case out <- line:
		case <-ctx.Done():
			return nil
		}
	}
}
