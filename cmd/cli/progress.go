package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/yourusername/pydown-go/internal/domain"
)

const barWidth = 30

// progressPrinter draws a single-line progress bar and prints log lines
// above it, so both can share one terminal
type progressPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	last    string
	drawn   bool
	verbose bool
}

func newProgressPrinter(out io.Writer, verbose bool) *progressPrinter {
	return &progressPrinter{out: out, verbose: verbose}
}

// OnProgress redraws the bar
func (p *progressPrinter) OnProgress(ev domain.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := renderBar(ev, barWidth)
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintf(p.out, "\r\033[K%s", line)
	p.drawn = true

	if ev.Phase.IsTerminal() {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

// WriteLine prints msg above the bar. Fetcher chatter is only shown verbose.
func (p *progressPrinter) WriteLine(msg string) {
	if msg == "" || (!p.verbose && isFetcherOutput(msg)) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		fmt.Fprint(p.out, "\r\033[K")
	}
	fmt.Fprintln(p.out, msg)
	if p.drawn {
		fmt.Fprint(p.out, p.last)
	}
}

// isFetcherOutput matches yt-dlp's bracketed console lines
func isFetcherOutput(msg string) bool {
	return strings.HasPrefix(msg, "[")
}

// renderBar formats one progress event as "[#####-----]  50.0% Downloading..."
func renderBar(ev domain.ProgressEvent, width int) string {
	pct := ev.Percent
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))

	var label string
	switch ev.Phase {
	case domain.PhaseDownloading:
		label = "Downloading..."
	case domain.PhasePostProcessing:
		label = "Processing file..."
	case domain.PhaseDone:
		label = "Done"
	case domain.PhaseError:
		label = "Failed"
	default:
		label = string(ev.Phase)
	}

	return fmt.Sprintf("[%s%s] %5.1f%% %s",
		strings.Repeat("#", filled),
		strings.Repeat("-", width-filled),
		pct,
		label)
}
