package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// ProgressBar renders segment progress of a chunked submission.
type ProgressBar struct {
	mu        sync.Mutex
	total     int
	current   int
	width     int
	prefix    string
	writer    io.Writer
	startTime time.Time
	colorize  bool
}

// NewProgressBar returns a bar over total steps writing to w. Color is used
// only when w is a terminal.
func NewProgressBar(w io.Writer, total int, prefix string) *ProgressBar {
	return &ProgressBar{
		total:     total,
		width:     30,
		prefix:    prefix,
		writer:    w,
		startTime: time.Now(),
		colorize:  isTerminal(w),
	}
}

// Set moves the bar to current.
func (pb *ProgressBar) Set(current int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	pb.current = current
	if pb.current > pb.total {
		pb.current = pb.total
	}
	pb.render()
}

// Finish terminates the bar's line.
func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	fmt.Fprintln(pb.writer)
}

func (pb *ProgressBar) render() {
	if pb.total <= 0 {
		return
	}
	percent := float64(pb.current) / float64(pb.total)
	filled := int(float64(pb.width) * percent)

	bar := strings.Repeat("#", filled) + strings.Repeat(".", pb.width-filled)
	if pb.colorize {
		switch {
		case percent < 0.5:
			bar = ColorYellow + bar + ColorReset
		case percent < 1.0:
			bar = ColorCyan + bar + ColorReset
		default:
			bar = ColorGreen + bar + ColorReset
		}
	}

	fmt.Fprintf(pb.writer, "\r%s [%s] %d/%d %s", pb.prefix, bar, pb.current, pb.total, formatDuration(time.Since(pb.startTime)))
}

// Success prints a success line to w.
func Success(w io.Writer, message string) {
	if isTerminal(w) {
		fmt.Fprintf(w, "%s✓%s %s\n", ColorGreen, ColorReset, message)
		return
	}
	fmt.Fprintf(w, "✓ %s\n", message)
}

// Failure prints an error line to w.
func Failure(w io.Writer, message string) {
	if isTerminal(w) {
		fmt.Fprintf(w, "%s✗%s %s\n", ColorRed, ColorReset, message)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", message)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
