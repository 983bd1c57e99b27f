package logging

import (
	"strings"
	"sync"
)

const defaultCaptureLines = 50

// LogCaptureWriter is a thread-safe writer that keeps the most recent lines.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines []string
	max   int
}

// GlobalLogCapture is the singleton instance for capturing server logs.
var GlobalLogCapture = NewCaptureWriter(defaultCaptureLines)

// GlobalEventCapture is the singleton instance for capturing geofence events.
var GlobalEventCapture = NewCaptureWriter(defaultCaptureLines)

// NewCaptureWriter creates a writer retaining at most max lines.
func NewCaptureWriter(max int) *LogCaptureWriter {
	if max < 1 {
		max = 1
	}
	return &LogCaptureWriter{max: max}
}

// Write implements io.Writer. Each call is stored as one line.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	w.WriteLine(string(p))
	return len(p), nil
}

// WriteLine stores a line, evicting the oldest beyond capacity.
func (w *LogCaptureWriter) WriteLine(line string) {
	line = strings.TrimRight(line, "\n")
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, line)
	if len(w.lines) > w.max {
		w.lines = w.lines[len(w.lines)-w.max:]
	}
}

// GetLastLine returns the most recent line.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.lines) == 0 {
		return ""
	}
	return w.lines[len(w.lines)-1]
}

// Lines returns up to n most recent lines, oldest first.
func (w *LogCaptureWriter) Lines(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n <= 0 || n > len(w.lines) {
		n = len(w.lines)
	}
	out := make([]string, n)
	copy(out, w.lines[len(w.lines)-n:])
	return out
}
