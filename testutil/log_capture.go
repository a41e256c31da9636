package testutil

import (
	"bytes"
	"io"
	"log"
	"strings"
	"sync"
)

// LogCapture redirects the default logger into a buffer so tests can assert
// on the daemon's status lines. Not safe for parallel tests; the default
// logger is process-global.
type LogCapture struct {
	buf      bytes.Buffer
	mu       sync.Mutex
	original io.Writer
}

func NewLogCapture() *LogCapture {
	return &LogCapture{original: log.Writer()}
}

// Start begins capturing log output.
func (lc *LogCapture) Start() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	log.SetOutput(&syncWriter{lc: lc})
}

// Stop restores the original log output.
func (lc *LogCapture) Stop() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	log.SetOutput(lc.original)
}

// String returns all captured log output.
func (lc *LogCapture) String() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.buf.String()
}

// Reset clears the capture buffer.
func (lc *LogCapture) Reset() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.buf.Reset()
}

// Contains reports whether the captured output contains substr.
func (lc *LogCapture) Contains(substr string) bool {
	return strings.Contains(lc.String(), substr)
}

// Count returns how many times substr appears in the captured output.
func (lc *LogCapture) Count(substr string) int {
	return strings.Count(lc.String(), substr)
}

// syncWriter serialises concurrent log writes into the capture buffer.
type syncWriter struct {
	lc *LogCapture
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.lc.mu.Lock()
	defer w.lc.mu.Unlock()
	return w.lc.buf.Write(p)
}
