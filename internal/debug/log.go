// Package debug appends a session trace to a file, so playback problems
// can be chased without disturbing a terminal or window UI.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	mu     sync.Mutex
	file   *os.File
	logger *log.Logger
)

// Enable starts tracing to path, truncating any earlier trace. Repeated
// calls keep the first file.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	file = f
	logger = log.New(f, "", log.Ltime|log.Lmicroseconds)
	logger.Printf("%-10s trace started", "debug")
	return nil
}

// Disable closes the trace file.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
		logger = nil
	}
}

// Logf writes one categorized line. A no-op while tracing is off.
func Logf(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		return
	}
	logger.Printf("%-10s %s", category, fmt.Sprintf(format, args...))
}

// Logger exposes the trace as a *log.Logger for collaborators that want
// one. While tracing is off the returned logger is silent.
func Logger(category string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if file == nil {
		return log.New(io.Discard, "", 0)
	}
	return log.New(file, category+" ", log.Ltime|log.Lmicroseconds|log.Lmsgprefix)
}
