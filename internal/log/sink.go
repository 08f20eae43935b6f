package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink is an append-only, line-oriented log file for per-asset events the
// GUI surfaces later (ignored assets, not-found assets). Safe for use from
// multiple scraper workers.
type Sink struct {
	mu   sync.Mutex
	file *os.File
}

// NewSink opens (or creates) the sink file for appending.
func NewSink(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create sink directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open sink file: %w", err)
	}
	return &Sink{file: file}, nil
}

// Write appends one timestamped line naming an asset.
func (s *Sink) Write(appName string) {
	if s == nil || s.file == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.file, "%s\t%s\n", time.Now().Format(time.RFC3339), appName)
}

// Close closes the sink file.
func (s *Sink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}
