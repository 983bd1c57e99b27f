// Package watcher polls a catalog file and triggers a reload when it changes.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Service monitors a single file for modification.
type Service struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	exists  bool
}

// NewService creates a monitor for path. The file's current state is the
// baseline; only later changes are reported.
func NewService(path string) *Service {
	s := &Service{path: path}
	if info, err := os.Stat(path); err == nil {
		s.modTime, s.size, s.exists = info.ModTime(), info.Size(), true
	} else {
		slog.Warn("Watcher: File does not exist yet", "path", path)
	}
	return s
}

// Path returns the watched file.
func (s *Service) Path() string { return s.path }

// CheckChanged reports whether the file was created or modified since the
// last check. A removed file is not a change; the last good catalog stays.
func (s *Service) CheckChanged() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return false
	}
	s.modTime, s.size, s.exists = info.ModTime(), info.Size(), true
	slog.Info("Watcher: Catalog file changed", "path", s.path, "size", s.size)
	return true
}

// Run polls every interval until ctx ends and calls onChange after each
// detected change.
func (s *Service) Run(ctx context.Context, interval time.Duration, onChange func()) {
	Every(ctx, interval, func() {
		if s.CheckChanged() {
			onChange()
		}
	})
}

// Every calls fn every interval until ctx ends. A non-positive interval
// returns immediately.
func Every(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
