// Package inbox holds the worker that watches the export drop directory.
package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"leadscore/internal/services/scoring"
	"leadscore/internal/workers"
	"leadscore/pkg/errors"
)

// Scanner periodically scans the inbox directory and scores every export
// it has not processed yet. A file is identified by path and modification
// time, so re-uploading a corrected export with the same name gets it
// scored again.
type Scanner struct {
	*workers.BaseWorker
	svc      *scoring.Service
	inboxDir string

	mu        sync.Mutex
	processed map[string]time.Time // path -> modtime at processing
}

// NewScanner creates a new inbox scanner worker
func NewScanner(svc *scoring.Service, inboxDir string, interval time.Duration, enabled bool) *Scanner {
	return &Scanner{
		BaseWorker: workers.NewBaseWorker("inbox_scanner", interval, enabled),
		svc:        svc,
		inboxDir:   inboxDir,
		processed:  make(map[string]time.Time),
	}
}

// Run executes one scan iteration
func (s *Scanner) Run(ctx context.Context) error {
	entries, err := os.ReadDir(s.inboxDir)
	if err != nil {
		return errors.Wrapf(err, "failed to read inbox %s", s.inboxDir)
	}

	scoredCount := 0
	errorCount := 0

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		if scoring.IsScoredOutput(entry.Name()) {
			continue
		}

		path := filepath.Join(s.inboxDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.Log().Errorw("Failed to stat inbox file", "file", entry.Name(), "error", err)
			errorCount++
			continue
		}
		if s.seen(path, info.ModTime()) {
			continue
		}

		// Mark before processing so a poison file cannot wedge the scan
		// loop; a corrected re-upload changes the modtime and gets
		// picked up again.
		s.mark(path, info.ModTime())

		if _, err := s.svc.ScoreFile(ctx, path); err != nil {
			s.Log().Errorw("Failed to score inbox file", "file", entry.Name(), "error", err)
			errorCount++
			continue
		}
		scoredCount++
	}

	if scoredCount > 0 || errorCount > 0 {
		s.Log().Infow("Inbox scan complete",
			"scored", scoredCount,
			"errors", errorCount,
		)
	}
	return nil
}

func (s *Scanner) seen(path string, modTime time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.processed[path]
	return ok && at.Equal(modTime)
}

func (s *Scanner) mark(path string, modTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[path] = modTime
}
