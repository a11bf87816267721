// Package maintenance runs background housekeeping for the daemon: a daily
// snapshot of the saved-state file with pruning of old snapshots.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/micro-nova/avdecc-fastconnect/internal/models"
	"github.com/micro-nova/avdecc-fastconnect/internal/savestate"
)

const (
	snapshotPrefix = "avdecc-save-"
	snapshotSuffix = ".ini"
	snapshotMaxAge = 30 * 24 * time.Hour
	snapshotHour   = 2
)

// nowFunc dates snapshot file names. A variable so tests can pin it.
var nowFunc = time.Now

// Source returns the saved states to snapshot. It must return a consistent
// view; the controller's SavedStates takes its lock.
type Source func() ([]models.SavedState, error)

// Service manages background maintenance goroutines.
type Service struct {
	backupDir string
	source    Source
}

// New creates a new maintenance Service. source is consulted on every
// snapshot.
func New(backupDir string, source Source) *Service {
	return &Service{
		backupDir: backupDir,
		source:    source,
	}
}

// Start runs the daily snapshot loop. Blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	for {
		now := nowFunc()
		next := time.Date(now.Year(), now.Month(), now.Day(), snapshotHour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			path, err := s.SnapshotNow()
			if err != nil {
				slog.Error("maintenance: snapshot failed", "err", err)
			} else {
				slog.Info("maintenance: snapshot created", "file", path)
			}
		}
	}
}

// SnapshotNow writes the current saved states to the backup directory in
// the saved-state file format and returns the snapshot path. Snapshots
// older than 30 days are pruned.
func (s *Service) SnapshotNow() (string, error) {
	states, err := s.source()
	if err != nil {
		return "", fmt.Errorf("read saved states: %w", err)
	}
	path, err := snapshot(states, s.backupDir, nowFunc())
	if err != nil {
		return "", err
	}
	pruneOldSnapshots(s.backupDir, snapshotMaxAge)
	return path, nil
}

// ListSnapshots returns available snapshot files sorted by name (newest last).
func (s *Service) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := []string{}
	for _, e := range entries {
		if isSnapshot(e) {
			files = append(files, filepath.Join(s.backupDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isSnapshot(e os.DirEntry) bool {
	return !e.IsDir() && strings.HasPrefix(e.Name(), snapshotPrefix) && strings.HasSuffix(e.Name(), snapshotSuffix)
}

// snapshot writes states to a dated file in backupDir. A second snapshot
// on the same day replaces the first.
func snapshot(states []models.SavedState, backupDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	dest := filepath.Join(backupDir, snapshotPrefix+now.Format("2006-01-02")+snapshotSuffix)
	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := savestate.Encode(out, states); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("rename snapshot: %w", err)
	}
	return dest, nil
}

// pruneOldSnapshots deletes snapshot files older than maxAge from backupDir.
func pruneOldSnapshots(backupDir string, maxAge time.Duration) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if !isSnapshot(e) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(backupDir, e.Name())
			if err := os.Remove(path); err != nil {
				slog.Warn("maintenance: failed to prune old snapshot", "file", path, "err", err)
			} else {
				slog.Info("maintenance: pruned old snapshot", "file", path)
			}
		}
	}
}
