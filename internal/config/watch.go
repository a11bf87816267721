package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/micro-nova/avdecc-fastconnect/internal/models"
)

// Live holds the settings currently in effect. It is safe for concurrent
// use and satisfies savestate.Flags.
type Live struct {
	cur atomic.Pointer[models.Settings]
}

// NewLive returns a Live initialised with a copy of settings.
func NewLive(settings models.Settings) *Live {
	l := &Live{}
	l.Set(settings)
	return l
}

// Get returns a copy of the current settings.
func (l *Live) Get() models.Settings {
	return l.cur.Load().DeepCopy()
}

// Set replaces the current settings.
func (l *Live) Set(settings models.Settings) {
	cp := settings.DeepCopy()
	l.cur.Store(&cp)
}

// FastConnectSupported reports the current fast-connect flag.
func (l *Live) FastConnectSupported() bool {
	return l.cur.Load().FastConnectSupported
}

// Watch reloads settings from store whenever its file is written or
// replaced, and passes the result to onChange. It blocks until ctx is
// cancelled.
func Watch(ctx context.Context, store Store, onChange func(models.Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	path := store.Path()
	// Watch the directory: atomic writes replace the file, which drops a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(path), err)
	}
	slog.Debug("config: watching settings file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			settings, err := store.Load()
			if err != nil {
				slog.Warn("config: failed to reload settings", "path", path, "err", err)
				continue
			}
			slog.Info("config: settings reloaded", "path", path,
				"fast_connect", settings.FastConnectSupported)
			if onChange != nil {
				onChange(*settings)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}
