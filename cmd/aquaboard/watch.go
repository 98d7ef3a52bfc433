package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jpalmerr/aquaboard/config"
)

// reloadDebounce absorbs the burst of events a single save produces.
const reloadDebounce = 250 * time.Millisecond

// configWatcher reloads a config file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which save by renaming a temporary file are still seen.
type configWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
}

// newConfigWatcher starts watching path. Events that happen after it
// returns are delivered once Run is called.
func newConfigWatcher(path string, logger *slog.Logger) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &configWatcher{
		path:     abs,
		watcher:  w,
		logger:   logger,
		debounce: reloadDebounce,
	}, nil
}

// Run reloads the file after each burst of changes and passes every config
// that parses to onChange. Invalid configs are logged and skipped. Run
// blocks until ctx is cancelled and returns nil.
func (cw *configWatcher) Run(ctx context.Context, onChange func(*config.Config)) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
			} else {
				timer.Reset(cw.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := config.Load(cw.path)
			if err != nil {
				cw.logger.Warn("config reload failed",
					"path", cw.path,
					"error", err,
				)
				continue
			}
			onChange(cfg)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return nil
			}
			cw.logger.Warn("config watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (cw *configWatcher) Close() error {
	return cw.watcher.Close()
}
