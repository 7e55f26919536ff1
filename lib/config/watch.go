// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chotop-overlay/chotop/lib/clock"
)

// DefaultDebounce coalesces the burst of events an editor produces
// when saving a file.
const DefaultDebounce = 250 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce is the quiet period after the last event before the file
	// is reloaded. Zero means DefaultDebounce.
	Debounce time.Duration

	// Clock schedules the debounce timer. Nil means the real clock.
	Clock clock.Clock

	// Logger receives reload failures. Nil discards them.
	Logger *slog.Logger
}

// Watch reloads path whenever it changes and passes every valid result
// to onChange. A file that fails to load or validate is logged and
// ignored; the previous configuration stays in effect.
//
// The parent directory is watched rather than the file so that editors
// which replace the file by rename keep being observed. Watch blocks
// until ctx is cancelled and returns nil, or returns an error if the
// watcher cannot be set up.
func Watch(ctx context.Context, path string, options WatchOptions, onChange func(*Config)) error {
	if options.Debounce <= 0 {
		options.Debounce = DefaultDebounce
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	absolute, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absolute)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(absolute), err)
	}

	var (
		mu    sync.Mutex
		timer *clock.Timer
	)
	reload := func() {
		if ctx.Err() != nil {
			return
		}
		cfg, err := LoadFile(absolute)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			logger.Warn("config reload rejected", "path", absolute, "error", err)
			return
		}
		logger.Info("config reloaded", "path", absolute)
		onChange(cfg)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absolute {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = options.Clock.AfterFunc(options.Debounce, reload)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "path", absolute, "error", err)
		}
	}
}
