// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/lumenarc/internal/logger"
)

// watchDebounce coalesces the burst of events an editor or an atomic rename
// produces for one save.
const watchDebounce = 150 * time.Millisecond

// Watch reloads the configuration whenever a config file in the config
// directory changes and passes the new value to onChange. Files that fail to
// load or validate are logged and ignored. Watch blocks until ctx is done.
//
// The directory is watched rather than the file because atomic saves replace
// the file, which drops a file-level watch.
func Watch(ctx context.Context, onChange func(*Config)) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	log := slog.Default().With("component", "config")
	names := map[string]bool{"config.toml": true, "config.yaml": true, "config.json": true}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !names[filepath.Base(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				timer.Reset(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", logger.Err(err))

		case <-timer.C:
			cfg, path, err := Load()
			if err != nil {
				log.Warn("ignoring invalid config change", "path", path, logger.Err(err))
				continue
			}
			log.Info("config reloaded", "path", path)
			SetGlobal(cfg)
			if onChange != nil {
				onChange(cfg)
			}
		}
	}
}
