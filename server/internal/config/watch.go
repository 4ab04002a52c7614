package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadDelay is how long Watch waits after the last change event before
// reloading. One editor save usually produces several events.
var ReloadDelay = 150 * time.Millisecond

// Watch monitors the config file at path and calls onChange with the newly
// loaded Config after each save that changes its content. It runs until ctx
// is cancelled.
//
// The containing directory is watched, so saves that replace the file by
// rename are seen. A reload that fails (e.g., invalid YAML) is logged and the
// previous config stays active; onChange is not called.
func Watch(ctx context.Context, path string, log *zap.Logger, onChange func(*Config)) error {
	target := filepath.Clean(path)
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}

	// last is what the process is running with; a broken file at startup
	// leaves it nil so the first valid save is applied.
	last, _ := Load(target)

	timer := time.NewTimer(ReloadDelay)
	timer.Stop()
	defer timer.Stop()

	log.Info("watching config for changes", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(ReloadDelay)

		case <-timer.C:
			if _, err := os.Stat(target); err != nil {
				log.Warn("config file unavailable; keeping previous config",
					zap.String("path", target), zap.Error(err))
				continue
			}
			cfg, err := Load(target)
			if err != nil {
				log.Error("config reload failed; keeping previous config",
					zap.String("path", target), zap.Error(err))
				continue
			}
			if reflect.DeepEqual(cfg, last) {
				log.Debug("config saved without changes", zap.String("path", target))
				continue
			}
			last = cfg
			log.Info("config reloaded", zap.String("path", target))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config watcher error", zap.Error(err))
		}
	}
}
