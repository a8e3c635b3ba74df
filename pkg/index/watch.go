package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes to the corpus file.
const DefaultDebounce = 500 * time.Millisecond

// WatchCorpus calls rebuild after the file at path changes, waiting for
// writes to settle for debounce first. The parent directory is watched so
// editors that replace the file by rename are seen. Rebuild errors are
// logged and watching continues, as are watcher errors such as event
// queue overflows. WatchCorpus blocks until ctx is done.
func WatchCorpus(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, rebuild func(context.Context) error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating corpus watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching corpus dir: %w", err)
	}

	logger.Info("watching corpus for changes", "path", path)
	return watchEvents(ctx, path, debounce, logger, watcher.Events, watcher.Errors, rebuild)
}

// watchEvents runs the debounce loop over a watcher's channels. Watcher
// errors are logged and do not stop the loop.
func watchEvents(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, events <-chan fsnotify.Event, errs <-chan error, rebuild func(context.Context) error) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			logger.Info("corpus changed, rebuilding index", "path", path)
			if err := rebuild(ctx); err != nil {
				logger.Error("rebuilding index failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("corpus watcher error", "path", path, "error", err)
		}
	}
}
