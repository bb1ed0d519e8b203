package policy

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc re-reads one configuration file and swaps in the new
// snapshot. An error means the file was unreadable or malformed; the
// previous snapshot stays active.
type ReloadFunc func() error

// Watch observes the given config files until ctx is cancelled and
// invokes each file's reload function when it changes. Events are
// debounced per file because editors typically write via temp file plus
// rename, which arrives as a burst.
func Watch(ctx context.Context, logger *slog.Logger, reloads map[string]ReloadFunc) error {
	if len(reloads) == 0 {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch parent directories: a rename-over replaces the inode, and a
	// watch on the file itself would silently die.
	byAbs := make(map[string]ReloadFunc, len(reloads))
	dirs := make(map[string]struct{})
	for path, fn := range reloads {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			return absErr
		}
		byAbs[abs] = fn
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if addErr := w.Add(dir); addErr != nil {
			return addErr
		}
	}

	logger.Info("policy watcher: started", slog.Int("files", len(byAbs)))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(abs string) {
		pending[abs] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(200 * time.Millisecond)
			timerCh = timer.C
		} else {
			timer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("policy watcher: stopped")
			return nil

		case <-timerCh:
			for abs := range pending {
				delete(pending, abs)
				if reloadErr := byAbs[abs](); reloadErr != nil {
					logger.Warn("policy watcher: reload failed, keeping previous snapshot",
						slog.String("path", abs),
						slog.String("error", reloadErr.Error()))
					continue
				}
				logger.Info("policy watcher: reloaded", slog.String("path", abs))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, absErr := filepath.Abs(ev.Name)
			if absErr != nil {
				continue
			}
			if _, watched := byAbs[abs]; !watched {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule(abs)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("policy watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
