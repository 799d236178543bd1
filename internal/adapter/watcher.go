package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	m "gooze.dev/pkg/poison/internal/model"
)

// FileWatcher blocks until one of the watched files changes.
type FileWatcher interface {
	// WaitForChange watches the directories holding files and returns the
	// changed files once no further event arrived within debounce.
	WaitForChange(ctx context.Context, files []m.Path, debounce time.Duration) ([]m.Path, error)
}

// FSNotifyWatcher implements FileWatcher with fsnotify.
type FSNotifyWatcher struct{}

// NewFSNotifyWatcher constructs an FSNotifyWatcher.
func NewFSNotifyWatcher() *FSNotifyWatcher {
	return &FSNotifyWatcher{}
}

// WaitForChange watches the parent directories of files, since editors often
// replace files rather than write them in place.
func (w *FSNotifyWatcher) WaitForChange(ctx context.Context, files []m.Path, debounce time.Duration) ([]m.Path, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch init: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	wanted := make(map[string]struct{}, len(files))
	dirs := make(map[string]struct{})

	for _, file := range files {
		wanted[filepath.Clean(string(file))] = struct{}{}
		dirs[filepath.Dir(string(file))] = struct{}{}
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	slog.Debug("watching files", "files", len(wanted), "dirs", len(dirs))

	changed := make(map[string]struct{})

	var timer <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil, fmt.Errorf("watch closed")
			}

			name := filepath.Clean(ev.Name)
			if _, ok := wanted[name]; !ok {
				continue
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}

			changed[name] = struct{}{}
			timer = time.After(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil, fmt.Errorf("watch closed")
			}

			slog.Error("watch error", "error", err)
		case <-timer:
			result := make([]m.Path, 0, len(changed))
			for name := range changed {
				result = append(result, m.Path(name))
			}

			return result, nil
		}
	}
}
