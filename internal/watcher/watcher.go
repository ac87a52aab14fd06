// Package watcher triggers a refresh when the AIDA64 log is written.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the directory holding the log and calls onChange, at most
// once per debounce window, when a matching file is written, created, removed
// or renamed.
type Watcher struct {
	fsw      *fsnotify.Watcher
	pattern  string
	dir      string
	debounce time.Duration
	onChange func(path string)
	logger   *slog.Logger
}

// New watches the base directory of pattern. pattern may be a plain path or a
// doublestar glob; only the static prefix directory is watched.
func New(pattern string, debounce time.Duration, onChange func(path string), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(pattern)
	if err != nil {
		return nil, fmt.Errorf("resolve watch pattern: %w", err)
	}
	abs = filepath.ToSlash(abs)

	dir, _ := doublestar.SplitPattern(abs)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.FromSlash(dir)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		fsw:      fsw,
		pattern:  abs,
		dir:      dir,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return filepath.FromSlash(w.dir)
}

// Run forwards debounced change notifications until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev.Op) || !w.Matches(ev.Name) {
				continue
			}
			pending = ev.Name
			if w.debounce <= 0 {
				w.onChange(pending)
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			w.logger.Debug("log file changed", slog.String("path", pending))
			w.onChange(pending)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

// Matches reports whether path is covered by the watched pattern.
func (w *Watcher) Matches(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(w.pattern, filepath.ToSlash(abs))
	return err == nil && ok
}

func relevant(op fsnotify.Op) bool {
	return op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
