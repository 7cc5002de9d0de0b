// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch triggers early sync ticks when the working copy changes on
// disk, for setups where documents arrive by bind mount instead of Git.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 2 * time.Second

// Watcher folds filesystem events under the sync directory into a debounced
// "something changed" signal.
type Watcher struct {
	dir      string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	events   chan struct{}
	log      *slog.Logger
}

// New prepares a watcher for dir. Start must be called before Events fires.
func New(dir string, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		fsw:      fsw,
		events:   make(chan struct{}, 1),
		log:      log,
	}, nil
}

// Events delivers one signal per debounce window with changes. The channel
// closes when the watcher stops.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Start adds watches for the directory tree and begins processing events
// until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating watch directory: %w", err)
	}
	if err := w.addWatchesRecursive(w.dir); err != nil {
		return fmt.Errorf("adding watches: %w", err)
	}

	go w.run(ctx)

	w.log.Info("watching for document changes", "dir", w.dir, "debounce", w.debounce)
	return nil
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && path != root {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.events)
	defer w.fsw.Close()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.hidden(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addWatchesRecursive(event.Name); err != nil {
						w.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)

		case <-ticker.C:
			if pending {
				pending = false
				select {
				case w.events <- struct{}{}:
				default:
				}
			}
		}
	}
}

// hidden reports whether a path sits under a hidden directory relative to
// the watch root, such as .git or the sync state directory.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
