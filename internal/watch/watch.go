// Package watch reruns work when source files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 100 * time.Millisecond

var skipDirs = map[string]bool{
	".git": true, "vendor": true, "node_modules": true, "bin": true, "obj": true,
}

// Watcher reports batches of changed files below a set of roots.
type Watcher struct {
	roots    []string
	exts     map[string]bool
	names    map[string]bool
	Debounce time.Duration
	Logger   *slog.Logger
}

// New watches roots for files with one of exts. names are base names
// that always count, such as the solution descriptor.
func New(roots, exts, names []string) *Watcher {
	w := &Watcher{
		roots:    roots,
		exts:     make(map[string]bool, len(exts)),
		names:    make(map[string]bool, len(names)),
		Debounce: DefaultDebounce,
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, e := range exts {
		w.exts[e] = true
	}
	for _, n := range names {
		w.names[n] = true
	}
	return w
}

func (w *Watcher) relevant(path string) bool {
	return w.exts[filepath.Ext(path)] || w.names[filepath.Base(path)]
}

// Run calls onChange with the sorted set of changed files every time
// changes settle. An onChange error is logged and watching continues.
// Run returns nil when ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, root := range w.roots {
		if err := w.addTree(fw, root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	timer := time.NewTimer(w.Debounce)
	timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, event.Name); err != nil {
						w.Logger.Warn("watch directory", "dir", event.Name, "err", err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.Debounce)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			w.Logger.Info("change detected", "files", len(changed))
			if err := onChange(ctx, changed); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.Logger.Error("rerun failed", "err", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("watcher error", "err", err)
		}
	}
}

// addTree adds dir and its subdirectories.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
