// Package watcher implements continuous rebuild on source changes.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// Watcher monitors source roots recursively and triggers rebuilds after a
// debounce window of quiet.
type Watcher struct {
	roots    []string
	debounce time.Duration
	logger   *slog.Logger

	fsw     *fsnotify.Watcher
	changed chan struct{}
}

// New creates a watcher over the given roots. Hidden directories and
// testdata are not watched.
func New(roots []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	w := &Watcher{
		roots:    roots,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
		changed:  make(chan struct{}, 1),
	}
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && (strings.HasPrefix(name, ".") || name == "testdata") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run blocks, invoking rebuild after each debounced batch of changes, until
// the context is cancelled. Rebuild errors are logged, not fatal; the watch
// loop keeps going.
func (w *Watcher) Run(ctx context.Context, rebuild func(context.Context) error) error {
	defer w.fsw.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.eventLoop(ctx) })
	g.Go(func() error { return w.rebuildLoop(ctx, rebuild) })
	return g.Wait()
}

func (w *Watcher) eventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("Source change detected", "path", event.Name, "op", event.Op.String())

			// New directories must be added to the watch set.
			if event.Op&fsnotify.Create != 0 {
				if err := w.addRecursive(event.Name); err != nil {
					w.logger.Debug("Could not watch new path", "path", event.Name, "error", err)
				}
			}

			select {
			case w.changed <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) rebuildLoop(ctx context.Context, rebuild func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.changed:
		}

		// Wait for the change burst to settle.
		timer := time.NewTimer(w.debounce)
	settle:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-w.changed:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			case <-timer.C:
				break settle
			}
		}

		if err := rebuild(ctx); err != nil {
			w.logger.Error("Rebuild failed", "error", err)
		}
	}
}

// relevant filters events down to Go source changes and directory creation.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	// Directory creation has no extension to filter on.
	if event.Op&fsnotify.Create != 0 && filepath.Ext(base) == "" {
		return true
	}
	return strings.HasSuffix(base, ".go")
}
