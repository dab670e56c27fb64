package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before the
// watcher fires
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is invoked once per burst of document changes
type ChangeFunc func(ctx context.Context) error

// Watcher reports changes to the documents of a Source
type Watcher struct {
	source   Source
	debounce time.Duration
	onChange ChangeFunc
	logger   *slog.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	pending []string

	// held while the change callback runs
	handlerMu sync.Mutex
}

// NewWatcher creates a watcher over the subdirectories of source.
// A non-positive debounce falls back to DefaultDebounce.
func NewWatcher(source Source, debounce time.Duration, onChange ChangeFunc, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		source:   source,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Run watches until ctx is cancelled. The change callback never runs
// concurrently with itself.
func (w *Watcher) Run(ctx context.Context) error {
	watched := 0
	for _, sub := range w.source.subdirs() {
		dir := filepath.Join(w.source.Root, filepath.FromSlash(sub))
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		n, err := w.addRecursive(dir)
		if err != nil {
			_ = w.fsw.Close()
			return err
		}
		watched += n
	}
	w.logger.Info("Watching corpus", "root", w.source.Root, "directories", watched)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			// wait for an in-flight callback
			w.handlerMu.Lock()
			w.handlerMu.Unlock()
			return w.fsw.Close()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watch error", "error", err)
		}
	}
}

func (w *Watcher) addRecursive(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("could not watch %s: %w", p, err)
		}
		count++
		return nil
	})
	return count, err
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("Could not watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}

	if event.Op == fsnotify.Chmod {
		return
	}

	rel, ok := w.relevant(event.Name)
	if !ok {
		return
	}
	w.logger.Debug("Corpus change", "source", rel, "op", event.Op.String())
	w.schedule(ctx, rel)
}

// relevant reports whether path is a document of the source, returning its
// root-relative slash path
func (w *Watcher) relevant(p string) (string, bool) {
	pattern := w.source.pattern()
	for _, sub := range w.source.subdirs() {
		dir := filepath.Join(w.source.Root, filepath.FromSlash(sub))
		inner, err := filepath.Rel(dir, p)
		if err != nil || inner == "." || strings.HasPrefix(inner, "..") {
			continue
		}
		inner = filepath.ToSlash(inner)
		if ok, _ := doublestar.Match(pattern, inner); ok {
			rel, err := filepath.Rel(w.source.Root, p)
			if err != nil {
				return "", false
			}
			return filepath.ToSlash(rel), true
		}
	}
	return "", false
}

func (w *Watcher) schedule(ctx context.Context, rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, rel)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx) })
}

func (w *Watcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()

	w.mu.Lock()
	changed := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(changed) == 0 || w.onChange == nil {
		return
	}

	w.logger.Info("Corpus changed", "files", len(changed))
	if err := w.onChange(ctx); err != nil {
		w.logger.Error("Change handler failed", "error", err)
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
