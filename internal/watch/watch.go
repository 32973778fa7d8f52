// Package watch triggers incremental builds when project files change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

// Watcher coalesces bursts of filesystem events into single rebuild calls.
// Rebuilds never overlap; events arriving during a rebuild schedule one more.
type Watcher struct {
	root     string
	skip     []string
	debounce time.Duration
	rebuild  func(ctx context.Context)
	logger   *zap.Logger
}

// New watches root recursively. skip lists absolute directories that are
// never watched, typically the output directory.
func New(root string, skip []string, debounce time.Duration, rebuild func(ctx context.Context), logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		skip:     skip,
		debounce: debounce,
		rebuild:  rebuild,
		logger:   logger,
	}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()

	w.addDirsRecursive(watcher, w.root)

	requests := make(chan struct{}, 1)
	trigger := debouncer(w.debounce, requests)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-requests:
				w.rebuild(ctx)
			}
		}
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handle(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if w.skipped(ev.Name) || shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(watcher, ev.Name)
		}
	}
	w.logger.Debug("file change detected",
		zap.String("path", ev.Name),
		zap.String("op", ev.Op.String()))
	trigger()
}

func (w *Watcher) addDirsRecursive(watcher *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.root && (w.skipped(path) || hiddenDir(d.Name())) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			w.logger.Warn("watch add failed", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) skipped(path string) bool {
	for _, dir := range w.skip {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// debouncer returns a trigger that sends on out once events stop for d.
func debouncer(d time.Duration, out chan<- struct{}) func() {
	var mu sync.Mutex
	var timer *time.Timer

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case out <- struct{}{}:
			default:
			}
		})
	}
}

// hiddenDir reports dot directories other than .settings, which holds the
// project configuration.
func hiddenDir(name string) bool {
	return strings.HasPrefix(name, ".") && name != ".settings"
}

// shouldIgnoreEvent returns true for editor temp and swap files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"))
}
