// Package watcher reports batches of changed PHP source files for watch mode.
package watcher

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"strata/internal/core/errors"
	"strata/internal/shared/observability"
	"strata/internal/shared/util"
)

// Options configure a Watcher. Exclude patterns match paths relative to Root.
type Options struct {
	Root        string
	Extensions  []string
	Exclude     []string
	Debounce    time.Duration
	MinInterval time.Duration
	Burst       int
	Logger      *slog.Logger
}

// Watcher coalesces file system events into batches. A batch is delivered after the
// tree has been quiet for Debounce and at most Burst times per MinInterval.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	root       string
	debounce   time.Duration
	retry      time.Duration
	exclude    *util.PathMatcher
	extensions map[string]bool
	limiter    *util.Limiter
	logger     *slog.Logger
	onChange   func([]string)
	callbackMu sync.Mutex

	pending   map[string]time.Time
	hashes    map[string][32]byte
	pendingMu sync.Mutex
	timer     *time.Timer
	closed    bool

	closeOnce sync.Once
}

func New(opts Options, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New(errors.CodeValidationError, "watcher callback is required")
	}
	exclude, err := util.NewPathMatcher(opts.Exclude)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	root := opts.Root
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create file system watcher")
	}

	w := &Watcher{
		fsWatcher:  fsw,
		root:       root,
		debounce:   opts.Debounce,
		retry:      opts.MinInterval,
		exclude:    exclude,
		extensions: make(map[string]bool, len(opts.Extensions)),
		limiter:    util.NewIntervalLimiter(opts.MinInterval, opts.Burst),
		logger:     logger.With("component", "watcher"),
		onChange:   onChange,
		pending:    make(map[string]time.Time),
		hashes:     make(map[string][32]byte),
	}
	if w.retry <= 0 {
		w.retry = w.debounce
	}
	for _, ext := range opts.Extensions {
		if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
			w.extensions[ext] = true
		}
	}
	if len(w.extensions) == 0 {
		w.extensions[".php"] = true
	}
	return w, nil
}

// Watch registers paths recursively and processes events until ctx is cancelled or
// Close is called. Files already present are hashed so that rewriting identical
// content does not trigger a batch.
func (w *Watcher) Watch(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(w.root, path)
		}
		if err := w.watchRecursive(path, false); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "watch path"), errors.CtxPath, path)
		}
	}

	go w.run(ctx)
	return nil
}

func (w *Watcher) watchRecursive(root string, enqueue bool) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		if w.shouldExcludeFile(path) {
			return nil
		}
		if enqueue {
			w.scheduleChange(path)
		} else {
			w.remember(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name, true); err != nil {
							w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.forget(event.Name)
				w.scheduleChange(event.Name)
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				if w.contentChanged(event.Name) {
					w.scheduleChange(event.Name)
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) remember(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	w.pendingMu.Lock()
	w.hashes[path] = sha256.Sum256(data)
	w.pendingMu.Unlock()
}

func (w *Watcher) forget(path string) {
	w.pendingMu.Lock()
	delete(w.hashes, path)
	w.pendingMu.Unlock()
}

// contentChanged reports whether path differs from the last content seen. Unreadable
// files count as changed.
func (w *Watcher) contentChanged(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	sum := sha256.Sum256(data)
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if prev, ok := w.hashes[path]; ok && prev == sum {
		return false
	}
	w.hashes[path] = sum
	return true
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}
	w.pending[path] = time.Now()
	w.armLocked(w.debounce)
}

func (w *Watcher) armLocked(delay time.Duration) {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(delay, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	if !w.limiter.Allow(1) {
		observability.WatchRerunsTotal.WithLabelValues("throttled").Inc()
		w.logger.Debug("re-run throttled", "pending", len(w.pending))
		w.armLocked(w.retry)
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	sort.Strings(paths)
	observability.WatchRerunsTotal.WithLabelValues("run").Inc()
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

func (w *Watcher) rel(path string) string {
	return util.RelPath(w.root, path)
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	if base == ".git" {
		return true
	}
	return w.exclude.MatchDir(w.rel(path))
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	if !w.extensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	return w.exclude.Match(w.rel(path))
}

// Close stops event processing and drops pending changes. It is safe to call more
// than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.pendingMu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.pendingMu.Unlock()
		err = w.fsWatcher.Close()
	})
	return err
}
