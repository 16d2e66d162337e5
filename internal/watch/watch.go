package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/fsnotify/fsnotify"

	"github.com/dshills/ccr/internal/rules"
)

// DefaultDebounce is how long changes accumulate before a reload.
const DefaultDebounce = 200 * time.Millisecond

// Result is delivered after every reload.
type Result struct {
	// Changed lists the paths, relative to the rules directory, that
	// triggered the reload.
	Changed []string

	// Rules is the number of rules after the reload.
	Rules int

	// Merged is the re-merged document, or "" when Err is set.
	Merged string
	Err    error
}

// Handler receives reload results on the watcher goroutine.
type Handler func(ctx context.Context, r Result)

// Watcher reloads a rules engine when files under its directory change.
// Everything, the engine included, is touched only from the goroutine that
// calls Run.
type Watcher struct {
	engine   *rules.Engine
	opts     rules.MergeOptions
	debounce time.Duration
	handler  Handler

	fsw     *fsnotify.Watcher
	pending map[string]fsnotify.Op
}

// New watches the engine's rules directory and every directory below it.
// A zero debounce selects [DefaultDebounce].
func New(ctx context.Context, engine *rules.Engine, opts rules.MergeOptions, debounce time.Duration, handler Handler) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		engine:   engine,
		opts:     opts,
		debounce: debounce,
		handler:  handler,
		fsw:      fsw,
		pending:  make(map[string]fsnotify.Op),
	}
	if err := w.addWatchesRecursive(ctx, engine.Dir()); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done, then releases the watch.
func (w *Watcher) Run(ctx context.Context) error {
	log := clog.FromContext(ctx)
	defer w.fsw.Close()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	log.Infof("Watching %s for rule changes", w.engine.Dir())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleFSEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Errorf("Watcher error: %v", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) addWatchesRecursive(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			clog.FromContext(ctx).Warnf("Failed to watch directory %s: %v", path, err)
			return nil
		}
		clog.FromContext(ctx).Debugf("Watching directory %s", path)
		return nil
	})
}

// relevant reports whether a path can affect the merged rules: rule files
// and the order file.
func relevant(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".yml", ".yaml":
		return true
	}
	return false
}

func (w *Watcher) handleFSEvent(ctx context.Context, event fsnotify.Event) {
	path := event.Name
	if !relevant(path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
				// Files may land in the directory before its watch exists.
				if err := w.addWatchesRecursive(ctx, path); err != nil {
					clog.FromContext(ctx).Warnf("Failed to watch new directory %s: %v", path, err)
				}
				w.pending[path] = event.Op
			}
		}
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}
	w.pending[path] = event.Op
	clog.FromContext(ctx).Debugf("Rule change detected: %s (%s)", path, event.Op)
}

func (w *Watcher) flushPending(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		rel, err := filepath.Rel(w.engine.Dir(), path)
		if err != nil {
			rel = path
		}
		changed = append(changed, filepath.ToSlash(rel))
	}
	slices.Sort(changed)
	clear(w.pending)

	res := Result{Changed: changed}
	res.Rules = len(w.engine.Reload(ctx))
	res.Merged, res.Err = w.engine.Merge(ctx, w.opts)
	if res.Err != nil {
		clog.FromContext(ctx).Errorf("Re-merging rules: %v", res.Err)
	} else {
		clog.FromContext(ctx).Infof("Reloaded %d rules after %d change(s)", res.Rules, len(changed))
	}
	if w.handler != nil {
		w.handler(ctx, res)
	}
}
