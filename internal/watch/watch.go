// Package watch re-runs a function when files under a directory change.
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

	"git.home.luguber.info/inful/prerender/internal/logfields"
)

// DefaultDebounce coalesces bursts of file events into one trigger.
const DefaultDebounce = 300 * time.Millisecond

// Watcher monitors a directory tree. Directories created after Start are
// picked up as they appear.
type Watcher struct {
	root     string
	ignore   []string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	trigger  chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// WithIgnore skips the given files and directories (absolute or relative to
// root).
func WithIgnore(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if d == "" {
				continue
			}
			if !filepath.IsAbs(d) {
				d = filepath.Join(w.root, d)
			}
			w.ignore = append(w.ignore, filepath.Clean(d))
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(w *Watcher) { w.logger = l } }

// New creates a watcher for root.
func New(root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		root:     abs,
		debounce: DefaultDebounce,
		watcher:  fw,
		logger:   slog.Default(),
		trigger:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(w)
	}
	if err := w.addTree(abs); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Run calls fn for every debounced batch of changes until ctx is done. Calls
// never overlap: changes that arrive while fn runs schedule exactly one more
// call.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context)) error {
	defer func() { _ = w.watcher.Close() }()
	w.logger.Info("Watching for changes", logfields.Path(w.root))

	go w.eventLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.trigger:
			fn(ctx)
		}
	}
}

func (w *Watcher) eventLoop(ctx context.Context) {
	var timer *time.Timer
	fire := func() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	}
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
					}
				}
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("File change detected", logfields.File(event.Name), slog.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, fire)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules" || w.ignored(p)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(p string) bool {
	p = filepath.Clean(p)
	for _, dir := range w.ignore {
		if p == dir || strings.HasPrefix(p, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
