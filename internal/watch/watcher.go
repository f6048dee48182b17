// Package watch drives automatic rescans: filesystem events on the content
// tree (debounced) and gocron schedules for periodic work.
package watch

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

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
)

// DefaultDebounce is how long the watcher waits for the tree to settle
// before firing. Editors save in bursts.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors the content tree and the site config for changes and
// calls onChange once per settled burst.
type Watcher struct {
	contentRoot string
	configPath  string
	onChange    func()

	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	kickChan     chan struct{}
	stopped      bool
	debounceTime time.Duration
}

// NewWatcher creates a watcher over the content root. configPath may be
// empty when no site config should be watched; debounce <= 0 uses the
// default.
func NewWatcher(contentRoot, configPath string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	absRoot, err := filepath.Abs(contentRoot)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("resolve content root: %w", err)
	}
	absConfig := ""
	if configPath != "" {
		absConfig, err = filepath.Abs(configPath)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		contentRoot:  absRoot,
		configPath:   absConfig,
		onChange:     onChange,
		watcher:      fsw,
		stopChan:     make(chan struct{}),
		kickChan:     make(chan struct{}, 1),
		debounceTime: debounce,
	}, nil
}

// Start registers the watch points and begins delivering change callbacks.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.addTree(w.contentRoot); err != nil {
		return err
	}
	if w.configPath != "" {
		// Watch the directory; editors replace files on save.
		if err := w.watcher.Add(filepath.Dir(w.configPath)); err != nil {
			return fmt.Errorf("watch config directory: %w", err)
		}
	}

	slog.Info("Watching for changes",
		logfields.Path(w.contentRoot),
		slog.String("debounce", w.debounceTime.String()))

	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// addTree watches a directory and every non-hidden subdirectory.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); strings.HasPrefix(name, ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Stop halts event delivery. Safe to call once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		slog.Error("File watcher close failed", logfields.Error(err))
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories must join the watch set before their first file does.
	if event.Op.Has(fsnotify.Create) && w.underContentRoot(event.Name) {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if !strings.HasPrefix(fi.Name(), ".") {
				_ = w.watcher.Add(event.Name)
			}
			return
		}
	}

	if !w.relevant(event.Name) {
		return
	}
	if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		slog.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
		w.kick()
	}
}

// relevant filters events down to markdown under the content root and the
// config file itself.
func (w *Watcher) relevant(path string) bool {
	if w.configPath != "" && path == w.configPath {
		return true
	}
	if !w.underContentRoot(path) {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func (w *Watcher) underContentRoot(path string) bool {
	rel, err := filepath.Rel(w.contentRoot, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

func (w *Watcher) kick() {
	select {
	case w.kickChan <- struct{}{}:
	default:
		// a change is already pending
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.kickChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceTime, func() {
				if w.onChange != nil {
					w.onChange()
				}
			})
		}
	}
}
