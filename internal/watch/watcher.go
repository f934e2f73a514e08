// Package watch observes the working copy for mutations and logs them.
// It exists for operator visibility only and owns no state: every
// mutation still flows through the workspace API.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Watcher struct {
	watcher *fsnotify.Watcher
	root    string
	mu      sync.Mutex
	logger  *zap.Logger
	done    chan struct{}
}

// New starts watching root and all directories beneath it.
func New(root string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		watcher: fw,
		root:    root,
		logger:  logger,
		done:    make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}

	go w.loop()
	return w, nil
}

// Reroot points the watcher at a new working-copy directory. Called
// after a snapshot or import moves HEAD.
func (w *Watcher) Reroot(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, path := range w.watcher.WatchList() {
		w.watcher.Remove(path)
	}
	w.root = root
	return w.addRecursive(root)
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	w.mu.Lock()
	root := w.root
	w.mu.Unlock()

	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		return
	}

	// New directories must be watched too
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("adding directory to watcher", zap.Error(err))
			}
		}
	}

	w.logger.Debug("working copy changed",
		zap.String("path", filepath.ToSlash(rel)),
		zap.String("op", event.Op.String()),
	)
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
