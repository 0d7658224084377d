package environment

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"postern/pkg/logging"
)

// debounceWindow coalesces the write-rename-chmod bursts editors
// produce into one reload.
const debounceWindow = 200 * time.Millisecond

// Watcher reloads the store whenever the environments file changes on
// disk.
type Watcher struct {
	store *Store
	path  string

	fw       *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

// Watch starts watching the environments file and reloading the store
// on change. The file's directory is watched so replace-by-rename saves
// are observed too.
func Watch(store *Store, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		store: store,
		path:  path,
		fw:    fw,
		done:  make(chan struct{}),
	}

	go w.loop()
	logging.Debug("Environment", "Watching %s for changes", path)
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)

	var pending *time.Timer
	var pendingC <-chan time.Time

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(debounceWindow)
				pendingC = pending.C
			} else {
				pending.Reset(debounceWindow)
			}

		case <-pendingC:
			pending = nil
			pendingC = nil
			if err := w.store.LoadFile(w.path); err != nil {
				logging.Warn("Environment", "Reload of %s failed: %v", w.path, err)
			} else {
				logging.Info("Environment", "Reloaded environments from %s", w.path)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Warn("Environment", "File watcher error: %v", err)
		}
	}
}

// Stop ends the watch. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.fw.Close()
		<-w.done
	})
}
