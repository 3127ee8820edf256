package credstore

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watcher reports changes to a credentials file made by other processes, such
// as `easygit logout` run from another terminal.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  *log.Logger

	changes chan struct{}

	debounceMu sync.Mutex
	debounce   *time.Timer

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher watches the directory holding path. The directory is created if needed.
func NewWatcher(path string, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		watcher: w,
		path:    filepath.Clean(path),
		logger:  logger,
		changes: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start launches the event loop goroutine.
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Changes delivers one value per burst of changes to the file. Bursts that
// arrive before the previous value is received are coalesced.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Stop closes the watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()

		w.debounceMu.Lock()
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.debounceMu.Unlock()
	})
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.resetDebounce()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watch error: %v", err)
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) resetDebounce() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(watchDebounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		select {
		case w.changes <- struct{}{}:
		default:
		}
	})
}
