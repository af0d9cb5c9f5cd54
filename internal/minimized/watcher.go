package minimized

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/prospectly/leaddeck/internal/logging"
)

// ignoreWindow is the time window after NotifySave during which file
// changes are ignored. This prevents the watcher from triggering a
// reload when the store itself saves.
const ignoreWindow = 500 * time.Millisecond

// Watcher monitors the store file for external changes (the CLI
// subcommands, another running instance). A change lands on
// ReloadChannel after debouncing; the owner calls Store.Reload.
type Watcher struct {
	watcher   *fsnotify.Watcher
	storePath string
	reloadCh  chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once

	lastModified time.Time
	modMu        sync.RWMutex

	lastSaveTime time.Time
	saveMu       sync.RWMutex

	log *slog.Logger
}

// NewWatcher creates a watcher for the given store file.
func NewWatcher(storePath string) (*Watcher, error) {
	if _, err := os.Stat(storePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("store file does not exist: %s", storePath)
	}

	// Resolve symlinks once so event paths compare against a canonical
	// path (e.g. /tmp -> /private/tmp on macOS).
	resolvedPath := storePath
	if absPath, err := filepath.Abs(storePath); err == nil {
		if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
			resolvedPath = resolved
		} else {
			resolvedPath = absPath
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the parent directory; atomic renames never fire events on
	// the file itself.
	dir := filepath.Dir(resolvedPath)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	info, _ := os.Stat(resolvedPath)
	lastMod := time.Time{}
	if info != nil {
		lastMod = info.ModTime()
	}

	return &Watcher{
		watcher:      w,
		storePath:    resolvedPath,
		lastModified: lastMod,
		reloadCh:     make(chan struct{}, 1),
		closeCh:      make(chan struct{}),
		log:          logging.ForComponent(logging.CompStore),
	}, nil
}

// Start begins watching for file changes (non-blocking).
func (w *Watcher) Start() {
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	debounce := time.NewTimer(0)
	debounce.Stop()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Compare full resolved paths; a basename match would also
			// fire for unrelated files in the same directory.
			eventPath := event.Name
			if absPath, err := filepath.Abs(event.Name); err == nil {
				if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
					eventPath = resolved
				} else {
					eventPath = absPath
				}
			}
			if eventPath != w.storePath {
				continue
			}
			if event.Op&fsnotify.Remove == fsnotify.Remove {
				continue
			}

			// Reset debounce timer (batches rapid writes).
			debounce.Reset(100 * time.Millisecond)

		case <-debounce.C:
			w.checkAndNotify()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

// checkAndNotify checks the file modification time and signals a reload
// if it changed and the change wasn't the store's own save.
func (w *Watcher) checkAndNotify() {
	w.saveMu.RLock()
	lastSave := w.lastSaveTime
	w.saveMu.RUnlock()

	if time.Since(lastSave) < ignoreWindow {
		// Our own save; still record the mod time so it doesn't
		// re-trigger later.
		if info, err := os.Stat(w.storePath); err == nil {
			w.modMu.Lock()
			w.lastModified = info.ModTime()
			w.modMu.Unlock()
		}
		return
	}

	info, err := os.Stat(w.storePath)
	if err != nil {
		// File may be mid-rename; the next event will catch it.
		return
	}

	modTime := info.ModTime()
	w.modMu.Lock()
	if modTime.After(w.lastModified) {
		w.lastModified = modTime
		w.modMu.Unlock()

		select {
		case w.reloadCh <- struct{}{}:
		default:
			w.log.Debug("reload channel full, dropping signal")
		}
	} else {
		w.modMu.Unlock()
	}
}

// ReloadChannel returns the channel that signals when a reload is needed.
func (w *Watcher) ReloadChannel() <-chan struct{} {
	return w.reloadCh
}

// NotifySave marks the current time so the watcher can ignore the file
// change caused by the store's own save. Wire it via
// Store.SetSaveNotifier.
func (w *Watcher) NotifySave() {
	w.saveMu.Lock()
	w.lastSaveTime = time.Now()
	w.saveMu.Unlock()
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.closeCh)
	})
	return w.watcher.Close()
}
