package folders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"voicenote/internal/domain"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher reloads the folder list whenever its file changes and hands the
// fresh list to OnChange. Parse failures go to OnError and keep the last list.
type Watcher struct {
	path     string
	logger   *log.Logger
	debounce time.Duration

	OnChange func([]domain.Folder)
	OnError  func(error)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	timer   *time.Timer
}

func NewWatcher(path string, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		path:     path,
		logger:   logger.WithPrefix("folders"),
		debounce: defaultDebounce,
	}
}

// Start watches the directory holding the file, so the file may be created,
// replaced, or removed after startup.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create folders directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.watcher = watcher
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx, watcher)
	w.logger.Debug("watching folders file", "path", w.path)
	return nil
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.reportError(fmt.Errorf("folders watcher: %w", err))
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	folders, err := Load(w.path)
	if err != nil {
		w.reportError(err)
		return
	}
	w.logger.Info("folders reloaded", "count", len(folders))
	if w.OnChange != nil {
		w.OnChange(folders)
	}
}

func (w *Watcher) reportError(err error) {
	w.logger.Warn("folders reload failed", "err", err)
	if w.OnError != nil {
		w.OnError(err)
	}
}

// Close stops watching. Pending reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	watcher, cancel, done := w.watcher, w.cancel, w.done
	w.watcher = nil
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if watcher == nil {
		return nil
	}
	cancel()
	err := watcher.Close()
	<-done
	return err
}
