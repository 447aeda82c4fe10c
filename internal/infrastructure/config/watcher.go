package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

const reloadDebounce = 150 * time.Millisecond

// Watcher keeps the last good configuration in memory and reloads it when the
// file changes on disk. Load hands out deep copies, so a caller holding a
// snapshot never observes a later reload.
type Watcher struct {
	store   ports.ConfigStore
	logger  ports.Logger
	current atomic.Pointer[domain.Config]

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher wraps store. Call Start to begin watching.
func NewWatcher(store ports.ConfigStore, logger ports.Logger) *Watcher {
	return &Watcher{store: store, logger: logger}
}

// Start loads the configuration once and watches its directory. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.reload(ctx); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// watch the directory: atomic saves replace the file
	dir := filepath.Dir(w.store.Path())
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	w.fsw = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	fsw := w.fsw
	w.mu.Unlock()

	<-done
	_ = fsw.Close()
}

// Load implements ports.ConfigProvider.
func (w *Watcher) Load(ctx context.Context) (domain.Config, error) {
	if cfg := w.current.Load(); cfg != nil {
		return cfg.Clone(), nil
	}
	if err := w.reload(ctx); err != nil {
		return domain.Config{}, err
	}
	return w.current.Load().Clone(), nil
}

// Save implements ports.ConfigStore and publishes cfg immediately.
func (w *Watcher) Save(ctx context.Context, cfg domain.Config) error {
	if err := w.store.Save(ctx, cfg); err != nil {
		return err
	}
	snapshot := cfg.Clone()
	w.current.Store(&snapshot)
	return nil
}

func (w *Watcher) Path() string {
	return w.store.Path()
}

func (w *Watcher) reload(ctx context.Context) error {
	cfg, err := w.store.Load(ctx)
	if err != nil {
		return err
	}
	snapshot := cfg.Clone()
	w.current.Store(&snapshot)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	name := filepath.Base(w.store.Path())
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", map[string]interface{}{"error": err})
		case <-timer.C:
			if err := w.reload(ctx); err != nil {
				// keep serving the last good snapshot
				w.logger.Warn("config reload failed", map[string]interface{}{"error": err, "path": w.store.Path()})
				continue
			}
			w.logger.Debug("config reloaded", map[string]interface{}{"path": w.store.Path()})
		}
	}
}

var _ ports.ConfigStore = (*Watcher)(nil)
