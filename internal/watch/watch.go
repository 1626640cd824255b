// Package watch reloads the catalog and the settings file when they change on disk.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"focusroom/internal/catalog"
	"focusroom/internal/core"
)

// Target receives reloaded rules
type Target interface {
	ReplaceCatalog(ctx context.Context, catalog core.Catalog) error
	UpdateSettings(ctx context.Context, settings core.Settings) (core.Settings, error)
}

// Config selects what to watch. Either path may be empty.
type Config struct {
	CatalogDir   string
	SettingsPath string
	Debounce     time.Duration
}

// Watcher turns file edits into catalog and settings updates. Rapid saves are debounced.
type Watcher struct {
	target  Target
	cfg     Config
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	mu      sync.Mutex
	pending map[string]time.Time
	reloads int
}

// New creates a watcher; nothing is watched until Run
func New(target Target, cfg Config, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.CatalogDir != "" {
		cfg.CatalogDir = filepath.Clean(cfg.CatalogDir)
	}
	if cfg.SettingsPath != "" {
		cfg.SettingsPath = filepath.Clean(cfg.SettingsPath)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		target:  target,
		cfg:     cfg,
		watcher: fw,
		logger:  logger.With("component", "watch"),
		pending: make(map[string]time.Time),
	}, nil
}

// Run watches until ctx is done, then releases the underlying watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	dirs := map[string]struct{}{}
	if w.cfg.CatalogDir != "" {
		dirs[w.cfg.CatalogDir] = struct{}{}
	}
	if w.cfg.SettingsPath != "" {
		dirs[filepath.Dir(w.cfg.SettingsPath)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("cannot watch directory", "dir", dir, "error", err)
			continue
		}
		w.logger.Info("watching directory", "dir", dir)
	}

	ticker := time.NewTicker(w.cfg.Debounce / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)

		case <-ticker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	path := filepath.Clean(event.Name)
	if !w.relevant(path) {
		return
	}

	w.logger.Debug("file changed", "path", path, "op", event.Op.String())
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) relevant(path string) bool {
	if path == w.cfg.SettingsPath {
		return true
	}
	return w.cfg.CatalogDir != "" &&
		filepath.Dir(path) == w.cfg.CatalogDir &&
		catalog.CategoryID(filepath.Base(path)) != ""
}

// processDebounced applies changes that have settled past the debounce window
func (w *Watcher) processDebounced(ctx context.Context) {
	now := time.Now()
	var reloadCatalog, reloadSettings bool

	w.mu.Lock()
	for path, at := range w.pending {
		if now.Sub(at) < w.cfg.Debounce {
			continue
		}
		delete(w.pending, path)
		if path == w.cfg.SettingsPath {
			reloadSettings = true
		} else {
			reloadCatalog = true
		}
	}
	w.mu.Unlock()

	if reloadCatalog {
		w.reloadCatalog(ctx)
	}
	if reloadSettings {
		w.reloadSettings(ctx)
	}
}

func (w *Watcher) reloadCatalog(ctx context.Context) {
	cat, err := catalog.LoadDir(ctx, w.cfg.CatalogDir, w.logger)
	if err != nil {
		w.logger.Warn("catalog reload failed, keeping current rules", "error", err)
		return
	}
	if err := w.target.ReplaceCatalog(ctx, cat); err != nil {
		w.logger.Error("catalog update rejected", "error", err)
		return
	}
	w.countReload()
}

func (w *Watcher) reloadSettings(ctx context.Context) {
	settings, err := catalog.LoadSettingsFile(w.cfg.SettingsPath)
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Info("settings file removed, keeping current settings")
		return
	}
	if err != nil {
		w.logger.Warn("settings reload failed, keeping current settings", "error", err)
		return
	}
	if _, err := w.target.UpdateSettings(ctx, settings); err != nil {
		w.logger.Error("settings update rejected", "error", err)
		return
	}
	w.countReload()
}

func (w *Watcher) countReload() {
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
}

// Reloads returns how many updates were delivered to the target
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}
