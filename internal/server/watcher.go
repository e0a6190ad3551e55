package server

import (
	"path/filepath"
	"sync"
	"time"

	"baton/internal/config"
	"baton/internal/player"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher monitors the config file and live-applies the settings that
// are safe to change at runtime: the active backend mode and the poll
// interval. Everything else still requires a restart.
type ConfigWatcher struct {
	server  *Server
	path    string
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending *time.Timer
}

// WatchConfig starts monitoring the config file for changes
func (s *Server) WatchConfig(path string) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	cw := &ConfigWatcher{server: s, path: path, watcher: watcher}

	// Watch the directory, not the file: editors replace config files by
	// rename, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	go cw.watch()

	s.logger.WithField("path", path).Info("Config watcher started")
	return cw, nil
}

// watch selects on watcher channels and dispatches events
func (cw *ConfigWatcher) watch() {
	defer cw.watcher.Close()

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleEvent(event)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.server.logger.WithError(err).Error("Config watcher error")
		}
	}
}

// handleEvent debounces write bursts; editors fire several events per save
func (cw *ConfigWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(cw.path) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.pending != nil {
		cw.pending.Stop()
	}
	cw.pending = time.AfterFunc(300*time.Millisecond, cw.reload)
}

// reload re-reads the config file and applies runtime-changeable settings
func (cw *ConfigWatcher) reload() {
	s := cw.server

	cfg, err := config.LoadConfig(cw.path)
	if err != nil {
		s.logger.WithError(err).Warn("Ignoring invalid config change")
		return
	}

	if mode, err := player.ParseMode(cfg.Player.Backend); err == nil && mode != s.manager.Mode() {
		s.logger.WithField("mode", mode).Info("Config change: switching backend")
		s.manager.SetMode(mode)
	}

	if cfg.Player.PollMs != s.config.Player.PollMs {
		s.logger.WithField("poll_ms", cfg.Player.PollMs).Info("Config change: poll interval")
		s.manager.SetPollInterval(time.Duration(cfg.Player.PollMs) * time.Millisecond)
		s.config.Player.PollMs = cfg.Player.PollMs
	}
}

// Stop closes the watcher (idempotent)
func (cw *ConfigWatcher) Stop() {
	if cw != nil && cw.watcher != nil {
		cw.watcher.Close()
	}
}
