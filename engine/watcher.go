package engine

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/phusis/engine/core"
)

// watch reloads the config file on every change until ctx is done. A broken
// watcher or config file is logged and never stops the frame loop.
func (e *Engine) watch(ctx context.Context) error {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		core.LogError("config hot reload disabled: %s", err)
		return nil
	}
	defer fsWatch.Close()

	path := filepath.Clean(e.configPath)
	// editors replace the file on save, which drops a watch on the file itself
	if err := fsWatch.Add(filepath.Dir(path)); err != nil {
		core.LogError("config hot reload disabled: %s", err)
		return nil
	}
	core.LogDebug("watching %s", path)

	for {
		select {
		case ev, ok := <-fsWatch.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				e.reload()
			}

		case err, ok := <-fsWatch.Errors:
			if !ok {
				return nil
			}
			core.LogError(err.Error())

		case <-ctx.Done():
			return nil
		}
	}
}

func (e *Engine) reload() {
	cfg, err := LoadConfig(e.configPath)
	if err != nil {
		core.LogWarn("ignoring config change: %s", err)
		return
	}
	e.applyReloadable(cfg)
}

func (e *Engine) applyReloadable(cfg *Config) {
	core.SetLogLevel(cfg.Log.Level)
	if previous := e.Strategy(); previous != cfg.Renderer.Strategy {
		e.SetStrategy(cfg.Renderer.Strategy)
		core.LogInfo("distribution strategy changed from %s to %s", previous, cfg.Renderer.Strategy)
	}
}
