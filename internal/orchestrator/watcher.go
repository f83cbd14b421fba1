package orchestrator

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
)

// debounceWindow coalesces the event bursts editors and rsync produce
// into a single reload.
const debounceWindow = 500 * time.Millisecond

// Watcher reloads the configuration set when YAML files in the configs
// directory change. A failed reload keeps the previous set active, so
// saving a half-edited file never breaks running automation.
type Watcher struct {
	dir    string
	reload func() error
	log    *logging.Logger
}

// NewWatcher creates a watcher over dir. reload is the orchestrator's
// Reload method.
func NewWatcher(dir string, reload func() error, log *logging.Logger) *Watcher {
	return &Watcher{dir: dir, reload: reload, log: log}
}

// Run watches until ctx is canceled. Watcher setup failures disable
// hot reload for the session but are not fatal; manual reload via the
// command surface still works.
func (w *Watcher) Run(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Error("config watcher unavailable", "error", err)
		return
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		w.log.Error("config watcher unavailable", "dir", w.dir, "error", err)
		return
	}
	w.log.Info("watching configuration directory", "dir", w.dir)

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				// Drain a fired-but-undelivered tick before the
				// reset so a burst cannot double-fire.
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceWindow)
			}
			debounceCh = debounce.C

		case <-debounceCh:
			debounceCh = nil
			if err := w.reload(); err != nil {
				w.log.Warn("config reload failed, previous set kept", "error", err)
			} else {
				w.log.Info("configs reloaded, effective next run")
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}

func isConfigFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
