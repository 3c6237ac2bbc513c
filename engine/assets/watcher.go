package assets

import (
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/cubeworks/prism/engine/core"
)

// Watcher observes the shader directory and latches a dirty flag whenever a
// compiled binary changes on disk. The render loop polls ConsumeDirty once
// per frame and rebuilds pipelines outside any in-flight work.
type Watcher struct {
	watcher *fsnotify.Watcher
	dirty   atomic.Bool
	done    chan struct{}
}

func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		done:    make(chan struct{}),
	}
	go w.run()
	core.LogInfo("watching %s for shader changes", dir)
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if strings.EqualFold(filepath.Ext(event.Name), ".spv") {
				core.LogDebug("shader changed on disk: %s", event.Name)
				w.dirty.Store(true)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			core.LogWarn("shader watcher error: %s", err)
		case <-w.done:
			return
		}
	}
}

// ConsumeDirty returns whether any shader changed since the last call and
// clears the flag.
func (w *Watcher) ConsumeDirty() bool {
	return w.dirty.Swap(false)
}

func (w *Watcher) Close() {
	close(w.done)
	w.watcher.Close()
}
