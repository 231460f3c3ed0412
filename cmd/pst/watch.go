package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"pst-renderer/core"
)

// shaderWatcher forwards the text of a shader file each time it is written.
// Only the latest text is kept when the frame loop falls behind.
type shaderWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	edits   chan string
	done    chan struct{}
}

// watchShader watches the directory holding path, since editors often
// replace a file instead of writing it in place.
func watchShader(path string) (*shaderWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to watch shader: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch shader: %w", err)
	}

	sw := &shaderWatcher{
		watcher: w,
		path:    abs,
		edits:   make(chan string, 1),
		done:    make(chan struct{}),
	}
	go sw.loop()
	return sw, nil
}

func (sw *shaderWatcher) Edits() <-chan string { return sw.edits }

func (sw *shaderWatcher) Close() error {
	err := sw.watcher.Close()
	<-sw.done
	return err
}

func (sw *shaderWatcher) loop() {
	defer close(sw.done)
	log := core.Logger().With("component", "watch", "path", sw.path)
	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			b, err := os.ReadFile(sw.path)
			if err != nil {
				log.Warn("failed to read shader", "err", err)
				continue
			}
			log.Debug("shader changed", "op", event.Op.String())
			sw.send(string(b))
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "err", err)
		}
	}
}

// send replaces any edit the frame loop has not picked up yet.
func (sw *shaderWatcher) send(src string) {
	select {
	case sw.edits <- src:
	default:
		select {
		case <-sw.edits:
		default:
		}
		sw.edits <- src
	}
}
