// Package watcher provides a file watcher that fires a callback when a
// single watched file is written, created, or removed.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceWindow coalesces event bursts. Editors and atomic-rename writers
// emit several events per logical change.
const debounceWindow = 200 * time.Millisecond

// Watcher watches one file and invokes a callback on changes. The parent
// directory is watched rather than the file itself, so the watch survives
// delete-and-recreate cycles.
type Watcher struct {
	path     string
	onChange func()

	fw       *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a watcher for the given file path. The callback runs on the
// watcher goroutine and must not block.
func New(path string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		fw:       fw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Returns an error if the parent directory does not
// exist.
func (w *Watcher) Start() error {
	if err := w.fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var lastFire time.Time
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if time.Since(lastFire) < debounceWindow {
				continue
			}
			lastFire = time.Now()
			w.onChange()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", w.path).Msg("File watcher error")
		}
	}
}
