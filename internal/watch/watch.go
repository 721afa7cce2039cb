// Package watch reloads the corpus when its files change on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FocuswithJustin/Granthalaya/internal/logging"
)

// DefaultDebounce batches editor save bursts into one reload.
const DefaultDebounce = 300 * time.Millisecond

// Filter reports whether a changed path should trigger a reload.
type Filter func(path string) bool

// Extensions returns a Filter matching any of exts (".json", ".xml").
func Extensions(exts ...string) Filter {
	return func(path string) bool {
		ext := filepath.Ext(path)
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}

// File returns a Filter matching one file by base name. Archives and
// databases are watched through their parent directory.
func File(path string) Filter {
	base := filepath.Base(path)
	return func(p string) bool { return filepath.Base(p) == base }
}

// Watcher calls OnChange once per burst of matching filesystem events.
type Watcher struct {
	dir      string
	filter   Filter
	debounce time.Duration
	onChange func(ctx context.Context)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	events  int
}

// New returns a watcher over dir. A zero debounce uses DefaultDebounce.
func New(dir string, filter Filter, debounce time.Duration, onChange func(ctx context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		filter:   filter,
		debounce: debounce,
		onChange: onChange,
	}
}

// Start begins watching. It returns after the watch is registered; events
// are handled on a background goroutine until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}

	w.watcher = fw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx, fw, w.stopCh, w.doneCh)

	logging.Info("watch_started", "dir", w.dir, "debounce_ms", w.debounce.Milliseconds())
	return nil
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh, fw := w.stopCh, w.doneCh, w.watcher
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	if err := fw.Close(); err != nil {
		logging.Warn("watch_close_failed", "dir", w.dir, "error", err.Error())
	}
}

// Events returns the number of matching events seen so far.
func (w *Watcher) Events() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			logging.Debug("watch_event", "path", ev.Name, "op", ev.Op.String())
			w.mu.Lock()
			w.events++
			w.mu.Unlock()

			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Warn("watch_error", "dir", w.dir, "error", err.Error())

		case <-timer.C:
			w.onChange(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return w.filter == nil || w.filter(ev.Name)
}
