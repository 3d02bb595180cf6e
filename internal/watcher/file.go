package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a single file and emits debounced event batches.
// fsnotify watches the parent directory so that editors and analyzers that
// replace the file by rename are still seen. When fsnotify cannot be
// initialized the watcher polls the file's size and modification time.
type FileWatcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	opts      Options
	mu        sync.Mutex
	stopped   bool
}

// NewFileWatcher creates a watcher for path.
func NewFileWatcher(path string, opts Options) (*FileWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute path: %w", err)
	}
	opts = opts.WithDefaults()

	w := &FileWatcher{
		path:      absPath,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("fsnotify unavailable, polling snapshot file",
			slog.String("path", absPath),
			slog.String("error", err.Error()),
		)
	} else {
		w.fsWatcher = fsw
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *FileWatcher) Path() string {
	return w.path
}

// Polling reports whether the watcher fell back to polling.
func (w *FileWatcher) Polling() bool {
	return w.fsWatcher == nil
}

// Start watches until ctx is cancelled or Stop is called. It returns
// ctx.Err() on cancellation and nil after Stop.
func (w *FileWatcher) Start(ctx context.Context) error {
	go w.forward()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Add(filepath.Dir(w.path)); err != nil {
			select {
			case <-w.stopCh:
				return nil
			default:
			}
			_ = w.Stop()
			return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
		}
		return w.runFsnotify(ctx)
	}
	return w.runPolling(ctx)
}

func (w *FileWatcher) runFsnotify(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// Chmod only.
		return
	}

	w.debouncer.Add(FileEvent{Path: w.path, Operation: op, Timestamp: time.Now()})
}

type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func (w *FileWatcher) stat() fileState {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

func (w *FileWatcher) runPolling(ctx context.Context) error {
	last := w.stat()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			cur := w.stat()
			if op, changed := diffState(last, cur); changed {
				w.debouncer.Add(FileEvent{Path: w.path, Operation: op, Timestamp: time.Now()})
			}
			last = cur
		}
	}
}

// diffState reports the operation that turns prev into cur.
func diffState(prev, cur fileState) (Operation, bool) {
	switch {
	case !prev.exists && cur.exists:
		return OpCreate, true
	case prev.exists && !cur.exists:
		return OpDelete, true
	case cur.exists && (!cur.modTime.Equal(prev.modTime) || cur.size != prev.size):
		return OpModify, true
	default:
		return 0, false
	}
}

// forward relays debounced batches until the debouncer is stopped, then
// closes the events channel.
func (w *FileWatcher) forward() {
	defer close(w.events)
	for batch := range w.debouncer.Output() {
		if len(batch) == 0 {
			continue
		}
		select {
		case w.events <- batch:
		case <-w.stopCh:
			return
		}
	}
}

func (w *FileWatcher) emitError(err error) {
	select {
	case w.errors <- err:
	default:
		slog.Warn("watcher error channel full", slog.String("error", err.Error()))
	}
}

// Events returns the channel of debounced batches. It is closed after Stop.
func (w *FileWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns non-fatal watcher errors.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher and releases resources.
// Safe to call multiple times.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	close(w.stopCh)
	w.debouncer.Stop()
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
