package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/Aman-CERP/symdex/internal/corpus"
	symerrors "github.com/Aman-CERP/symdex/internal/errors"
)

// LoadFunc decodes a snapshot file.
type LoadFunc func(path string) (*corpus.Corpus, error)

// Reloader swaps a freshly decoded corpus into a holder whenever the
// snapshot file changes.
type Reloader struct {
	path     string
	holder   *corpus.Holder
	opts     Options
	load     LoadFunc
	onReload func(*corpus.Corpus)
	reloads  atomic.Uint64
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithLoadFunc replaces corpus.LoadFile.
func WithLoadFunc(fn LoadFunc) ReloaderOption {
	return func(r *Reloader) {
		if fn != nil {
			r.load = fn
		}
	}
}

// WithOnReload registers a callback invoked after every swap.
func WithOnReload(fn func(*corpus.Corpus)) ReloaderOption {
	return func(r *Reloader) {
		r.onReload = fn
	}
}

// NewReloader creates a reloader for the snapshot at path.
func NewReloader(path string, holder *corpus.Holder, opts Options, options ...ReloaderOption) *Reloader {
	r := &Reloader{
		path:   path,
		holder: holder,
		opts:   opts.WithDefaults(),
		load:   corpus.LoadFile,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Reloads returns the number of corpora swapped in so far.
func (r *Reloader) Reloads() uint64 {
	return r.reloads.Load()
}

// Run watches the snapshot until ctx is cancelled. Cancellation is not an
// error.
func (r *Reloader) Run(ctx context.Context) error {
	w, err := NewFileWatcher(r.path, r.opts)
	if err != nil {
		return err
	}

	slog.Info("watching snapshot",
		slog.String("path", w.Path()),
		slog.Bool("polling", w.Polling()),
		slog.Duration("debounce", r.opts.DebounceWindow),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	for {
		select {
		case batch, ok := <-w.Events():
			if !ok {
				err := <-errCh
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}
			r.handle(batch)
		case werr := <-w.Errors():
			slog.Warn("snapshot watcher error", slog.String("error", werr.Error()))
		}
	}
}

func (r *Reloader) handle(batch []FileEvent) {
	for _, ev := range batch {
		if ev.Operation == OpCreate || ev.Operation == OpModify {
			r.Reload()
			return
		}
	}
	slog.Warn("snapshot file removed, keeping current corpus",
		slog.String("path", r.path),
	)
}

// Reload decodes the snapshot and swaps it in. A file that cannot be read
// leaves the current corpus in place and returns false. A file that reads
// but does not decode is swapped in as an empty corpus.
func (r *Reloader) Reload() bool {
	c, err := r.load(r.path)
	if err != nil {
		code := symerrors.GetCode(err)
		if code == symerrors.ErrCodeFileNotFound || code == symerrors.ErrCodeFilePermission {
			slog.Warn("snapshot reload skipped", symerrors.LogAttrs(err)...)
			return false
		}
		slog.Warn("snapshot reload produced an empty corpus", symerrors.LogAttrs(err)...)
	}
	if c == nil {
		c = corpus.Empty()
	}

	prev := r.holder.Swap(c)
	r.reloads.Add(1)

	stats := c.Stats()
	slog.Info("snapshot reloaded",
		slog.String("path", r.path),
		slog.Int("modules", stats.Modules),
		slog.Int("types", stats.Types),
		slog.Int("members", stats.Members),
		slog.Int("previous_types", prev.Stats().Types),
	)

	if r.onReload != nil {
		r.onReload(c)
	}
	return true
}
