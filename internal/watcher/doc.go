// Package watcher keeps a served corpus in sync with its snapshot file.
//
// A FileWatcher observes a single file through fsnotify on its parent
// directory, falling back to stat polling where fsnotify is unavailable.
// Events are debounced so that an analyzer rewriting the file in several
// steps produces one reload. A Reloader consumes the debounced batches,
// re-decodes the snapshot, and swaps the result into a corpus.Holder.
//
// Usage:
//
//	r := watcher.NewReloader(path, holder, watcher.DefaultOptions())
//	if err := r.Run(ctx); err != nil {
//	    return err
//	}
package watcher
