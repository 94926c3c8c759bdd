package cache

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rohmanhakim/booth-archiver/internal/logging"
	"github.com/rohmanhakim/booth-archiver/pkg/fileutil"
	"github.com/rohmanhakim/booth-archiver/pkg/hashutil"
	"github.com/sirupsen/logrus"
)

// Watcher pumps a shared cache whenever another process rewrites its file.
// It holds its own clone of the handle until Close.
type Watcher struct {
	fs      *fsnotify.Watcher
	handle  *Handle
	path    string
	algo    hashutil.HashAlgo
	logger  logrus.FieldLogger
	reloads atomic.Int64

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Watch starts watching the directory holding the cache file. Writes that
// reproduce the digest this cache last persisted (its own dumps) are ignored.
func Watch(ctx context.Context, h *Handle, logger logrus.FieldLogger) (*Watcher, error) {
	path := h.Path()
	if path == "" {
		return nil, &CacheError{Message: "cannot watch a cache without a backing file", Cause: ErrCauseNoPath}
	}
	if logger == nil {
		logger = logging.Discard()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fileutil.EnsureDir(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		fs:     fsw,
		handle: h.Clone(),
		path:   filepath.Clean(path),
		algo:   h.s.cache.hashAlgo,
		logger: logger.WithField("cache_path", path),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.loop(ctx)
	return w, nil
}

// Reloads is the number of pumps triggered by external writes.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

// Close stops the watcher and releases its handle clone.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.closeErr = w.fs.Close()
		<-w.done
		w.handle.Release()
	})
	return w.closeErr
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.handleChange(ctx)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("cache watcher error")
		}
	}
}

// handleChange compares digests under the write lock so a dump of our own
// cannot interleave between the check and the pump.
func (w *Watcher) handleChange(ctx context.Context) {
	reloaded := false
	err := w.handle.Write(ctx, func(_ context.Context, c *Cache) error {
		current, hashErr := hashutil.HashFile(w.path, w.algo)
		if hashErr != nil || current == c.PersistedDigest() {
			// file vanished mid-replace, or this is our own dump
			return nil
		}
		if c.Dirty() {
			w.logger.WithFields(logrus.Fields{
				"unflushed": c.Unflushed(),
				"size":      c.Len(),
			}).Warn("cache file changed externally, discarding unflushed entries")
		}
		if pumpErr := c.Pump(); pumpErr != nil {
			return pumpErr
		}
		reloaded = true
		return nil
	})
	if err != nil {
		w.logger.WithError(err).Warn("cache file changed but could not be reloaded")
		return
	}
	if reloaded {
		w.reloads.Add(1)
		w.logger.Info("cache reloaded after external change")
	}
}
