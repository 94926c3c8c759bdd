package cache

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

type lockMode string

const (
	lockRead  lockMode = "read"
	lockWrite lockMode = "write"
)

// shared is the single authoritative owner of one Cache for a run.
type shared struct {
	mu    sync.RWMutex
	cache *Cache
	refs  atomic.Int64
}

// lockKey marks a context as being inside a Read or Write callback of one shared cache.
type lockKey struct {
	s *shared
}

/*
Handle is a reference-counted, read/write-lockable view of one Cache.

  - Clone yields another handle to the same Cache and bumps the count.
  - Release drops this handle's reference. Releasing twice, or using a
    released handle, panics.
  - Read grants shared access, Write exclusive access. Acquiring either
    from inside a callback of the same cache (same ctx chain) panics with
    a *LockError instead of deadlocking.
*/
type Handle struct {
	s        *shared
	released atomic.Bool
}

func NewHandle(c *Cache) *Handle {
	s := &shared{cache: c}
	s.refs.Store(1)
	return &Handle{s: s}
}

func (h *Handle) Clone() *Handle {
	h.mustBeLive("Clone")
	h.s.refs.Add(1)
	return &Handle{s: h.s}
}

func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic(&LockError{Op: "Release"})
	}
	h.s.refs.Add(-1)
}

func (h *Handle) RefCount() int64 {
	return h.s.refs.Load()
}

// Same reports whether both handles share one Cache.
func (h *Handle) Same(other *Handle) bool {
	return other != nil && h.s == other.s
}

// AssertSole fails when any clone other than h is still live.
func (h *Handle) AssertSole() failure.ClassifiedError {
	refs := h.RefCount()
	if refs == 1 {
		return nil
	}
	err := &CacheError{
		Message: fmt.Sprintf("expected 1 live handle, found %d", refs),
		Cause:   ErrCauseHandleLeak,
	}
	h.s.cache.sink.RecordError(
		time.Now(),
		"cache",
		"Handle.AssertSole",
		mapCacheErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrCachePath, h.s.cache.Path()),
		},
	)
	return err
}

// Read runs fn with shared access to the cache.
func (h *Handle) Read(ctx context.Context, fn func(ctx context.Context, r Reader) error) error {
	h.mustBeLive("Read")
	h.guard(ctx, "Read")

	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	return fn(context.WithValue(ctx, lockKey{h.s}, lockRead), h.s.cache)
}

// Write runs fn with exclusive access to the cache.
func (h *Handle) Write(ctx context.Context, fn func(ctx context.Context, c *Cache) error) error {
	h.mustBeLive("Write")
	h.guard(ctx, "Write")

	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return fn(context.WithValue(ctx, lockKey{h.s}, lockWrite), h.s.cache)
}

func (h *Handle) guard(ctx context.Context, op string) {
	if held, ok := ctx.Value(lockKey{h.s}).(lockMode); ok {
		panic(&LockError{Op: op, Held: string(held)})
	}
}

func (h *Handle) mustBeLive(op string) {
	if h.released.Load() {
		panic(&LockError{Op: op})
	}
}

func (h *Handle) Get(ctx context.Context, key string) (string, bool) {
	var (
		value string
		ok    bool
	)
	_ = h.Read(ctx, func(_ context.Context, r Reader) error {
		value, ok = r.Get(key)
		return nil
	})
	return value, ok
}

func (h *Handle) Add(ctx context.Context, key, value string) failure.ClassifiedError {
	var flushErr failure.ClassifiedError
	_ = h.Write(ctx, func(_ context.Context, c *Cache) error {
		flushErr = c.Add(key, value)
		return nil
	})
	return flushErr
}

func (h *Handle) Dump(ctx context.Context) failure.ClassifiedError {
	var dumpErr failure.ClassifiedError
	_ = h.Write(ctx, func(_ context.Context, c *Cache) error {
		dumpErr = c.Dump()
		return nil
	})
	return dumpErr
}

func (h *Handle) Pump(ctx context.Context) failure.ClassifiedError {
	var pumpErr failure.ClassifiedError
	_ = h.Write(ctx, func(_ context.Context, c *Cache) error {
		pumpErr = c.Pump()
		return nil
	})
	return pumpErr
}

func (h *Handle) Clear(ctx context.Context) {
	_ = h.Write(ctx, func(_ context.Context, c *Cache) error {
		c.Clear()
		return nil
	})
}

func (h *Handle) Stats(ctx context.Context) Stats {
	var stats Stats
	_ = h.Read(ctx, func(_ context.Context, r Reader) error {
		stats = r.Stats()
		return nil
	})
	return stats
}

// Keys takes its snapshot under the read lock; ranging over the result does not hold it.
func (h *Handle) Keys(ctx context.Context) iter.Seq[string] {
	var keys iter.Seq[string]
	_ = h.Read(ctx, func(_ context.Context, r Reader) error {
		keys = r.Keys()
		return nil
	})
	return keys
}

func (h *Handle) Audit(ctx context.Context) AuditReport {
	var report AuditReport
	_ = h.Read(ctx, func(_ context.Context, r Reader) error {
		report = r.Audit()
		return nil
	})
	return report
}

func (h *Handle) Path() string {
	return h.s.cache.Path()
}
