package cache

import (
	"iter"
	"sort"
	"sync"

	"github.com/rohmanhakim/booth-archiver/internal/logging"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/internal/storage"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/hashutil"
	"github.com/sirupsen/logrus"
)

const DefaultFlushEvery = 100

/*
Cache is a string to string mapping with hit/miss telemetry and an
access-count auto-flush to a backing file.

Concurrency contract:
  - Get and the read-only introspection methods may run concurrently with
    each other (they only touch the counters, which have their own lock).
  - Add, Clear, Dump, DumpToFile, Pump and PumpFromFile need exclusive access.

Share a Cache between goroutines through a Handle, which enforces this.
Counters and logs are run-scoped and never persisted.
*/
type Cache struct {
	data       map[string]string
	path       string
	store      storage.Store
	hashAlgo   hashutil.HashAlgo
	flushEvery uint64
	logger     logrus.FieldLogger
	sink       metadata.MetadataSink

	accesses uint64
	// dirty is set by every mutation and cleared by a dump to, or pump from, the own path.
	dirty bool
	// unflushed counts adds since the last dump to, or pump from, the own path.
	unflushed  int
	lastDigest string

	statsMu sync.Mutex
	hits    int64
	misses  int64
	hitLog  []string
	missLog []string
}

type Option func(*Cache)

// WithFlushEvery sets the auto-flush interval in adds. Zero disables auto-flush.
func WithFlushEvery(n int) Option {
	return func(c *Cache) {
		if n < 0 {
			n = 0
		}
		c.flushEvery = uint64(n)
	}
}

func WithStore(store storage.Store) Option {
	return func(c *Cache) {
		c.store = store
	}
}

func WithHashAlgo(algo hashutil.HashAlgo) Option {
	return func(c *Cache) {
		c.hashAlgo = algo
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithMetadataSink(sink metadata.MetadataSink) Option {
	return func(c *Cache) {
		c.sink = sink
	}
}

// New returns an empty cache that persists to path. path may be empty for a
// memory-only cache, in which case auto-flush is skipped and Dump fails.
func New(path string, opts ...Option) *Cache {
	c := &Cache{
		data:       make(map[string]string),
		path:       path,
		hashAlgo:   hashutil.HashAlgoBLAKE3,
		flushEvery: DefaultFlushEvery,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.sink == nil {
		c.sink = &metadata.NoopSink{}
	}
	if c.store == nil {
		c.store = storage.NewJSONStore(c.sink, c.hashAlgo)
	}
	c.logger = c.logger.WithField("cache_path", path)
	return c
}

// NewWithPath loads the mapping persisted at path, or starts empty when the file is absent.
func NewWithPath(path string, opts ...Option) (*Cache, failure.ClassifiedError) {
	c := New(path, opts...)
	if path == "" {
		return c, nil
	}
	if err := c.PumpFromFile(path); err != nil {
		return nil, err
	}
	c.logger.WithField("size", len(c.data)).Info("cache loaded")
	return c, nil
}

func (c *Cache) Path() string {
	return c.path
}

// Get returns a copy of the stored value and records a hit or a miss.
// The empty string is a valid key and a valid value.
func (c *Cache) Get(key string) (string, bool) {
	value, ok := c.data[key]

	c.statsMu.Lock()
	if ok {
		c.hits++
		c.hitLog = append(c.hitLog, key)
	} else {
		c.misses++
		c.missLog = append(c.missLog, key)
	}
	c.statsMu.Unlock()

	if ok {
		c.logger.WithField("cache_key", key).Trace("cache hit")
	} else {
		c.logger.WithField("cache_key", key).Trace("cache miss")
	}
	return value, ok
}

// Add stores value under key, overwriting any prior value. Every flushEvery-th
// add persists the mapping; the returned error is the flush error, if any.
func (c *Cache) Add(key, value string) failure.ClassifiedError {
	c.data[key] = value
	c.dirty = true
	c.unflushed++
	c.accesses++

	if c.flushEvery == 0 || c.path == "" || c.accesses%c.flushEvery != 0 {
		return nil
	}
	c.logger.WithField("accesses", c.accesses).Debug("auto-flush")
	return c.Dump()
}

// Dump persists the mapping to the cache path. It is skipped when nothing
// changed since the last dump or load.
func (c *Cache) Dump() failure.ClassifiedError {
	if c.path == "" {
		return &CacheError{Message: "cache has no backing file", Cause: ErrCauseNoPath}
	}
	if !c.dirty {
		c.logger.Debug("dump skipped, cache unchanged")
		return nil
	}
	return c.DumpToFile(c.path)
}

// DumpToFile always writes the mapping to path.
func (c *Cache) DumpToFile(path string) failure.ClassifiedError {
	result, err := c.store.Save(path, c.data)
	if err != nil {
		return err
	}
	if path == c.path {
		c.dirty = false
		c.unflushed = 0
		c.lastDigest = c.digest(path)
	}
	c.logger.WithFields(logrus.Fields{
		"write_path": result.Path(),
		"size":       result.Entries(),
	}).Debug("cache dumped")
	return nil
}

// Pump replaces the in-memory mapping with the cache file's contents.
func (c *Cache) Pump() failure.ClassifiedError {
	if c.path == "" {
		return &CacheError{Message: "cache has no backing file", Cause: ErrCauseNoPath}
	}
	return c.PumpFromFile(c.path)
}

// PumpFromFile replaces the in-memory mapping with the contents of path,
// discarding entries the file does not contain. A missing file empties the cache.
func (c *Cache) PumpFromFile(path string) failure.ClassifiedError {
	entries, err := c.store.Load(path)
	if err != nil {
		return err
	}
	c.data = entries
	if path == c.path {
		c.dirty = false
		c.unflushed = 0
		c.lastDigest = c.digest(path)
	} else {
		c.dirty = true
	}
	return nil
}

func (c *Cache) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Size:     len(c.data),
		Accesses: c.accesses,
	}
}

// Hits returns the keys that hit, in lookup order, duplicates included.
func (c *Cache) Hits() []string {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return append([]string(nil), c.hitLog...)
}

// Misses returns the keys that missed, in lookup order, duplicates included.
func (c *Cache) Misses() []string {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return append([]string(nil), c.missLog...)
}

// Keys enumerates the keys stored at call time in sorted order.
// The sequence can be ranged over more than once.
func (c *Cache) Keys() iter.Seq[string] {
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return func(yield func(string) bool) {
		for _, k := range keys {
			if !yield(k) {
				return
			}
		}
	}
}

// Dirty reports whether the mapping changed since the last dump to, or pump
// from, the cache path.
func (c *Cache) Dirty() bool {
	return c.dirty
}

// Unflushed is the number of adds a pump from the cache path would discard.
func (c *Cache) Unflushed() int {
	return c.unflushed
}

func (c *Cache) Len() int {
	return len(c.data)
}

// Clear empties the mapping. Counters, logs and the file are left alone.
func (c *Cache) Clear() {
	c.data = make(map[string]string)
	c.dirty = true
}

func (c *Cache) Audit() AuditReport {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return buildAudit(c.data, c.hits, c.misses, c.hitLog, c.missLog)
}

// PersistedDigest is the content hash of the cache file as last written or read by this cache.
func (c *Cache) PersistedDigest() string {
	return c.lastDigest
}

func (c *Cache) digest(path string) string {
	sum, err := hashutil.HashFile(path, c.hashAlgo)
	if err != nil {
		return ""
	}
	return sum
}
