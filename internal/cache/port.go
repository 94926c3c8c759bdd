package cache

import "iter"

// Reader is the read-only view of a Cache handed to Handle.Read callbacks.
// Every method is safe for concurrent use by many readers.
type Reader interface {
	Get(key string) (string, bool)
	Stats() Stats
	Keys() iter.Seq[string]
	Len() int
	Hits() []string
	Misses() []string
	Audit() AuditReport
	Path() string
	PersistedDigest() string
}

var _ Reader = (*Cache)(nil)
