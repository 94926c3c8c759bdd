package translate

import "sync"

// UrlTranslationContext describes one split of a text around a URL.
type UrlTranslationContext struct {
	Original        string
	Left            string
	TranslatedLeft  string
	URL             string
	Right           string
	TranslatedRight string
	Result          string
}

// ContextLog is an append-only, concurrency-safe audit trail of URL splits.
// The translator only ever appends to it.
type ContextLog struct {
	mu      sync.Mutex
	entries []UrlTranslationContext
}

func NewContextLog() *ContextLog {
	return &ContextLog{}
}

func (l *ContextLog) Append(entry UrlTranslationContext) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *ContextLog) Entries() []UrlTranslationContext {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]UrlTranslationContext(nil), l.entries...)
}

func (l *ContextLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
