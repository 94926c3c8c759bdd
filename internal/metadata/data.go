package metadata

import (
	"fmt"
	"strings"
	"time"
)

type FetchEvent struct {
	fetchUrl    string
	httpStatus  int
	duration    time.Duration
	contentType string
	retryCount  int
	cacheHit    bool
}

func (f FetchEvent) URL() string             { return f.fetchUrl }
func (f FetchEvent) HTTPStatus() int         { return f.httpStatus }
func (f FetchEvent) Duration() time.Duration { return f.duration }
func (f FetchEvent) ContentType() string     { return f.contentType }
func (f FetchEvent) RetryCount() int         { return f.retryCount }
func (f FetchEvent) CacheHit() bool          { return f.cacheHit }

/*
ArchiveStats
  - Represents a terminal, derived summary of a completed archive run
  - Contains only aggregate counts and durations
  - Is computed by the scheduler after the run ends
  - Is recorded exactly once
*/
type ArchiveStats struct {
	TotalItems        int
	TotalRows         int
	TotalErrors       int
	FetchHits         int64
	FetchMisses       int64
	TranslationHits   int64
	TranslationMisses int64
	Duration          time.Duration
}

type ArtifactKind string

const (
	ArtifactWorkbook  ArtifactKind = "workbook"
	ArtifactCacheFile ArtifactKind = "cache_file"
)

type ArtifactRecord struct {
	Kind  ArtifactKind
	Path  string
	Attrs []Attribute
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry, fallback, or abort decisions.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure
  - Transport or remote availability failures (timeouts, DNS, resets, 5xx).

# CausePolicyDisallow
  - Access denied or throttled (401, 403, 429, expired session cookie).

# CauseContentInvalid
  - Content was fetched but could not be processed (bad JSON, unexpected HTML).

# CauseStorageFailure
  - Failure while reading or persisting cache files or the workbook.

# CauseInvariantViolation
  - An internal consistency check failed (stats audit, leaked cache handles).

# CauseTranslationFailure
  - A translation backend answered but the answer is unusable
    (wrong language, malformed payload, open circuit).
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
	CauseTranslationFailure
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	case CauseTranslationFailure:
		return "translation_failure"
	default:
		return "unknown"
	}
}

type ErrorRecord struct {
	packageName string
	action      string
	cause       ErrorCause
	errorString string
	observedAt  time.Time
	attrs       []Attribute
}

func (e ErrorRecord) PackageName() string   { return e.packageName }
func (e ErrorRecord) Action() string        { return e.action }
func (e ErrorRecord) Cause() ErrorCause     { return e.cause }
func (e ErrorRecord) ErrorString() string   { return e.errorString }
func (e ErrorRecord) ObservedAt() time.Time { return e.observedAt }

func (e ErrorRecord) Attrs() []Attribute {
	out := make([]Attribute, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// Attr returns the first attribute value stored under key.
func (e ErrorRecord) Attr(key AttributeKey) (string, bool) {
	for _, a := range e.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// String renders a one-line summary suitable for end-of-run reports.
func (e ErrorRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s.%s: %s", e.cause, e.packageName, e.action, e.errorString)
	for _, a := range e.attrs {
		fmt.Fprintf(&b, " %s=%s", a.Key, a.Value)
	}
	return b.String()
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrItemID     AttributeKey = "item_id"
	AttrPage       AttributeKey = "page"
	AttrField      AttributeKey = "field"
	AttrCacheKey   AttributeKey = "cache_key"
	AttrCachePath  AttributeKey = "cache_path"
	AttrLanguage   AttributeKey = "language"
	AttrBackend    AttributeKey = "backend"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrWritePath  AttributeKey = "write_path"
	AttrMessage    AttributeKey = "message"
)
