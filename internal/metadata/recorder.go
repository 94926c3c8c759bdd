package metadata

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohmanhakim/booth-archiver/internal/logging"
	"github.com/sirupsen/logrus"
)

/*
Metadata Collected
- Fetch timestamps, status codes and cache hits
- Artifact paths and content hashes
- Per-item errors

Metadata is write-only.
No component may read metadata to influence archive decisions.
The scheduler reads Errors() once, after the run, to report them.
*/

/*
Recorder captures structured archive events and forwards them to a logrus logger.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events from a single worker are recorded in the order they are received.
- No global ordering across workers is guaranteed.
*/
type Recorder struct {
	runID  string
	logger logrus.FieldLogger

	mu        sync.Mutex
	errors    []ErrorRecord
	artifacts []ArtifactRecord
	fetches   []FetchEvent
	final     *ArchiveStats
}

func NewRecorder(logger logrus.FieldLogger) *Recorder {
	id := uuid.NewString()
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recorder{
		runID:  id,
		logger: logger.WithField("run_id", id),
	}
}

func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	record := ErrorRecord{
		packageName: packageName,
		action:      action,
		cause:       cause,
		errorString: errorString,
		observedAt:  observedAt,
		attrs:       append([]Attribute(nil), attrs...),
	}

	r.mu.Lock()
	r.errors = append(r.errors, record)
	r.mu.Unlock()

	fields := logrus.Fields{
		"package": packageName,
		"action":  action,
		"cause":   cause.String(),
	}
	for _, a := range attrs {
		fields[string(a.Key)] = a.Value
	}
	r.logger.WithFields(fields).Warn(errorString)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	cacheHit bool,
) {
	event := FetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		retryCount:  retryCount,
		cacheHit:    cacheHit,
	}

	r.mu.Lock()
	r.fetches = append(r.fetches, event)
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"url":          fetchUrl,
		"http_status":  httpStatus,
		"duration_ms":  duration.Milliseconds(),
		"content_type": contentType,
		"retry_count":  retryCount,
		"cache_hit":    cacheHit,
	}).Debug("fetch")
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	r.mu.Lock()
	r.artifacts = append(r.artifacts, ArtifactRecord{Kind: kind, Path: path, Attrs: append([]Attribute(nil), attrs...)})
	r.mu.Unlock()

	fields := logrus.Fields{"kind": string(kind), "path": path}
	for _, a := range attrs {
		fields[string(a.Key)] = a.Value
	}
	r.logger.WithFields(fields).Info("artifact written")
}

/*
RecordFinalArchiveStats records the terminal summary of a completed run.

Contract:
  - MUST be called exactly once per run, after the run ends.
  - The provided stats MUST be derived from scheduler state.
*/
func (r *Recorder) RecordFinalArchiveStats(stats ArchiveStats) {
	r.mu.Lock()
	r.final = &stats
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"total_items":        stats.TotalItems,
		"total_rows":         stats.TotalRows,
		"total_errors":       stats.TotalErrors,
		"fetch_hits":         stats.FetchHits,
		"fetch_misses":       stats.FetchMisses,
		"translation_hits":   stats.TranslationHits,
		"translation_misses": stats.TranslationMisses,
		"duration_ms":        strconv.FormatInt(stats.Duration.Milliseconds(), 10),
	}).Info("archive finished")
}

// Errors returns a copy of every error recorded so far.
func (r *Recorder) Errors() []ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorRecord, len(r.errors))
	copy(out, r.errors)
	return out
}

func (r *Recorder) Artifacts() []ArtifactRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ArtifactRecord, len(r.artifacts))
	copy(out, r.artifacts)
	return out
}

func (r *Recorder) Fetches() []FetchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FetchEvent, len(r.fetches))
	copy(out, r.fetches)
	return out
}

// FinalStats returns the recorded summary, if the run has finished.
func (r *Recorder) FinalStats() (ArchiveStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final == nil {
		return ArchiveStats{}, false
	}
	return *r.final, true
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
		cacheHit bool,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type ArchiveFinalizer interface {
	RecordFinalArchiveStats(stats ArchiveStats)
}

// NoopSink, struct that implements MetadataSink but does nothing
// Scheduler (or Test) can decide whether to inject Recorder or NoopSink

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	cacheHit bool,
) {
}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordFinalArchiveStats(stats ArchiveStats) {}
