package fetcher_test

import (
	"sync"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
)

type fetchEvent struct {
	fetchUrl    string
	httpStatus  int
	contentType string
	retryCount  int
	cacheHit    bool
}

type errorEvent struct {
	packageName string
	action      string
	cause       metadata.ErrorCause
	details     string
	attrs       []metadata.Attribute
}

// mockMetadataSink is a test double for metadata.MetadataSink
type mockMetadataSink struct {
	mu          sync.Mutex
	fetchEvents []fetchEvent
	errorEvents []errorEvent
}

func (m *mockMetadataSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	cacheHit bool,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchEvents = append(m.fetchEvents, fetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		contentType: contentType,
		retryCount:  retryCount,
		cacheHit:    cacheHit,
	})
}

func (m *mockMetadataSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorEvents = append(m.errorEvents, errorEvent{
		packageName: packageName,
		action:      action,
		cause:       cause,
		details:     details,
		attrs:       attrs,
	})
}

func (m *mockMetadataSink) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
}

func (m *mockMetadataSink) fetches() []fetchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fetchEvent(nil), m.fetchEvents...)
}

func (m *mockMetadataSink) errors() []errorEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]errorEvent(nil), m.errorEvents...)
}
