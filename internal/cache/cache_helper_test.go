package cache_test

import (
	"sync"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
)

type metadataSinkMock struct {
	mu                sync.Mutex
	recordErrorCalled bool
	recordErrorAction string
	recordErrorCause  metadata.ErrorCause
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordErrorCalled = true
	m.recordErrorAction = action
	m.recordErrorCause = cause
}

func (m *metadataSinkMock) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	cacheHit bool,
) {
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
}
