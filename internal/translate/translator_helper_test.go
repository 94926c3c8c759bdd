package translate_test

import (
	"context"
	"sync"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

// prefixBackend "translates" by prefixing the target language, and records every call.
type prefixBackend struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]failure.ClassifiedError
}

func newPrefixBackend() *prefixBackend {
	return &prefixBackend{fail: map[string]failure.ClassifiedError{}}
}

func (b *prefixBackend) Name() string { return "prefix" }

func (b *prefixBackend) Translate(_ context.Context, text, targetLang string) (string, failure.ClassifiedError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, text)
	if err, ok := b.fail[text]; ok {
		return "", err
	}
	return targetLang + ":" + text, nil
}

func (b *prefixBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

type recordedError struct {
	action string
	cause  metadata.ErrorCause
	attrs  []metadata.Attribute
}

type metadataSinkMock struct {
	mu     sync.Mutex
	errors []recordedError
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
	m.errors = append(m.errors, recordedError{action: action, cause: cause, attrs: attrs})
}

func (m *metadataSinkMock) RecordFetch(string, int, time.Duration, string, int, bool) {}

func (m *metadataSinkMock) RecordArtifact(metadata.ArtifactKind, string, []metadata.Attribute) {}

func (m *metadataSinkMock) Errors() []recordedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedError(nil), m.errors...)
}
