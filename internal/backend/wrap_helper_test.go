package backend_test

import (
	"context"
	"sync/atomic"

	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

// scriptedBackend fails with errs in order, then succeeds.
type scriptedBackend struct {
	errs  []failure.ClassifiedError
	calls atomic.Int32
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) Translate(_ context.Context, text, targetLang string) (string, failure.ClassifiedError) {
	n := int(s.calls.Add(1)) - 1
	if n < len(s.errs) && s.errs[n] != nil {
		return "", s.errs[n]
	}
	return targetLang + ":" + text, nil
}
