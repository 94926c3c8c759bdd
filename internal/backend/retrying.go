package backend

import (
	"context"
	"errors"

	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/retry"
)

// Retrying retries transient failures of the wrapped backend using
// exponential backoff. Non-retryable errors are returned at once.
type Retrying struct {
	next       translate.Backend
	retryParam retry.RetryParam
}

func NewRetrying(next translate.Backend, retryParam retry.RetryParam) *Retrying {
	return &Retrying{next: next, retryParam: retryParam}
}

func (r *Retrying) Name() string {
	return r.next.Name()
}

func (r *Retrying) Translate(ctx context.Context, text string, targetLang string) (string, failure.ClassifiedError) {
	result := retry.Retry(ctx, r.retryParam, func() (string, failure.ClassifiedError) {
		return r.next.Translate(ctx, text, targetLang)
	})
	if result.IsFailure() {
		return "", asTranslationError(r.next.Name(), result.Err())
	}
	return result.Value(), nil
}

// asTranslationError surfaces the backend's own error when retry wrapped it.
func asTranslationError(backendName string, err failure.ClassifiedError) *translate.TranslationError {
	var translationErr *translate.TranslationError
	if errors.As(err, &translationErr) {
		return translationErr
	}
	return &translate.TranslationError{
		Message: err.Error(),
		Cause:   translate.ErrCauseNetworkFailure,
		Backend: backendName,
	}
}
