package backend_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/backend"
	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/retry"
	"github.com/rohmanhakim/booth-archiver/pkg/timeutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transient() failure.ClassifiedError {
	return &translate.TranslationError{Message: "503", Retryable: true, Cause: translate.ErrCauseNetworkFailure}
}

func rejected() failure.ClassifiedError {
	return &translate.TranslationError{Message: "400", Cause: translate.ErrCauseRejected}
}

func quickRetry(attempts int) retry.RetryParam {
	return retry.NewRetryParam(0, 0, 1, attempts, timeutil.NewBackoffParam(time.Millisecond, 1, time.Millisecond))
}

func TestRetrying_RecoversFromTransientFailures(t *testing.T) {
	next := &scriptedBackend{errs: []failure.ClassifiedError{transient(), transient()}}
	r := backend.NewRetrying(next, quickRetry(3))

	out, err := r.Translate(context.Background(), "x", "en")
	require.Nil(t, err)
	assert.Equal(t, "en:x", out)
	assert.EqualValues(t, 3, next.calls.Load())
	assert.Equal(t, "scripted", r.Name())
}

func TestRetrying_StopsOnRejection(t *testing.T) {
	next := &scriptedBackend{errs: []failure.ClassifiedError{rejected()}}
	r := backend.NewRetrying(next, quickRetry(3))

	_, err := r.Translate(context.Background(), "x", "en")
	require.NotNil(t, err)
	assert.EqualValues(t, 1, next.calls.Load())

	var translationErr *translate.TranslationError
	require.True(t, errors.As(err, &translationErr))
	assert.Equal(t, translate.ErrCauseRejected, translationErr.Cause)
}

func TestRetrying_ExhaustedSurfacesLastBackendError(t *testing.T) {
	next := &scriptedBackend{errs: []failure.ClassifiedError{transient(), transient()}}
	r := backend.NewRetrying(next, quickRetry(2))

	_, err := r.Translate(context.Background(), "x", "en")
	require.NotNil(t, err)

	var translationErr *translate.TranslationError
	require.True(t, errors.As(err, &translationErr))
	assert.Equal(t, translate.ErrCauseNetworkFailure, translationErr.Cause)
	assert.Equal(t, "503", translationErr.Message)
}

func TestBreaker_OpensAfterConsecutiveTransientFailures(t *testing.T) {
	next := &scriptedBackend{errs: []failure.ClassifiedError{transient(), transient(), transient()}}
	b := backend.NewBreaker(next, backend.BreakerSettings{MaxFailures: 2, OpenTimeout: time.Hour}, nil)

	for i := 0; i < 2; i++ {
		_, err := b.Translate(context.Background(), "x", "en")
		require.NotNil(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Translate(context.Background(), "x", "en")
	require.NotNil(t, err)
	var translationErr *translate.TranslationError
	require.True(t, errors.As(err, &translationErr))
	assert.Equal(t, translate.ErrCauseBackendUnavailable, translationErr.Cause)
	assert.Equal(t, "scripted", translationErr.Backend)
	// the open breaker never reached the backend
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestBreaker_RejectionsDoNotTrip(t *testing.T) {
	next := &scriptedBackend{errs: []failure.ClassifiedError{rejected(), rejected(), rejected()}}
	b := backend.NewBreaker(next, backend.BreakerSettings{MaxFailures: 2, OpenTimeout: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Translate(context.Background(), "x", "en")
		require.NotNil(t, err)
		var translationErr *translate.TranslationError
		require.True(t, errors.As(err, &translationErr))
		assert.Equal(t, translate.ErrCauseRejected, translationErr.Cause)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())

	out, err := b.Translate(context.Background(), "x", "en")
	require.Nil(t, err)
	assert.Equal(t, "en:x", out)
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	b, err := backend.New(ctx, backend.Settings{Kind: "google"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "google", b.Name())

	b, err = backend.New(ctx, backend.Settings{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "google", b.Name())

	b, err = backend.New(ctx, backend.Settings{Kind: "OpenAI", APIKey: "sk-test", Retry: quickRetry(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Name())

	b, err = backend.New(ctx, backend.Settings{Kind: "gemini", APIKey: "key"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", b.Name())
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := backend.New(ctx, backend.Settings{Kind: "deepl"}, nil)
	assert.ErrorIs(t, err, backend.ErrUnknownBackend)

	_, err = backend.New(ctx, backend.Settings{Kind: "openai"}, nil)
	assert.ErrorIs(t, err, backend.ErrMissingAPIKey)

	_, err = backend.New(ctx, backend.Settings{Kind: "gemini"}, nil)
	assert.ErrorIs(t, err, backend.ErrMissingAPIKey)
}
