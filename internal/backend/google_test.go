package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/backend"
	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/pkg/limiter"
	"github.com/rohmanhakim/booth-archiver/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter() *limiter.ConcurrentRateLimiter {
	return limiter.NewConcurrentRateLimiter(0, 0, 1, timeutil.NewBackoffParam(time.Millisecond, 2, 10*time.Millisecond))
}

func TestGoogle_TranslateJoinsSegments(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"client": q.Get("client"),
			"sl":     q.Get("sl"),
			"tl":     q.Get("tl"),
			"dt":     q.Get("dt"),
			"q":      q.Get("q"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[["Hello, ","こんにちは、",null,null,10],["world","世界",null,null,10]],null,"ja",null,null,null,1]`))
	}))
	defer srv.Close()

	g := backend.NewGoogle(srv.Client(), srv.URL, "test-agent", newTestLimiter())

	out, err := g.Translate(context.Background(), "こんにちは、世界", "en")
	require.Nil(t, err)
	assert.Equal(t, "Hello, world", out)
	assert.Equal(t, "google", g.Name())
	assert.Equal(t, map[string]string{
		"client": "gtx",
		"sl":     "auto",
		"tl":     "en",
		"dt":     "t",
		"q":      "こんにちは、世界",
	}, gotQuery)
}

func TestGoogle_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		cause     translate.TranslationErrorCause
		retryable bool
	}{
		{"too many requests", http.StatusTooManyRequests, translate.ErrCauseNetworkFailure, true},
		{"server error", http.StatusBadGateway, translate.ErrCauseNetworkFailure, true},
		{"bad request", http.StatusBadRequest, translate.ErrCauseRejected, false},
		{"forbidden", http.StatusForbidden, translate.ErrCauseRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			g := backend.NewGoogle(srv.Client(), srv.URL, "", nil)
			_, err := g.Translate(context.Background(), "テスト", "en")
			require.NotNil(t, err)

			var translationErr *translate.TranslationError
			require.True(t, errors.As(err, &translationErr))
			assert.Equal(t, tt.cause, translationErr.Cause)
			assert.Equal(t, tt.retryable, translationErr.IsRetryable())
			assert.Equal(t, tt.status, translationErr.StatusCode)
			assert.Equal(t, "google", translationErr.Backend)
		})
	}
}

func TestGoogle_TooManyRequestsGrowsHostBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rl := newTestLimiter()
	g := backend.NewGoogle(srv.Client(), srv.URL, "", rl)
	_, err := g.Translate(context.Background(), "テスト", "en")
	require.NotNil(t, err)

	timing, ok := rl.HostTiming("127.0.0.1")
	require.True(t, ok)
	assert.Equal(t, 1, timing.BackoffCount())
}

func TestGoogle_MalformedBody(t *testing.T) {
	bodies := map[string]string{
		"not json":       `<html>`,
		"empty array":    `[]`,
		"no segments":    `[[],null,"ja"]`,
		"segment object": `[[{"a":1}],null,"ja"]`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			g := backend.NewGoogle(srv.Client(), srv.URL, "", nil)
			_, err := g.Translate(context.Background(), "テスト", "en")
			require.NotNil(t, err)

			var translationErr *translate.TranslationError
			require.True(t, errors.As(err, &translationErr))
			assert.Equal(t, translate.ErrCauseResponseInvalid, translationErr.Cause)
			assert.False(t, translationErr.IsRetryable())
		})
	}
}

func TestGoogle_TransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	g := backend.NewGoogle(nil, endpoint, "", nil)
	_, err := g.Translate(context.Background(), "テスト", "en")
	require.NotNil(t, err)

	var translationErr *translate.TranslationError
	require.True(t, errors.As(err, &translationErr))
	assert.Equal(t, translate.ErrCauseNetworkFailure, translationErr.Cause)
	assert.True(t, translationErr.IsRetryable())
}
