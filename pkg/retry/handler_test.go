package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/retry"
	"github.com/rohmanhakim/booth-archiver/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastParams(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(
		time.Millisecond,
		time.Millisecond,
		42,
		maxAttempts,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, 5*time.Millisecond),
	)
}

type mockError struct {
	msg       string
	retryable bool
}

func (m *mockError) Error() string { return m.msg }

func (m *mockError) Severity() failure.Severity {
	if m.retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (m *mockError) IsRetryable() bool { return m.retryable }

// severityOnly has no IsRetryable method; retry falls back to Severity.
type severityOnly struct{ sev failure.Severity }

func (s severityOnly) Error() string               { return "severity only" }
func (s severityOnly) Severity() failure.Severity { return s.sev }

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	result := retry.Retry(context.Background(), fastParams(3), func() (string, failure.ClassifiedError) {
		calls++
		return "success", nil
	})

	require.True(t, result.IsSuccess())
	assert.Equal(t, "success", result.Value())
	assert.Equal(t, 1, result.Attempts())
	assert.Equal(t, 1, calls)
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	calls := 0
	result := retry.Retry(context.Background(), fastParams(5), func() (string, failure.ClassifiedError) {
		calls++
		if calls < 3 {
			return "", &mockError{msg: "transient", retryable: true}
		}
		return "ok", nil
	})

	require.True(t, result.IsSuccess())
	assert.Equal(t, "ok", result.Value())
	assert.Equal(t, 3, result.Attempts())
}

func TestRetry_NonRetryableReturnsImmediately(t *testing.T) {
	expected := &mockError{msg: "fatal", retryable: false}
	calls := 0
	result := retry.Retry(context.Background(), fastParams(5), func() (string, failure.ClassifiedError) {
		calls++
		return "", expected
	})

	require.True(t, result.IsFailure())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, result.Attempts())
	assert.Same(t, expected, result.Err())
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	calls := 0
	last := &mockError{msg: "still failing", retryable: true}
	result := retry.Retry(context.Background(), fastParams(3), func() (int, failure.ClassifiedError) {
		calls++
		return 0, last
	})

	require.True(t, result.IsFailure())
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Attempts())

	var retryErr *retry.RetryError
	require.True(t, errors.As(result.Err(), &retryErr))
	assert.Equal(t, retry.ErrExhaustedAttempts, retryErr.Cause)
	assert.Equal(t, failure.SeverityRecoverable, retryErr.Severity())
	assert.ErrorIs(t, result.Err(), last)
}

func TestRetry_ZeroAttempts(t *testing.T) {
	calls := 0
	result := retry.Retry(context.Background(), fastParams(0), func() (int, failure.ClassifiedError) {
		calls++
		return 1, nil
	})

	require.True(t, result.IsFailure())
	assert.Zero(t, calls)

	var retryErr *retry.RetryError
	require.True(t, errors.As(result.Err(), &retryErr))
	assert.Equal(t, retry.ErrZeroAttempt, retryErr.Cause)
	assert.Equal(t, failure.SeverityFatal, retryErr.Severity())
}

func TestRetry_SeverityFallback(t *testing.T) {
	tests := []struct {
		name      string
		sev       failure.Severity
		wantCalls int
	}{
		{name: "recoverable retries", sev: failure.SeverityRecoverable, wantCalls: 2},
		{name: "fatal stops", sev: failure.SeverityFatal, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			retry.Retry(context.Background(), fastParams(2), func() (int, failure.ClassifiedError) {
				calls++
				return 0, severityOnly{sev: tt.sev}
			})
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRetry_ContextCanceledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	params := retry.NewRetryParam(time.Hour, 0, 1, 5, timeutil.NewBackoffParam(time.Hour, 2.0, time.Hour))

	calls := 0
	result := retry.Retry(ctx, params, func() (int, failure.ClassifiedError) {
		calls++
		cancel()
		return 0, &mockError{msg: "transient", retryable: true}
	})

	require.True(t, result.IsFailure())
	assert.Equal(t, 1, calls)

	var retryErr *retry.RetryError
	require.True(t, errors.As(result.Err(), &retryErr))
	assert.Equal(t, retry.ErrCanceled, retryErr.Cause)
}
