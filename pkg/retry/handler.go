package retry

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/timeutil"
)

// Retry executes fn up to MaxAttempts times, sleeping with exponential backoff
// and jitter between attempts. Only retryable errors trigger another attempt.
// Cancelling ctx aborts the wait between attempts.
func Retry[T any](
	ctx context.Context,
	retryParam RetryParam,
	fn func() (T, failure.ClassifiedError),
) Result[T] {
	if retryParam.MaxAttempts < 1 {
		return Result[T]{err: &RetryError{
			Message:   "max attempt cannot be 0",
			Cause:     ErrZeroAttempt,
			Retryable: false,
		}}
	}

	rng := rand.New(rand.NewSource(retryParam.RandomSeed))
	var lastErr failure.ClassifiedError

	for attempt := 1; attempt <= retryParam.MaxAttempts; attempt++ {
		value, err := fn()
		if err == nil {
			return Result[T]{value: value, attempts: attempt}
		}
		lastErr = err

		if !isErrorRetryable(err) {
			return Result[T]{err: err, attempts: attempt}
		}
		if attempt == retryParam.MaxAttempts {
			break
		}

		delay := timeutil.ExponentialBackoffDelay(attempt, retryParam.Jitter, rng, retryParam.BackoffParam)
		if delay < retryParam.BaseDelay {
			delay = retryParam.BaseDelay
		}
		if sleepErr := timeutil.SleepContext(ctx, delay); sleepErr != nil {
			return Result[T]{
				err: &RetryError{
					Message: fmt.Sprintf("stopped after %d attempts: %v", attempt, sleepErr),
					Cause:   ErrCanceled,
					Last:    lastErr,
				},
				attempts: attempt,
			}
		}
	}

	return Result[T]{
		err: &RetryError{
			Message:   fmt.Sprintf("exhausted %d attempts. Last error: %v", retryParam.MaxAttempts, lastErr),
			Cause:     ErrExhaustedAttempts,
			Retryable: true,
			Last:      lastErr,
		},
		attempts: retryParam.MaxAttempts,
	}
}

// isErrorRetryable prefers an explicit IsRetryable() and falls back to severity.
func isErrorRetryable(err failure.ClassifiedError) bool {
	type hasRetryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(hasRetryable); ok {
		return r.IsRetryable()
	}
	return err.Severity() == failure.SeverityRecoverable
}
