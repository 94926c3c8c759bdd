package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerSettings controls when the breaker opens and how long it stays open.
type BreakerSettings struct {
	// consecutive transient failures before the breaker opens
	MaxFailures uint32
	OpenTimeout time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// Breaker stops calling a backend that keeps failing transiently.
// While open, every call fails fast with ErrCauseBackendUnavailable and the
// translator falls back to the original text for the rest of the window.
//
// Only retryable failures count against the backend: a rejected request or a
// reply in the wrong language says nothing about the backend's health.
type Breaker struct {
	next    translate.Backend
	breaker *gobreaker.CircuitBreaker
}

func NewBreaker(next translate.Backend, settings BreakerSettings, logger logrus.FieldLogger) *Breaker {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultBreakerSettings().MaxFailures
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var classified failure.ClassifiedError
			if errors.As(err, &classified) {
				return !isTransient(classified)
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"backend": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("translation backend breaker changed state")
			}
		},
	})
	return &Breaker{next: next, breaker: cb}
}

func (b *Breaker) Name() string {
	return b.next.Name()
}

func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}

func (b *Breaker) Translate(ctx context.Context, text string, targetLang string) (string, failure.ClassifiedError) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		translated, translateErr := b.next.Translate(ctx, text, targetLang)
		if translateErr != nil {
			return nil, translateErr
		}
		return translated, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &translate.TranslationError{
				Message:   fmt.Sprintf("breaker is %s", b.breaker.State()),
				Retryable: true,
				Cause:     translate.ErrCauseBackendUnavailable,
				Backend:   b.next.Name(),
			}
		}
		var classified failure.ClassifiedError
		if errors.As(err, &classified) {
			return "", classified
		}
		return "", &translate.TranslationError{
			Message: err.Error(),
			Cause:   translate.ErrCauseNetworkFailure,
			Backend: b.next.Name(),
		}
	}
	return out.(string), nil
}

func isTransient(err failure.ClassifiedError) bool {
	type hasRetryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(hasRetryable); ok {
		return r.IsRetryable()
	}
	return err.Severity() == failure.SeverityRecoverable
}
