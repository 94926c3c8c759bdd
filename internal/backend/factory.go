package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rohmanhakim/booth-archiver/internal/logging"
	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/pkg/limiter"
	"github.com/rohmanhakim/booth-archiver/pkg/retry"
	"github.com/sirupsen/logrus"
)

const (
	KindGoogle = "google"
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

// Settings selects and configures one backend. Only the fields of the
// selected kind are read.
type Settings struct {
	Kind string

	GoogleEndpoint string
	UserAgent      string
	Limiter        limiter.RateLimiter

	APIKey  string
	BaseURL string
	Model   string

	HTTPClient *http.Client
	Retry      retry.RetryParam
	Breaker    BreakerSettings
}

// New builds the selected backend wrapped in retry and a circuit breaker:
// Breaker(Retrying(backend)).
func New(ctx context.Context, settings Settings, logger logrus.FieldLogger) (translate.Backend, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var base translate.Backend
	switch strings.ToLower(settings.Kind) {
	case "", KindGoogle:
		base = NewGoogle(settings.HTTPClient, settings.GoogleEndpoint, settings.UserAgent, settings.Limiter)
	case KindOpenAI:
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, KindOpenAI)
		}
		base = NewOpenAI(settings.APIKey, settings.BaseURL, settings.Model, settings.HTTPClient)
	case KindGemini:
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, KindGemini)
		}
		gemini, err := NewGemini(ctx, settings.APIKey, settings.BaseURL, settings.Model, settings.HTTPClient)
		if err != nil {
			return nil, err
		}
		base = gemini
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, settings.Kind)
	}

	var wrapped translate.Backend = base
	if settings.Retry.MaxAttempts > 0 {
		wrapped = NewRetrying(wrapped, settings.Retry)
	}
	wrapped = NewBreaker(wrapped, settings.Breaker, logger)

	logger.WithField("backend", base.Name()).Debug("translation backend ready")
	return wrapped, nil
}
