package translate

import (
	"context"
	"errors"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/cache"
	"github.com/rohmanhakim/booth-archiver/internal/logging"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/sirupsen/logrus"
)

/*
Translator translates text to one target language, leaving embedded URLs
byte for byte intact and memoizing every whole string and sub-span.

Cache keys and cached values are kept in normalized form (tab placeholder
in place of tabs); callers only ever see denormalized text.

The cache lock is taken per Get/Add and never held across recursion or
backend calls, so any number of goroutines may share one Translator.
*/
type Translator struct {
	backend    Backend
	cache      *cache.Handle
	targetLang string
	contextLog *ContextLog
	sink       metadata.MetadataSink
	logger     logrus.FieldLogger
}

type Option func(*Translator)

func WithContextLog(log *ContextLog) Option {
	return func(t *Translator) {
		t.contextLog = log
	}
}

func WithMetadataSink(sink metadata.MetadataSink) Option {
	return func(t *Translator) {
		t.sink = sink
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Translator) {
		t.logger = logger
	}
}

func NewTranslator(backend Backend, handle *cache.Handle, targetLang string, opts ...Option) *Translator {
	t := &Translator{
		backend:    backend,
		cache:      handle,
		targetLang: targetLang,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.sink == nil {
		t.sink = &metadata.NoopSink{}
	}
	if t.logger == nil {
		t.logger = logging.Discard()
	}
	t.logger = t.logger.WithFields(logrus.Fields{
		"backend":  backend.Name(),
		"language": targetLang,
	})
	return t
}

func (t *Translator) TargetLang() string {
	return t.targetLang
}

// Translate returns text translated to the target language.
func (t *Translator) Translate(ctx context.Context, text string) (string, failure.ClassifiedError) {
	return t.TranslateWithAttrs(ctx, text, nil)
}

// TranslateWithAttrs is Translate, with attrs attached to any recorded failure.
func (t *Translator) TranslateWithAttrs(
	ctx context.Context,
	text string,
	attrs []metadata.Attribute,
) (string, failure.ClassifiedError) {
	result, err := t.resolve(ctx, text)
	if err != nil {
		t.recordError(err, attrs)
		return "", err
	}
	return Denormalize(result), nil
}

// resolve works in normalized space end to end.
func (t *Translator) resolve(ctx context.Context, text string) (string, failure.ClassifiedError) {
	normalized := Normalize(text)
	if normalized == "" {
		return "", nil
	}

	if cached, ok := t.cache.Get(ctx, normalized); ok {
		return cached, nil
	}

	left, url, right, found := SplitAtURL(normalized)
	if !found {
		return t.translatePlain(ctx, normalized)
	}

	translatedLeft, err := t.resolve(ctx, left)
	if err != nil {
		return "", err
	}
	translatedRight, err := t.resolve(ctx, right)
	if err != nil {
		return "", err
	}

	result := joinSpans(translatedLeft, url, translatedRight)

	if t.contextLog != nil {
		t.contextLog.Append(UrlTranslationContext{
			Original:        Denormalize(normalized),
			Left:            Denormalize(left),
			TranslatedLeft:  Denormalize(translatedLeft),
			URL:             url,
			Right:           Denormalize(right),
			TranslatedRight: Denormalize(translatedRight),
			Result:          Denormalize(result),
		})
	}

	t.remember(ctx, normalized, result)
	t.remember(ctx, url, url)
	if l := Normalize(left); l != "" {
		t.remember(ctx, l, translatedLeft)
	}
	if r := Normalize(right); r != "" {
		t.remember(ctx, r, translatedRight)
	}

	t.logger.WithFields(logrus.Fields{
		"url":   url,
		"left":  len(left),
		"right": len(right),
	}).Debug("translated around url")

	return result, nil
}

func (t *Translator) translatePlain(ctx context.Context, normalized string) (string, failure.ClassifiedError) {
	translated, err := t.backend.Translate(ctx, normalized, t.targetLang)
	if err != nil {
		return "", err
	}
	t.remember(ctx, normalized, translated)
	return translated, nil
}

// remember stores key -> value. Auto-flush failures are logged and recorded;
// the entry itself is already in memory, so translation carries on.
func (t *Translator) remember(ctx context.Context, key, value string) {
	if err := t.cache.Add(ctx, key, value); err != nil {
		t.logger.WithError(err).Warn("translation cache flush failed")
		t.sink.RecordError(
			time.Now(),
			"translate",
			"Translator.remember",
			metadata.CauseStorageFailure,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrCachePath, t.cache.Path()),
			},
		)
	}
}

func (t *Translator) recordError(err failure.ClassifiedError, attrs []metadata.Attribute) {
	cause := metadata.CauseUnknown
	var translationErr *TranslationError
	if errors.As(err, &translationErr) {
		cause = mapTranslationErrorToMetadataCause(translationErr)
	}
	all := append([]metadata.Attribute{
		metadata.NewAttr(metadata.AttrBackend, t.backend.Name()),
		metadata.NewAttr(metadata.AttrLanguage, t.targetLang),
	}, attrs...)
	t.sink.RecordError(
		time.Now(),
		"translate",
		"Translator.Translate",
		cause,
		err.Error(),
		all,
	)
}

// joinSpans always places one space on each side of url, even when a span
// is empty or the source had no whitespace there.
func joinSpans(left, url, right string) string {
	return left + " " + url + " " + right
}
