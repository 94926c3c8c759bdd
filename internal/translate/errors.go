package translate

import (
	"fmt"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

type TranslationErrorCause string

const (
	ErrCauseNetworkFailure     TranslationErrorCause = "network failure"
	ErrCauseResponseInvalid    TranslationErrorCause = "response could not be parsed"
	ErrCauseLanguageMismatch   TranslationErrorCause = "language mismatch"
	ErrCauseBackendUnavailable TranslationErrorCause = "backend unavailable"
	ErrCauseRejected           TranslationErrorCause = "request rejected"
)

type TranslationError struct {
	Message   string
	Retryable bool
	Cause     TranslationErrorCause
	// Backend names the backend that failed, e.g. "google".
	Backend string
	// Requested and Returned are set for language mismatches.
	Requested  string
	Returned   string
	StatusCode int
}

func (e *TranslationError) Error() string {
	if e.Cause == ErrCauseLanguageMismatch {
		return fmt.Sprintf("translation error: %s: requested %q, got %q", e.Cause, e.Requested, e.Returned)
	}
	return fmt.Sprintf("translation error: %s: %s", e.Cause, e.Message)
}

func (e *TranslationError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *TranslationError) IsRetryable() bool {
	return e.Retryable
}

// mapTranslationErrorToMetadataCause is observational only.
func mapTranslationErrorToMetadataCause(err *TranslationError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNetworkFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseRejected:
		return metadata.CausePolicyDisallow
	case ErrCauseResponseInvalid, ErrCauseLanguageMismatch, ErrCauseBackendUnavailable:
		return metadata.CauseTranslationFailure
	default:
		return metadata.CauseUnknown
	}
}
