package booth

import (
	"fmt"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

type BoothErrorCause string

const (
	ErrCauseDecodeFailure BoothErrorCause = "response could not be decoded"
	ErrCauseUnknownSource BoothErrorCause = "unknown wishlist source"
)

type BoothError struct {
	Message   string
	Retryable bool
	Cause     BoothErrorCause
	URL       string
}

func (e *BoothError) Error() string {
	return fmt.Sprintf("booth error: %s: %s", e.Cause, e.Message)
}

func (e *BoothError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapBoothErrorToMetadataCause(err *BoothError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseDecodeFailure:
		return metadata.CauseContentInvalid
	case ErrCauseUnknownSource:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
