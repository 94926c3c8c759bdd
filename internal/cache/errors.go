package cache

import (
	"fmt"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

type CacheErrorCause string

const (
	ErrCauseNoPath        CacheErrorCause = "no cache path"
	ErrCauseAuditMismatch CacheErrorCause = "stats do not reconcile"
	ErrCauseHandleLeak    CacheErrorCause = "cache handle leaked"
)

type CacheError struct {
	Message   string
	Retryable bool
	Cause     CacheErrorCause
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: %s: %s", e.Cause, e.Message)
}

func (e *CacheError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// LockError reports misuse of a Handle: nested lock acquisition within one call
// chain, or use of a released handle. It is raised with panic, never returned.
type LockError struct {
	Op   string
	Held string
}

func (e *LockError) Error() string {
	if e.Held == "" {
		return fmt.Sprintf("cache lock error: %s on released handle", e.Op)
	}
	return fmt.Sprintf("cache lock error: %s while holding %s lock", e.Op, e.Held)
}

func (e *LockError) Severity() failure.Severity {
	return failure.SeverityFatal
}

// mapCacheErrorToMetadataCause is observational only.
func mapCacheErrorToMetadataCause(err *CacheError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseAuditMismatch, ErrCauseHandleLeak:
		return metadata.CauseInvariantViolation
	case ErrCauseNoPath:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
