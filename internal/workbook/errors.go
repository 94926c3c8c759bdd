package workbook

import (
	"fmt"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

type WorkbookErrorCause string

const (
	ErrCauseCellWrite   WorkbookErrorCause = "cell write failed"
	ErrCauseLayout      WorkbookErrorCause = "sheet layout failed"
	ErrCauseEncode      WorkbookErrorCause = "workbook encoding failed"
	ErrCauseWriteFailed WorkbookErrorCause = "workbook file write failed"
)

type WorkbookError struct {
	Message   string
	Retryable bool
	Cause     WorkbookErrorCause
	Path      string
}

func (e *WorkbookError) Error() string {
	return fmt.Sprintf("workbook error: %s: %s", e.Cause, e.Message)
}

func (e *WorkbookError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapWorkbookErrorToMetadataCause(err *WorkbookError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseWriteFailed, ErrCauseEncode:
		return metadata.CauseStorageFailure
	case ErrCauseCellWrite, ErrCauseLayout:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
