package fileutil

import (
	"fmt"

	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

type FileErrorCause string

const (
	ErrCausePathError   FileErrorCause = "path error"
	ErrCauseWriteError  FileErrorCause = "write error"
	ErrCauseRenameError FileErrorCause = "rename error"
)

type FileError struct {
	Message   string
	Retryable bool
	Cause     FileErrorCause
	Err       error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file error: %s: %s", e.Cause, e.Message)
}

func (e *FileError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *FileError) Unwrap() error {
	return e.Err
}
