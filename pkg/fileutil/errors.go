package fileutil

import (
	"fmt"

	"github.com/rohmanhakim/dnd-navigator/pkg/failure"
)

type FileErrorCause string

const (
	ErrCausePathError   FileErrorCause = "path error"
	ErrCauseWriteError  FileErrorCause = "write failed"
	ErrCauseCommitError FileErrorCause = "rename failed"
)

type FileError struct {
	Message   string
	Retryable bool
	Cause     FileErrorCause
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file error: %s", e.Cause)
}

func (e *FileError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
