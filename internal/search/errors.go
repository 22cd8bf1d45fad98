package search

import (
	"fmt"

	"github.com/rohmanhakim/dnd-navigator/pkg/failure"
)

type SearchErrorCause string

const (
	ErrCauseEmptyQuery = "empty query"
)

type SearchError struct {
	Message string
	Cause   SearchErrorCause
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search error: %s", e.Cause)
}

// Search errors are caller mistakes; retrying the same query cannot help.
func (e *SearchError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *SearchError) IsRetryable() bool {
	return false
}
