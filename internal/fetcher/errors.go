package fetcher

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/dnd-navigator/internal/metadata"
	"github.com/rohmanhakim/dnd-navigator/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout         = "timeout"
	ErrCauseNetworkFailure  = "network issues"
	ErrCauseNotFound        = "not found"
	ErrCauseRequestTooMany  = "too many requests"
	ErrCauseRequest5xx      = "5xx"
	ErrCauseRedirectInvalid = "unusable redirect"
	ErrCauseDecodeFailure   = "malformed payload"
	ErrCauseUnknownCategory = "unknown category"
)

type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s", e.Cause)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// IsNotFound reports whether err is the structured "entity does not exist
// upstream" result. Callers use it to distinguish absent data from an
// unavailable upstream.
func IsNotFound(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Cause == ErrCauseNotFound
	}
	return false
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseRequest5xx:
		return metadata.CauseNetworkFailure
	case ErrCauseNotFound, ErrCauseRequestTooMany, ErrCauseRedirectInvalid:
		return metadata.CauseUpstreamRejection
	case ErrCauseDecodeFailure:
		return metadata.CauseContentInvalid
	case ErrCauseUnknownCategory:
		return metadata.CauseInvalidInput
	default:
		return metadata.CauseUnknown
	}
}
