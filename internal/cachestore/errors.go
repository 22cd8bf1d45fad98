package cachestore

import (
	"errors"

	"github.com/rohmanhakim/dnd-navigator/internal/metadata"
	"github.com/rohmanhakim/dnd-navigator/pkg/fileutil"
)

// mapDiskErrorToMetadataCause maps durable-layer failures to the canonical
// metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapDiskErrorToMetadataCause(err error) metadata.ErrorCause {
	var fileErr *fileutil.FileError
	if errors.As(err, &fileErr) {
		return metadata.CauseStorageFailure
	}
	return metadata.CauseUnknown
}
