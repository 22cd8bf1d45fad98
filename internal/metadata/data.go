package metadata

import (
	"time"
)

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause is for observability only.
	 - It must never be used to derive retry, continuation, or abort decisions.
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Component packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.
  - Used as a safe fallback.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - Request timeouts
  - DNS resolution failures
  - Connection resets
  - Upstream 5xx responses

# CauseUpstreamRejection

Meaning:
  - The upstream API answered but declined the request.

Examples:
  - 404 for an unknown category or item index
  - 429 rate limiting
  - Redirects beyond the single permitted hop

# CauseContentInvalid

Meaning:
  - A payload was obtained but could not be decoded meaningfully.

Examples:
  - Malformed JSON from the upstream API
  - Corrupt durable cache records

# CauseStorageFailure

Meaning:
  - Failure while persisting or reading durable cache entries.

Examples:
  - Disk full
  - Write permission errors
  - Filesystem I/O failures

# CauseInvalidInput

Meaning:
  - The caller supplied input the operation cannot act on.

Examples:
  - Unknown category names
  - Empty search queries
*/
const (
	CauseUnknown = iota
	CauseNetworkFailure
	CauseUpstreamRejection
	CauseContentInvalid
	CauseStorageFailure
	CauseInvalidInput
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseUpstreamRejection:
		return "upstream_rejection"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

type AttributeKey string

const (
	AttrURL      AttributeKey = "url"
	AttrKey      AttributeKey = "key"
	AttrCategory AttributeKey = "category"
	AttrIndex    AttributeKey = "index"
	AttrPath     AttributeKey = "path"
	AttrMessage  AttributeKey = "message"
	AttrQuery    AttributeKey = "query"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

// CacheOutcome labels the result of a single cache lookup or write.
type CacheOutcome string

const (
	CacheHit     CacheOutcome = "hit"
	CacheMiss    CacheOutcome = "miss"
	CacheExpired CacheOutcome = "expired"
	CacheStored  CacheOutcome = "stored"
)

/*
warmStats
  - Represents a terminal, derived summary of one completed warm-up lane
  - Contains only aggregate counts and durations
  - Is computed by the prefetcher after the lane finishes
  - Must not influence scheduling or further warm-up decisions
*/
type warmStats struct {
	category   string
	itemsTotal int
	fetched    int
	failed     int
	durationMs int64
}

type fetchEvent struct {
	fetchURL   string
	httpStatus int
	duration   time.Duration
	retryCount int
}
