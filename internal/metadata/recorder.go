package metadata

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
)

/*
Metadata Collected
- Fetch timestamps and HTTP status codes
- Cache hit/miss/expiry outcomes
- Warm-up lane summaries
- Failure diagnostics

Structured logging is preferred; events are emitted as logfmt lines.

Determinism guarantees:
 - Metadata does not affect control flow
 - A failed or dropped event never fails the operation that emitted it
 - Output is stable given identical inputs

Metadata is write-only.
No component may read metadata to influence cache, fetch, or search decisions.
*/

// MetadataSink is the write-only event surface handed to every component.
type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		errorString string,
		attrs []Attribute,
	)
	RecordFetch(
		fetchURL string,
		httpStatus int,
		duration time.Duration,
		retryCount int,
	)
	RecordCacheEvent(
		key string,
		outcome CacheOutcome,
	)
}

// WarmFinalizer records the terminal summary of a warm-up lane.
//
// Contract:
//   - MUST be called exactly once per warmed category.
//   - MUST be called only after the lane has finished (all item fetches
//     returned or were skipped).
//   - The recorded stats MUST be derived from the lane's own counters,
//     not read back from the sink.
type WarmFinalizer interface {
	RecordWarmStats(
		category string,
		itemsTotal int,
		fetched int,
		failed int,
		duration time.Duration,
	)
}

/*
Recorder captures structured events and encodes them as logfmt lines.
It must not:
- affect control flow
- impose a logging backend beyond the writer it is given
Ordering guarantees:
- Events are recorded synchronously in the order they are received
  from a single goroutine.
- No global ordering across warm-up lanes is guaranteed.
*/
type Recorder struct {
	mu       sync.Mutex
	out      io.Writer
	workerID string
}

func NewRecorder(workerID string) Recorder {
	return Recorder{
		out:      os.Stderr,
		workerID: workerID,
	}
}

// NewRecorderWithWriter routes events to the given writer. Used by tests.
func NewRecorderWithWriter(workerID string, out io.Writer) Recorder {
	return Recorder{
		out:      out,
		workerID: workerID,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	pairs := []interface{}{
		"event", "error",
		"ts", observedAt.UTC().Format(time.RFC3339),
		"worker", r.workerID,
		"pkg", packageName,
		"action", action,
		"cause", cause.String(),
		"error", errorString,
	}
	for _, attr := range attrs {
		pairs = append(pairs, string(attr.Key), attr.Value)
	}
	r.emit(pairs...)
}

func (r *Recorder) RecordFetch(
	fetchURL string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
	event := fetchEvent{
		fetchURL:   fetchURL,
		httpStatus: httpStatus,
		duration:   duration,
		retryCount: retryCount,
	}
	r.emit(
		"event", "fetch",
		"worker", r.workerID,
		"url", event.fetchURL,
		"status", event.httpStatus,
		"duration_ms", event.duration.Milliseconds(),
		"retries", event.retryCount,
	)
}

func (r *Recorder) RecordCacheEvent(key string, outcome CacheOutcome) {
	r.emit(
		"event", "cache",
		"worker", r.workerID,
		"key", key,
		"outcome", string(outcome),
	)
}

func (r *Recorder) RecordWarmStats(
	category string,
	itemsTotal int,
	fetched int,
	failed int,
	duration time.Duration,
) {
	stats := warmStats{
		category:   category,
		itemsTotal: itemsTotal,
		fetched:    fetched,
		failed:     failed,
		durationMs: duration.Milliseconds(),
	}
	r.emit(
		"event", "warm_done",
		"worker", r.workerID,
		"category", stats.category,
		"items", stats.itemsTotal,
		"fetched", stats.fetched,
		"failed", stats.failed,
		"duration_ms", stats.durationMs,
	)
}

// emit encodes one event as a logfmt line. Encoding failures are swallowed:
// observability must never fail the operation that produced the event.
func (r *Recorder) emit(pairs ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	enc := logfmt.NewEncoder(r.out)
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := enc.EncodeKeyval(pairs[i], pairs[i+1]); err != nil {
			return
		}
	}
	_ = enc.EndRecord()
}

// NoopSink discards every event. Used by tests and by callers that opt out
// of observability entirely.
type NoopSink struct{}

func (s *NoopSink) RecordError(time.Time, string, string, ErrorCause, string, []Attribute) {}

func (s *NoopSink) RecordFetch(string, int, time.Duration, int) {}

func (s *NoopSink) RecordCacheEvent(string, CacheOutcome) {}

func (s *NoopSink) RecordWarmStats(string, int, int, int, time.Duration) {}
