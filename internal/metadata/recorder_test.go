package metadata_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/dnd-navigator/internal/metadata"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_RecordCacheEvent_EmitsLogfmt(t *testing.T) {
	var buf bytes.Buffer
	r := metadata.NewRecorderWithWriter("test-worker", &buf)

	r.RecordCacheEvent("items_spells", metadata.CacheHit)

	line := buf.String()
	assert.Contains(t, line, "event=cache")
	assert.Contains(t, line, "worker=test-worker")
	assert.Contains(t, line, "key=items_spells")
	assert.Contains(t, line, "outcome=hit")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestRecorder_RecordFetch_IncludesStatusAndDuration(t *testing.T) {
	var buf bytes.Buffer
	r := metadata.NewRecorderWithWriter("test-worker", &buf)

	r.RecordFetch("https://www.dnd5eapi.co/api/spells", 200, 1500*time.Millisecond, 2)

	line := buf.String()
	assert.Contains(t, line, "event=fetch")
	assert.Contains(t, line, "status=200")
	assert.Contains(t, line, "duration_ms=1500")
	assert.Contains(t, line, "retries=2")
}

func TestRecorder_RecordError_CarriesCauseAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	r := metadata.NewRecorderWithWriter("test-worker", &buf)

	r.RecordError(
		time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		"fetcher",
		"ApiFetcher.FetchItem",
		metadata.CauseUpstreamRejection,
		"item not found",
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrCategory, "spells"),
			metadata.NewAttr(metadata.AttrIndex, "unknown-index"),
		},
	)

	line := buf.String()
	assert.Contains(t, line, "event=error")
	assert.Contains(t, line, "cause=upstream_rejection")
	assert.Contains(t, line, "category=spells")
	assert.Contains(t, line, "index=unknown-index")
	assert.Contains(t, line, "ts=2025-03-01T12:00:00Z")
}

func TestRecorder_RecordWarmStats(t *testing.T) {
	var buf bytes.Buffer
	r := metadata.NewRecorderWithWriter("warm-spells", &buf)

	r.RecordWarmStats("spells", 319, 310, 9, 42*time.Second)

	line := buf.String()
	assert.Contains(t, line, "event=warm_done")
	assert.Contains(t, line, "category=spells")
	assert.Contains(t, line, "items=319")
	assert.Contains(t, line, "fetched=310")
	assert.Contains(t, line, "failed=9")
}

func TestErrorCause_String_UnknownFallback(t *testing.T) {
	assert.Equal(t, "unknown", metadata.ErrorCause(999).String())
	assert.Equal(t, "invalid_input", metadata.ErrorCause(metadata.CauseInvalidInput).String())
}
