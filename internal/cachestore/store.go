package cachestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rohmanhakim/dnd-navigator/internal/metadata"
	"github.com/rohmanhakim/dnd-navigator/pkg/fileutil"
	"github.com/rohmanhakim/dnd-navigator/pkg/hashutil"
)

/*
Responsibilities

- Hold JSON payloads keyed by cache key, with a per-entry TTL
- Optionally write entries through to durable storage
- Reload durable entries transparently on a memory miss
- Tolerate corrupt or missing durable records as plain misses

Store Semantics

- Expiry is evaluated lazily on Get; nothing sweeps entries eagerly
- A Set overwrites memory, then writes through; concurrent writers to the
  same key resolve last-write-wins via the atomic rename discipline
- Disk failures never reach the caller; they downgrade to "not cached"
  and are recorded

The store knows nothing about the upstream API. Keys arrive fully formed
from the fetcher, shaped `items_<category>` or `item_<category>_<index>`;
the store parses that shape only to group durable files per category.
*/

type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	persistent bool
	cacheDir   string
	sink       metadata.MetadataSink
	now        func() time.Time
}

func NewStore(
	ttl time.Duration,
	persistent bool,
	cacheDir string,
	sink metadata.MetadataSink,
) *Store {
	return &Store{
		entries:    make(map[string]entry),
		ttl:        ttl,
		persistent: persistent,
		cacheDir:   cacheDir,
		sink:       sink,
		now:        time.Now,
	}
}

// NewStoreWithClock creates a Store with an injected clock.
// This allows test packages to control expiry without sleeping.
func NewStoreWithClock(
	ttl time.Duration,
	persistent bool,
	cacheDir string,
	sink metadata.MetadataSink,
	now func() time.Time,
) *Store {
	s := NewStore(ttl, persistent, cacheDir, sink)
	s.now = now
	return s
}

// Get returns the payload stored under key and true only when an entry
// exists and is not expired. An expired or missing entry yields found=false
// with no side effect; the caller must refetch. When persistence is enabled
// and memory lacks the key, the durable record is consulted before
// declaring a miss.
func (s *Store) Get(key string) ([]byte, bool) {
	now := s.now()

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if ok {
		if e.isExpired(now) {
			s.sink.RecordCacheEvent(key, metadata.CacheExpired)
			return nil, false
		}
		s.sink.RecordCacheEvent(key, metadata.CacheHit)
		return cloneBytes(e.value), true
	}

	if s.persistent {
		if value, ok := s.loadFromDisk(key, now); ok {
			s.sink.RecordCacheEvent(key, metadata.CacheHit)
			return value, true
		}
	}

	s.sink.RecordCacheEvent(key, metadata.CacheMiss)
	return nil, false
}

// Set stores the payload under key with the configured TTL, overwriting any
// previous entry. When persistence is enabled the entry is written through
// to durable storage before Set returns. Disk failures are recorded and
// swallowed: the entry stays served from memory.
func (s *Store) Set(key string, value []byte) {
	e := entry{
		value:     cloneBytes(value),
		createdAt: s.now(),
		ttl:       s.ttl,
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()

	s.sink.RecordCacheEvent(key, metadata.CacheStored)

	if s.persistent {
		s.writeThrough(key, e)
	}
}

// Size returns the number of in-memory entries, expired ones included.
// Primarily useful for tests and diagnostics.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

func (s *Store) writeThrough(key string, e entry) {
	record := diskRecord{
		Payload:    json.RawMessage(e.value),
		CreatedAt:  e.createdAt,
		TTLSeconds: int64(e.ttl / time.Second),
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		s.sink.RecordError(
			s.now(),
			"cachestore",
			"Store.Set",
			metadata.CauseContentInvalid,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrKey, key),
			},
		)
		return
	}

	path := s.diskPath(key)
	if writeErr := fileutil.WriteFileAtomic(path, encoded); writeErr != nil {
		s.sink.RecordError(
			s.now(),
			"cachestore",
			"Store.Set",
			mapDiskErrorToMetadataCause(writeErr),
			writeErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrKey, key),
				metadata.NewAttr(metadata.AttrPath, path),
			},
		)
	}
}

// loadFromDisk attempts to revive a durable record into memory. Every
// failure mode (absent file, unreadable file, malformed record, expired
// record) degrades to a miss.
func (s *Store) loadFromDisk(key string, now time.Time) ([]byte, bool) {
	path := s.diskPath(key)

	encoded, err := os.ReadFile(path)
	if err != nil {
		// Absent is the common case and not worth recording
		if !os.IsNotExist(err) {
			s.sink.RecordError(
				s.now(),
				"cachestore",
				"Store.Get",
				metadata.CauseStorageFailure,
				err.Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrKey, key),
					metadata.NewAttr(metadata.AttrPath, path),
				},
			)
		}
		return nil, false
	}

	var record diskRecord
	if err := json.Unmarshal(encoded, &record); err != nil {
		// Corruption tolerance: a half-written or damaged record is a miss
		s.sink.RecordError(
			s.now(),
			"cachestore",
			"Store.Get",
			metadata.CauseContentInvalid,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrKey, key),
				metadata.NewAttr(metadata.AttrPath, path),
			},
		)
		return nil, false
	}

	revived := entry{
		value:     []byte(record.Payload),
		createdAt: record.CreatedAt,
		ttl:       time.Duration(record.TTLSeconds) * time.Second,
	}
	if revived.isExpired(now) {
		return nil, false
	}

	s.mu.Lock()
	// A concurrent Set may have landed while we read the disk; it is
	// fresher than the durable record, so it wins.
	if _, exists := s.entries[key]; !exists {
		s.entries[key] = revived
	}
	s.mu.Unlock()

	return cloneBytes(revived.value), true
}

func (s *Store) diskPath(key string) string {
	return filepath.Join(s.cacheDir, keyNamespace(key), hashutil.FilenameHash(key)+".json")
}

// keyNamespace extracts the category segment from a cache key so durable
// files group per category. Keys without the expected shape fall into a
// shared bucket.
func keyNamespace(key string) string {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	return "misc"
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
