package cachestore

import (
	"encoding/json"
	"time"
)

// Cache state

// entry is a single cached payload. The TTL is fixed at write time; expiry
// is evaluated lazily on read and entries are never swept eagerly.
type entry struct {
	value     []byte
	createdAt time.Time
	ttl       time.Duration
}

func (e *entry) isExpired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// diskRecord is the durable form of an entry. It carries enough to
// reconstruct expiry after a restart without contacting the upstream API.
// Payload is raw JSON because every value this system caches is a JSON
// payload produced by the fetcher.
type diskRecord struct {
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"createdAt"`
	TTLSeconds int64           `json:"ttlSeconds"`
}
