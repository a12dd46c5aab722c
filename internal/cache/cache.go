package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is a TTL-based read-through cache for upstream API responses.
// Implementations never surface I/O errors: a failing backend behaves
// like an empty cache and every request falls through to the source.
type Store interface {
	// Get returns the cached payload for the canonicalized key parts,
	// or false when the entry is absent, expired or unreadable.
	Get(ctx context.Context, keyParts []string) ([]byte, bool)
	// Put stores the payload under the canonicalized key parts,
	// replacing any existing entry.
	Put(ctx context.Context, keyParts []string, payload []byte)
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) int
}

// Key derives the deterministic cache key for a request: the parts are
// sorted, joined and hashed so that equivalent requests share an entry
// regardless of argument order.
func Key(parts []string) string {
	sorted := make([]string, len(parts))
	copy(sorted, parts)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(sum[:])[:32]
}

// entry is the stored record shape. StoredAt and Signature exist for
// diagnostics only; freshness is judged by the backend's own write
// time, never by the embedded timestamp.
type entry struct {
	StoredAt  time.Time       `json:"stored_at"`
	Signature string          `json:"request_signature"`
	Payload   json.RawMessage `json:"payload"`
}

func newEntry(keyParts []string, payload []byte) entry {
	return entry{
		StoredAt:  time.Now().UTC(),
		Signature: strings.Join(keyParts, "|"),
		Payload:   json.RawMessage(payload),
	}
}

// Stats counts cache outcomes.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// statsCounter guards the live counters; stores hand out value copies
// through Snapshot.
type statsCounter struct {
	mu sync.Mutex
	s  Stats
}

func (c *statsCounter) hit()  { c.mu.Lock(); c.s.Hits++; c.mu.Unlock() }
func (c *statsCounter) miss() { c.mu.Lock(); c.s.Misses++; c.mu.Unlock() }
func (c *statsCounter) set()  { c.mu.Lock(); c.s.Sets++; c.mu.Unlock() }

// Snapshot returns a copy safe to read concurrently.
func (c *statsCounter) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
