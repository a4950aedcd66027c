// Package evalcache implements the fixed-capacity evaluation cache
// and the caching batched evaluator that wraps it (spec 4.2). The
// cache itself uses sharded read-write locks, grounded on
// hailam-chessplay/internal/engine/transposition.go's TranspositionTable,
// keyed with github.com/cespare/xxhash/v2 the way that table folds a
// Zobrist hash into a bucket index.
package evalcache

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/xqzero/ccsearch/pkg/network"
)

const shardCount = 256

// Entry is one cached evaluation.
type Entry struct {
	Policy []float32
	Value  float32
}

// Cache is a fixed-capacity map from position key to Entry. Capacity
// is enforced per shard with simple random eviction on overflow,
// which is cheap and, at the shard granularity used here, close
// enough to global LRU for a search cache (evaluations are cheap to
// regenerate, unlike a transposition table's best-move data).
type Cache struct {
	shards   [shardCount]shard
	capacity int // total entries across all shards
}

type shard struct {
	mu      sync.RWMutex
	entries map[uint64]Entry
}

// New creates a cache sized for roughly capacity entries.
func New(capacity int) *Cache {
	c := &Cache{capacity: capacity}
	perShard := max(1, capacity/shardCount)
	for i := range c.shards {
		c.shards[i].entries = make(map[uint64]Entry, perShard)
	}
	return c
}

func (c *Cache) shardFor(key uint64) *shard {
	return &c.shards[key&(shardCount-1)]
}

// Get returns the cached entry for key, if any.
func (c *Cache) Get(key uint64) (Entry, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Put inserts or overwrites the entry for key, evicting an arbitrary
// entry from the same shard if that would exceed the shard's share of
// the configured capacity.
func (c *Cache) Put(key uint64, e Entry) {
	s := c.shardFor(key)
	perShard := max(1, c.capacity/shardCount)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= perShard {
		for k := range s.entries {
			delete(s.entries, k)
			break
		}
	}
	s.entries[key] = e
}

// Len returns the total number of cached entries, for tests and
// diagnostics.
func (c *Cache) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].entries)
		c.shards[i].mu.RUnlock()
	}
	return n
}

// Key folds a position hash together with up to historyLen preceding
// position hashes, per spec 4.2's "cache is keyed by a position hash
// that, when CacheHistoryLength>0, also incorporates the last k
// plies". history is ordered oldest first, so history[len(history)-1]
// is the most recent prior position; only the last historyLen entries
// (at most 8) are used.
func Key(positionHash uint64, history []uint64, historyLen int) uint64 {
	if historyLen <= 0 || len(history) == 0 {
		return positionHash
	}
	if historyLen > len(history) {
		historyLen = len(history)
	}

	var buf [8 * 9]byte // room for the position hash + up to 8 plies
	n := putUint64(buf[:8], positionHash)
	for i := 0; i < historyLen && i < 8; i++ {
		n += putUint64(buf[n:n+8], history[len(history)-1-i])
	}
	return xxhash.Sum64(buf[:n])
}

func putUint64(b []byte, v uint64) int {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return 8
}

// resultFromEntry and entryFromResult convert between the cache's
// storage type and the network package's wire type, kept separate so
// evalcache does not need to import network for its core Cache type
// (only the batched evaluator below does).
func resultFromEntry(e Entry) network.EvalResult {
	return network.EvalResult{Policy: e.Policy, Value: e.Value}
}

func entryFromResult(r network.EvalResult) Entry {
	return Entry{Policy: r.Policy, Value: r.Value}
}
