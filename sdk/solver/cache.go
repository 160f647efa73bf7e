package solver

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/opencoff/golang-lru"

	"github.com/lox/cfrsolve/sdk/errkind"
)

// CacheStats tracks the bounded LRU cache layer's hit/miss/eviction
// counters and peak occupancy, exposed for progress reporting.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	PeakSize  int64
}

// CacheStore wraps a raw Store with a bounded LRU front layer: entries are
// always durable in Store, but Get goes through the cache so that hot
// information sets stay resident without the whole table living in one
// unbounded map. Eviction from the cache does not delete the underlying
// record - it only means the next Get pays a cache miss.
type CacheStore struct {
	store *Store
	cache *lru.Cache
	stats CacheStats

	mu   sync.Mutex
	size int64
}

// CacheConfig configures the bounded cache layer in front of an InfoSetStore.
type CacheConfig struct {
	MaxEntries int
	Eviction   EvictionPolicy
}

// EvictionPolicy names the cache's eviction strategy. Only LRU is backed by
// a real implementation; LFU and FIFO are accepted for configuration
// compatibility but currently alias to LRU, since golang-lru only
// implements recency-based eviction.
type EvictionPolicy int

const (
	EvictionLRU EvictionPolicy = iota
	EvictionLFU
	EvictionFIFO
)

// NewCacheStore builds a cache-fronted info-set store.
func NewCacheStore(cfg CacheConfig) (*CacheStore, error) {
	cs := &CacheStore{store: NewStore()}
	c, err := lru.New(cfg.MaxEntries)
	if err != nil {
		return nil, err
	}
	cs.cache = c
	return cs, nil
}

// Get returns the record for key, creating it with numActions slots on
// first access, and records a cache hit or miss.
func (cs *CacheStore) Get(key string, numActions int) (*InfoSet, error) {
	if v, ok := cs.cache.Get(key); ok {
		e := v.(*InfoSet)
		if e.NumActions != numActions {
			return nil, fmt.Errorf("%w: key %q has %d actions, requested %d",
				errkind.InfoSetShapeMismatch, key, e.NumActions, numActions)
		}
		atomic.AddInt64(&cs.stats.Hits, 1)
		return e, nil
	}
	atomic.AddInt64(&cs.stats.Misses, 1)

	e, err := cs.store.Get(key, numActions)
	if err != nil {
		return nil, err
	}
	evicted := cs.cache.Add(key, e)
	if evicted {
		atomic.AddInt64(&cs.stats.Evictions, 1)
	}
	cs.trackSize()
	return e, nil
}

func (cs *CacheStore) trackSize() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	n := int64(cs.cache.Len())
	if n > cs.size {
		cs.size = n
		atomic.StoreInt64(&cs.stats.PeakSize, n)
	}
}

// Stats returns a snapshot of the cache's hit/miss/eviction/peak counters.
func (cs *CacheStore) Stats() CacheStats {
	return CacheStats{
		Hits:      atomic.LoadInt64(&cs.stats.Hits),
		Misses:    atomic.LoadInt64(&cs.stats.Misses),
		Evictions: atomic.LoadInt64(&cs.stats.Evictions),
		PeakSize:  atomic.LoadInt64(&cs.stats.PeakSize),
	}
}

// Underlying returns the raw store backing the cache, for checkpointing
// and memory-manager pruning, which must see every record regardless of
// cache residency.
func (cs *CacheStore) Underlying() *Store { return cs.store }

// adoptStore swaps in a store already populated from a checkpoint, used
// when restoring an engine so the cache layer fronts the restored records
// rather than an empty table.
func (cs *CacheStore) adoptStore(s *Store) { cs.store = s }

// Size returns the number of records in the underlying durable store.
func (cs *CacheStore) Size() int { return cs.store.Size() }
