// Package solver implements counterfactual regret minimization over a
// gametree.Tree: information-set storage, sampling, regret-matching
// traversal, and the stopping/checkpointing control loop around it.
package solver

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/lox/cfrsolve/sdk/abstraction"
	"github.com/lox/cfrsolve/sdk/errkind"
	"github.com/lox/cfrsolve/sdk/gametree"
)

// InfoSetKey identifies one information set: a seat's view of the hand up
// to and including the current decision point. Street and history already
// pin down which tree node this key belongs to; the canonical hole/board
// components are folded in at traversal time from the concrete cards dealt
// for that iteration.
type InfoSetKey struct {
	Seat            int8
	Street          gametree.Street
	History         string
	HoleCanonical   abstraction.HoleKey
	BoardCanonical  uint32 // abstraction.BoardFeatures.CanonicalPattern, 0 preflop
}

// String renders the key deterministically, used both for display and as
// the sharding/hashing input.
func (k InfoSetKey) String() string {
	return fmt.Sprintf("%d|%s|%s|%d,%d,%t|%d",
		k.Seat, k.Street, k.History,
		k.HoleCanonical.HighRank, k.HoleCanonical.LowRank, k.HoleCanonical.Suited,
		k.BoardCanonical)
}

// InfoSet is the mutable record backing one information set: per-action
// regret and strategy accumulators plus bookkeeping for checkpointing.
type InfoSet struct {
	mu            sync.Mutex
	ID            int64
	NumActions    int
	Regrets       []float64
	StrategySum   []float64
	LastIteration int64
}

func newInfoSet(id int64, numActions int) *InfoSet {
	return &InfoSet{
		ID:          id,
		NumActions:  numActions,
		Regrets:     make([]float64, numActions),
		StrategySum: make([]float64, numActions),
	}
}

// Strategy computes the current regret-matching strategy: proportional to
// positive regret, or uniform if no action has positive regret.
func (e *InfoSet) Strategy() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strategyLocked()
}

func (e *InfoSet) strategyLocked() []float64 {
	strat := make([]float64, e.NumActions)
	var sum float64
	for i, r := range e.Regrets {
		if r > 0 {
			strat[i] = r
			sum += r
		}
	}
	if sum <= 0 {
		uniform := 1.0 / float64(e.NumActions)
		for i := range strat {
			strat[i] = uniform
		}
		return strat
	}
	for i := range strat {
		strat[i] /= sum
	}
	return strat
}

// UpdateOptions controls which CFR variant a regret/strategy update applies.
type UpdateOptions struct {
	CFRPlus          bool    // floor regret at zero after each update
	LinearWeighting  bool    // weight updates by the iteration number
	DiscountFactor   float64 // multiplied into the stored regret each update, in (0,1]
	Iteration        int64
	PruneThreshold   float64 // -Inf disables pruning
}

// Update folds one iteration's per-action counterfactual regret and reach-
// weighted strategy into the record.
func (e *InfoSet) Update(regret []float64, strategy []float64, reach float64, opts UpdateOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.LastIteration = opts.Iteration

	weight := 1.0
	if opts.LinearWeighting {
		weight = float64(opts.Iteration)
		if weight <= 0 {
			weight = 1
		}
	}

	for i := range e.Regrets {
		if opts.DiscountFactor > 0 && opts.DiscountFactor != 1 {
			e.Regrets[i] *= opts.DiscountFactor
		}
		e.Regrets[i] += weight * regret[i]
		if opts.CFRPlus && e.Regrets[i] < 0 {
			e.Regrets[i] = 0
		}
	}

	strategyWeight := reach
	if opts.LinearWeighting {
		strategyWeight *= float64(opts.Iteration)
	}
	for i := range e.StrategySum {
		e.StrategySum[i] += strategyWeight * strategy[i]
	}

	if opts.PruneThreshold > negInf {
		e.pruneLocked(opts.PruneThreshold)
	}
}

const negInf = -1e308

// pruneLocked zeroes the stored regret of any action whose regret falls
// below threshold. The next Strategy() call normalizes over whatever
// positive regret remains, or falls back to uniform if none does.
func (e *InfoSet) pruneLocked(threshold float64) {
	for i, r := range e.Regrets {
		if r < threshold {
			e.Regrets[i] = 0
		}
	}
}

// AverageStrategy returns the time-averaged strategy: strategy_sum
// normalized to sum to 1, or uniform if the sum is zero (never visited
// with positive reach).
func (e *InfoSet) AverageStrategy() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]float64, e.NumActions)
	var sum float64
	for _, s := range e.StrategySum {
		sum += s
	}
	if sum <= 0 {
		uniform := 1.0 / float64(e.NumActions)
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i, s := range e.StrategySum {
		out[i] = s / sum
	}
	return out
}

// snapshot captures the record for checkpointing.
func (e *InfoSet) snapshot() infoSetSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return infoSetSnapshot{
		NumActions:    e.NumActions,
		Regrets:       append([]float64(nil), e.Regrets...),
		StrategySum:   append([]float64(nil), e.StrategySum...),
		LastIteration: e.LastIteration,
	}
}

type infoSetSnapshot struct {
	NumActions    int
	Regrets       []float64
	StrategySum   []float64
	LastIteration int64
}

func fromSnapshot(id int64, s infoSetSnapshot) *InfoSet {
	return &InfoSet{
		ID:            id,
		NumActions:    s.NumActions,
		Regrets:       append([]float64(nil), s.Regrets...),
		StrategySum:   append([]float64(nil), s.StrategySum...),
		LastIteration: s.LastIteration,
	}
}

// shardCount is the fixed size of the info-set store's lock pool. A key's
// shard is hash(key) mod shardCount, giving every record a stable exclusive
// lock without a single global mutex serializing the whole store.
const shardCount = 64

type shard struct {
	mu      sync.RWMutex
	entries map[string]*InfoSet
}

// Store is the raw, unbounded information-set table: a fixed pool of
// sharded locks in front of per-key records. CacheStore layers a bounded
// LRU in front of this for the configurable cache_max_entries behavior.
type Store struct {
	shards [shardCount]shard
	nextID int64
	idMu   sync.Mutex
}

// NewStore builds an empty information-set store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*InfoSet)
	}
	return s
}

func shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

// Get returns the record for key, creating it with numActions slots on
// first access. A record whose stored NumActions disagrees with the
// requested one is an InfoSetShapeMismatch.
func (s *Store) Get(key string, numActions int) (*InfoSet, error) {
	sh := &s.shards[shardFor(key)]

	sh.mu.RLock()
	if e, ok := sh.entries[key]; ok {
		sh.mu.RUnlock()
		if e.NumActions != numActions {
			return nil, fmt.Errorf("%w: key %q has %d actions, requested %d",
				errkind.InfoSetShapeMismatch, key, e.NumActions, numActions)
		}
		return e, nil
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[key]; ok {
		if e.NumActions != numActions {
			return nil, fmt.Errorf("%w: key %q has %d actions, requested %d",
				errkind.InfoSetShapeMismatch, key, e.NumActions, numActions)
		}
		return e, nil
	}
	s.idMu.Lock()
	id := s.nextID
	s.nextID++
	s.idMu.Unlock()

	e := newInfoSet(id, numActions)
	sh.entries[key] = e
	return e, nil
}

// Peek returns the record for key without creating it.
func (s *Store) Peek(key string) (*InfoSet, bool) {
	sh := &s.shards[shardFor(key)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[key]
	return e, ok
}

// Size returns the total number of information sets stored.
func (s *Store) Size() int {
	total := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		total += len(s.shards[i].entries)
		s.shards[i].mu.RUnlock()
	}
	return total
}

// Each calls fn for every stored key/record. fn must not mutate the store.
func (s *Store) Each(fn func(key string, e *InfoSet)) {
	for i := range s.shards {
		s.shards[i].mu.RLock()
		for k, e := range s.shards[i].entries {
			fn(k, e)
		}
		s.shards[i].mu.RUnlock()
	}
}

// Delete removes a record, used by the memory manager to evict info sets
// whose owning tree nodes were pruned.
func (s *Store) Delete(key string) {
	sh := &s.shards[shardFor(key)]
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

// restore replaces the store's contents with a checkpoint's records.
func (s *Store) restore(records map[string]infoSetSnapshot) {
	for i := range s.shards {
		s.shards[i].mu.Lock()
		s.shards[i].entries = make(map[string]*InfoSet)
		s.shards[i].mu.Unlock()
	}
	var id int64
	for key, snap := range records {
		sh := &s.shards[shardFor(key)]
		sh.mu.Lock()
		sh.entries[key] = fromSnapshot(id, snap)
		sh.mu.Unlock()
		id++
	}
	s.idMu.Lock()
	s.nextID = id
	s.idMu.Unlock()
}
