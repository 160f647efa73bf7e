package solver

import "math"

// IterationReport summarizes one completed CFR iteration for progress
// reporting and hook callbacks.
type IterationReport struct {
	Iteration      int64
	StoreSize      int
	CacheStats     CacheStats
	Exploitability float64
	StopReason     StopReason
}

// Hooks lets a caller observe training progress and supply its own
// exploitability estimator without solver depending on any particular
// reporting mechanism (terminal UI, metrics exporter, and so on).
type Hooks struct {
	OnProgress            func(IterationReport)
	OnCheckpoint          func(iteration int64)
	ComputeExploitability func(*Store) float64
}

// MeanAbsoluteRegret is the default ComputeExploitability estimator: the
// mean, over every stored information set, of the average absolute
// per-action regret. It is a cheap proxy for true best-response
// exploitability, useful for a stopping rule even though it is not itself a
// game-theoretic distance to equilibrium.
func MeanAbsoluteRegret(store *Store) float64 {
	var total float64
	var count int64

	store.Each(func(_ string, e *InfoSet) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if len(e.Regrets) == 0 {
			return
		}
		var sum float64
		for _, r := range e.Regrets {
			sum += math.Abs(r)
		}
		total += sum / float64(len(e.Regrets))
		count++
	})

	if count == 0 {
		return 0
	}
	return total / float64(count)
}
