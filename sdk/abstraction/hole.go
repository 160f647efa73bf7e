// Package abstraction canonicalizes hole cards and board textures into the
// compact, suit-permutation-invariant keys the solver buckets information
// sets on.
package abstraction

import "github.com/lox/cfrsolve/poker"

// HoleKey is the canonical shape of a two-card hole, invariant under suit
// relabeling: (highRank, lowRank, suited). Pocket pairs are never marked
// suited, since "suited" only distinguishes hands that could make a flush.
type HoleKey struct {
	HighRank uint8
	LowRank  uint8
	Suited   bool
}

// CanonicalizeHole reduces a hole-card pair to its canonical key.
func CanonicalizeHole(a, b poker.Card) HoleKey {
	ra, rb := a.Rank(), b.Rank()
	high, low := ra, rb
	if low > high {
		high, low = low, high
	}
	suited := a.Suit() == b.Suit() && high != low
	return HoleKey{HighRank: high, LowRank: low, Suited: suited}
}
