package abstraction

import (
	"math/bits"
	"sort"

	"github.com/lox/cfrsolve/poker"
	"github.com/lox/cfrsolve/sdk/classification"
)

// BoardFeatures summarizes a 3-5 card board in a form that is mostly
// invariant to which physical suit is which, so two boards that only
// differ by a suit relabeling bucket identically.
type BoardFeatures struct {
	NumSuits        int     // distinct suits represented on the board
	MaxSuitCount    int     // cards sharing the board's most common suit
	IsPaired        bool
	IsTrips         bool
	Gaps            int     // missing ranks between the lowest and highest board rank
	StraightDraws    int    // count of rank windows one card away from a straight
	StraightMade    bool
	Connectedness   float64 // in [0,1], 1 = maximally connected
	RankDistribution [13]uint8
	// Texture is the board's overall wetness, folded into CanonicalPattern
	// below so two boards with the same suit/rank shape but different
	// draw density still bucket apart.
	Texture classification.BoardTexture
	// CanonicalPattern is derived from the sorted suit-count multiset, the
	// sorted rank-count multiset, and Texture, so it is identical for any
	// two boards related by a permutation of the four suits (and, more
	// coarsely, collapses boards whose pairing/flush shape and wetness
	// match even if the literal ranks differ - finer rank detail lives in
	// the other fields above).
	CanonicalPattern uint32
}

// ClassifyBoard computes the canonical BoardFeatures for a 3-5 card board.
func ClassifyBoard(board poker.Hand) BoardFeatures {
	var f BoardFeatures

	suitCounts := make([]int, 4)
	for s := uint8(0); s < 4; s++ {
		suitCounts[s] = bits.OnesCount16(board.GetSuitMask(s))
		if suitCounts[s] > 0 {
			f.NumSuits++
		}
		if suitCounts[s] > f.MaxSuitCount {
			f.MaxSuitCount = suitCounts[s]
		}
	}

	for _, c := range board.Cards() {
		f.RankDistribution[c.Rank()]++
	}
	for _, n := range f.RankDistribution {
		switch n {
		case 3:
			f.IsTrips = true
		case 2:
			f.IsPaired = true
		}
		if n == 4 {
			f.IsTrips = true
		}
	}

	rankMask := board.GetRankMask()
	lo, hi := lowestHighestRank(rankMask)
	if hi > lo {
		span := int(hi - lo)
		present := bits.OnesCount16(rankMask)
		f.Gaps = span + 1 - present
		f.Connectedness = 1 - float64(f.Gaps)/float64(span)
	}
	f.StraightDraws, f.StraightMade = straightWindows(rankMask)

	f.Texture = classification.AnalyzeBoardTexture(board)
	f.CanonicalPattern = canonicalPattern(suitCounts, f.RankDistribution[:])*4 + uint32(f.Texture)
	return f
}

func lowestHighestRank(mask uint16) (lo, hi uint8) {
	lo, hi = 12, 0
	found := false
	for r := uint8(0); r < 13; r++ {
		if mask&(1<<r) != 0 {
			found = true
			if r < lo {
				lo = r
			}
			if r > hi {
				hi = r
			}
		}
	}
	if !found {
		return 0, 0
	}
	return lo, hi
}

// straightWindows counts how many 5-rank windows (including the wheel)
// contain at least 4 of the board's ranks, and reports whether any window
// is already a complete straight.
func straightWindows(mask uint16) (windows int, made bool) {
	const wheel = 0x100F
	windowMasks := make([]uint16, 0, 10)
	for start := 0; start <= 8; start++ {
		windowMasks = append(windowMasks, uint16(0x1F)<<start)
	}
	windowMasks = append(windowMasks, wheel)

	for _, w := range windowMasks {
		n := bits.OnesCount16(mask & w)
		if n >= 5 {
			made = true
		}
		if n == 4 {
			windows++
		}
	}
	return windows, made
}

func canonicalPattern(suitCounts []int, rankDistribution []uint8) uint32 {
	sorted := append([]int(nil), suitCounts...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	var pattern uint32
	for _, c := range sorted {
		pattern = pattern*6 + uint32(c)
	}

	rankCounts := make([]int, 0, len(rankDistribution))
	for _, c := range rankDistribution {
		if c > 0 {
			rankCounts = append(rankCounts, int(c))
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rankCounts)))
	for len(rankCounts) < 5 {
		rankCounts = append(rankCounts, 0)
	}
	for _, c := range rankCounts[:5] {
		pattern = pattern*5 + uint32(c)
	}
	return pattern
}

// DrawInfo re-exposes the richer draw classification used elsewhere in the
// solver for components that want a textual draw summary rather than the
// bucketing-oriented BoardFeatures above.
func DrawInfo(hole, board poker.Hand) classification.DrawInfo {
	return classification.DetectDraws(hole, board)
}
