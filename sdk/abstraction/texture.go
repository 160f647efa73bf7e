package abstraction

import "github.com/lox/cfrsolve/poker"

// TextureCategory classifies how a single new community card changes the
// board, for building the turn/river component of an info-set key without
// needing the full board history.
type TextureCategory uint8

const (
	CategoryPairing TextureCategory = iota
	CategoryFlushCompleting
	CategoryStraightCompleting
	CategoryRankBandLow
	CategoryRankBandMid
	CategoryRankBandHigh
)

func (c TextureCategory) String() string {
	switch c {
	case CategoryPairing:
		return "pairing"
	case CategoryFlushCompleting:
		return "flush-completing"
	case CategoryStraightCompleting:
		return "straight-completing"
	case CategoryRankBandLow:
		return "rank-band-low"
	case CategoryRankBandMid:
		return "rank-band-mid"
	case CategoryRankBandHigh:
		return "rank-band-high"
	default:
		return "unknown"
	}
}

// CanonicalTurnCategory classifies the turn card's effect on a 3-card flop.
func CanonicalTurnCategory(flop poker.Hand, turn poker.Card) TextureCategory {
	return categorizeNewCard(flop, turn)
}

// CanonicalRiverCategory classifies the river card's effect on a 4-card
// (flop+turn) board.
func CanonicalRiverCategory(flopAndTurn poker.Hand, river poker.Card) TextureCategory {
	return categorizeNewCard(flopAndTurn, river)
}

// categorizeNewCard picks the single most salient texture change the new
// card introduces, checked in priority order: pairing the board beats
// completing a flush, which beats completing a straight, which beats a
// plain rank-band classification for an otherwise uneventful card.
func categorizeNewCard(before poker.Hand, card poker.Card) TextureCategory {
	beforeFeatures := ClassifyBoard(before)
	after := before
	after.AddCard(card)
	afterFeatures := ClassifyBoard(after)

	if beforeFeatures.RankDistribution[card.Rank()] > 0 {
		return CategoryPairing
	}
	if afterFeatures.MaxSuitCount > beforeFeatures.MaxSuitCount && afterFeatures.MaxSuitCount >= 4 {
		return CategoryFlushCompleting
	}
	if afterFeatures.StraightMade && !beforeFeatures.StraightMade {
		return CategoryStraightCompleting
	}

	switch {
	case card.Rank() <= poker.Seven:
		return CategoryRankBandLow
	case card.Rank() <= poker.Jack:
		return CategoryRankBandMid
	default:
		return CategoryRankBandHigh
	}
}
