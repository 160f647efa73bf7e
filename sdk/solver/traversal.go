package solver

import (
	"math/rand"

	"github.com/lox/cfrsolve/poker"
	"github.com/lox/cfrsolve/sdk/abstraction"
	"github.com/lox/cfrsolve/sdk/gametree"
)

// InfoSetStoreIface is satisfied by both Store and CacheStore, so traversal
// code does not care whether a bounded cache sits in front of the raw table.
type InfoSetStoreIface interface {
	Get(key string, numActions int) (*InfoSet, error)
}

// Deal is the concrete set of cards live for one traversal: both seats'
// hole cards and the full five-card runout. Betting decisions never change
// which cards are in play, so there is no need to deal progressively as the
// traversal descends through chance nodes - any node can read however many
// board cards its street exposes.
type Deal struct {
	Hole  [2]poker.Hand
	Board poker.Hand // always all 5 cards; nodes read a street-sized prefix
}

// NewDeal shuffles a fresh deck and deals both hole-card hands plus the
// complete board for one traversal.
func NewDeal(rng *rand.Rand) *Deal {
	deck := poker.NewDeck(rng)
	h0 := deck.Deal(2)
	h1 := deck.Deal(2)
	board := deck.Deal(5)
	return &Deal{
		Hole:  [2]poker.Hand{poker.NewHand(h0...), poker.NewHand(h1...)},
		Board: poker.NewHand(board...),
	}
}

// ChanceBoardPoolWidth stands in for the width of the board-realization
// chance node when the configured sampling policy calls for something other
// than a single dealt board. The tree folds every possible runout for a
// street into one chance node with exactly one structural child (see
// gametree.BuildTree), so there is no literal child list to sample or
// enumerate; this is the nominal pool size the "chance" and "none" policies
// draw k = round(width*prob) (or all of it, for "none") independent
// realizations from.
const ChanceBoardPoolWidth = 24

// DealPool is one iteration's fixed hole cards plus however many board
// realizations the configured SamplingStrategy selects for it. Outcome
// sampling, and vanilla (non-sampled) CFR, deal a single board -
// standard chance-sampled CFR practice, and what every caller got before
// this type existed. Chance, external and none sampling instead average several
// independent runouts, each one a full traversal weighted by 1/len(Boards)
// so the combined contribution stays an unbiased estimate of the true
// chance-node expectation described in the sampling policy.
type DealPool struct {
	Hole   [2]poker.Hand
	Boards []poker.Hand
	Weight float64 // 1/len(Boards); applied to every traversal's regret/strategy update
}

// NewDealPool deals one iteration's hole cards once, then however many
// board realizations cfg.SamplingStrategy calls for when sampling is
// enabled; SampleSubset drives the "chance" and "none" realization counts
// (none forces k to the full pool width, i.e. full enumeration).
func NewDealPool(rng *rand.Rand, sampler *Sampler, cfg IterConfig) *DealPool {
	deck := poker.NewDeck(rng)
	h0 := deck.Deal(2)
	h1 := deck.Deal(2)
	hole := [2]poker.Hand{poker.NewHand(h0...), poker.NewHand(h1...)}
	excl := hole[0] | hole[1]

	n := 1
	if cfg.UseSampling {
		switch cfg.SamplingStrategy {
		case SamplingChance, SamplingExternal:
			// External dealing falls back to the chance policy: this tree
			// doesn't track a separate "opponent chance" distinction for
			// board realizations, only for the existing player-action
			// sampling in cfrPlayer.
			idxs, _ := sampler.SampleSubset(ChanceBoardPoolWidth, cfg.SamplingProbability)
			n = len(idxs)
		case SamplingNone:
			idxs, _ := sampler.SampleSubset(ChanceBoardPoolWidth, 1)
			n = len(idxs)
		}
	}

	boards := make([]poker.Hand, n)
	for i := range boards {
		boards[i] = dealBoardExcluding(rng, excl)
	}
	return &DealPool{Hole: hole, Boards: boards, Weight: 1 / float64(n)}
}

// dealBoardExcluding shuffles a fresh deck and deals five cards not already
// accounted for by excl, giving an independent runout for the same hole
// cards.
func dealBoardExcluding(rng *rand.Rand, excl poker.Hand) poker.Hand {
	deck := poker.NewDeck(rng)
	var board poker.Hand
	for board.CountCards() < 5 {
		c := deck.DealOne()
		if c == 0 {
			break
		}
		if excl.HasCard(c) || board.HasCard(c) {
			continue
		}
		board.AddCard(c)
	}
	return board
}

// boardCardsForStreet is how many of the dealt board cards are visible by
// the time a node on the given street is reached.
func boardCardsForStreet(s gametree.Street) int {
	switch s {
	case gametree.Flop:
		return 3
	case gametree.Turn:
		return 4
	case gametree.River:
		return 5
	default:
		return 0
	}
}

func (d *Deal) boardThrough(street gametree.Street) poker.Hand {
	n := boardCardsForStreet(street)
	var h poker.Hand
	for i := 0; i < n; i++ {
		h.AddCard(d.Board.GetCard(i))
	}
	return h
}

// infoSetKeyFor builds the full InfoSetKey for a player node given this
// iteration's deal, applying AbstractionBuckets quantization to the board
// component when card abstraction is enabled.
func infoSetKeyFor(tree *gametree.Tree, node *gametree.GameNode, deal *Deal) InfoSetKey {
	hole := deal.Hole[node.Kind.Seat]
	cards := hole.Cards()
	var holeKey abstraction.HoleKey
	if len(cards) == 2 {
		holeKey = abstraction.CanonicalizeHole(cards[0], cards[1])
	}

	var boardCanonical uint32
	if node.Street != gametree.Preflop {
		board := deal.boardThrough(node.Street)
		features := abstraction.ClassifyBoard(board)
		boardCanonical = features.CanonicalPattern
		if tree.Params.UseCardAbstraction && tree.Params.AbstractionBuckets > 0 {
			boardCanonical = boardCanonical % uint32(tree.Params.AbstractionBuckets)
		}
	}

	return InfoSetKey{
		Seat:           node.Kind.Seat,
		Street:         node.Street,
		History:        node.ActionHistory,
		HoleCanonical:  holeKey,
		BoardCanonical: boardCanonical,
	}
}

// IterationContext bundles everything one traversal call needs that stays
// fixed across the whole recursion.
type IterationContext struct {
	Tree       *gametree.Tree
	Store      InfoSetStoreIface
	Config     IterConfig
	Sampler    *Sampler
	Deal       *Deal
	Traverser  int8    // the seat whose regrets this traversal updates
	DealWeight float64 // importance weight for this traversal's board realization; 1 when dealing a single board
}

const reachEpsilon = 1e-12

// TraverseOnce runs a single recursive CFR pass updating ctx.Traverser's
// regrets, returning that seat's counterfactual value at the root.
func TraverseOnce(ctx *IterationContext, iteration int64) (float64, error) {
	reach := [2]float64{1, 1}
	return cfr(ctx, ctx.Tree.Root, reach, iteration)
}

func cfr(ctx *IterationContext, nodeIdx int32, reach [2]float64, iteration int64) (float64, error) {
	node := ctx.Tree.Node(nodeIdx)

	switch node.Kind.Tag {
	case gametree.KindTerminal:
		return terminalValue(ctx, node), nil

	case gametree.KindChance:
		// Exactly one structural child; dealing already happened up front
		// for the whole iteration, so descending costs nothing further.
		return cfr(ctx, node.Children[0].Index, reach, iteration)

	default: // KindPlayer
		return cfrPlayer(ctx, node, reach, iteration)
	}
}

func terminalValue(ctx *IterationContext, node *gametree.GameNode) float64 {
	var u0 float64
	if node.Terminal() == gametree.TerminalFold {
		u0, _ = node.FoldUtility()
	} else {
		seat0Hand := ctx.Deal.Hole[0] | ctx.Deal.Board
		seat1Hand := ctx.Deal.Hole[1] | ctx.Deal.Board
		cmp := poker.CompareHands(poker.Evaluate7Cards(seat0Hand), poker.Evaluate7Cards(seat1Hand))
		u0, _ = node.ShowdownUtility(cmp)
	}
	if ctx.Traverser == 0 {
		return u0
	}
	return -u0
}

func cfrPlayer(ctx *IterationContext, node *gametree.GameNode, reach [2]float64, iteration int64) (float64, error) {
	seat := node.Kind.Seat
	key := infoSetKeyFor(ctx.Tree, node, ctx.Deal)
	numActions := len(node.Children)

	entry, err := ctx.Store.Get(key.String(), numActions)
	if err != nil {
		return 0, err
	}
	strategy := entry.Strategy()

	// Outcome sampling draws a single action at every node on the path.
	// External sampling enumerates the traverser's own actions at full
	// width but draws a single action for the opponent, so only the
	// opponent's nodes are sampled under that policy.
	sampleThisNode := ctx.Config.UseSampling && (ctx.Config.SamplingStrategy == SamplingOutcome ||
		(ctx.Config.SamplingStrategy == SamplingExternal && seat != ctx.Traverser))

	if sampleThisNode {
		idx := ctx.Sampler.SampleByWeights(strategy)
		childReach := reach
		childReach[seat] *= strategy[idx]
		v, err := cfr(ctx, node.Children[idx].Index, childReach, iteration)
		if err != nil {
			return 0, err
		}
		if seat == ctx.Traverser {
			maybeUpdate(ctx, entry, seat, strategy, []float64{v}, []int{idx}, reach, iteration)
		}
		return v, nil
	}

	values := make([]float64, numActions)
	for i, edge := range node.Children {
		childReach := reach
		childReach[seat] *= strategy[i]
		v, err := cfr(ctx, edge.Index, childReach, iteration)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}

	var nodeValue float64
	for i, v := range values {
		nodeValue += strategy[i] * v
	}

	if seat == ctx.Traverser {
		idxs := make([]int, numActions)
		for i := range idxs {
			idxs[i] = i
		}
		maybeUpdate(ctx, entry, seat, strategy, values, idxs, reach, iteration)
	}

	return nodeValue, nil
}

// maybeUpdate performs the regret and strategy-sum update for the acting
// seat when it matches the traverser, skipping updates whose counterfactual
// reach is negligible.
func maybeUpdate(ctx *IterationContext, entry *InfoSet, seat int8, strategy []float64,
	sampledValues []float64, sampledIdxs []int, reach [2]float64, iteration int64) {

	opponent := otherSeatIdx(seat)
	cfReach := reach[opponent]
	if cfReach < reachEpsilon {
		return
	}

	var nodeValue float64
	regret := make([]float64, entry.NumActions)
	if len(sampledValues) == len(regret) {
		for i, v := range sampledValues {
			nodeValue += strategy[i] * v
		}
		for i, v := range sampledValues {
			regret[i] = v - nodeValue
		}
	} else {
		// A single sampled action: the unsampled actions contribute no
		// regret signal this iteration.
		nodeValue = sampledValues[0]
		regret[sampledIdxs[0]] = sampledValues[0] - nodeValue
	}

	opts := UpdateOptions{
		CFRPlus:         ctx.Config.UseCFRPlus,
		LinearWeighting: ctx.Config.UseLinearWeighting,
		DiscountFactor:  ctx.Config.DiscountFactor,
		Iteration:       iteration,
		PruneThreshold:  ctx.Config.PruneThreshold,
	}
	dealWeight := ctx.DealWeight
	if dealWeight == 0 {
		dealWeight = 1
	}
	for i := range regret {
		regret[i] *= cfReach * dealWeight
	}
	entry.Update(regret, strategy, reach[seat]*dealWeight, opts)
}

func otherSeatIdx(seat int8) int8 {
	if seat == 0 {
		return 1
	}
	return 0
}
