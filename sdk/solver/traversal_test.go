package solver

import (
	"testing"

	"github.com/lox/cfrsolve/sdk/gametree"
)

func smallPreflopParams() gametree.GameParams {
	p := gametree.DefaultGameParams()
	p.PreflopOnly = true
	p.MaxRaisesPerStreet = 1
	return p
}

func TestTraverseOnceReturnsFiniteValue(t *testing.T) {
	tree, err := gametree.BuildTree(smallPreflopParams())
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	store := NewStore()
	sampler := NewSampler(NewPCG32(1))
	deal := NewDeal(NewFastRand(1))

	ctx := &IterationContext{
		Tree:      tree,
		Store:     store,
		Config:    DefaultIterConfig(),
		Sampler:   sampler,
		Deal:      deal,
		Traverser: 0,
	}
	v, err := TraverseOnce(ctx, 1)
	if err != nil {
		t.Fatalf("TraverseOnce: %v", err)
	}
	if v != v { // NaN check
		t.Fatalf("TraverseOnce returned NaN")
	}
}

func TestTraverseOnceVisitsRootInfoSet(t *testing.T) {
	tree, err := gametree.BuildTree(smallPreflopParams())
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	store := NewStore()
	sampler := NewSampler(NewPCG32(2))
	deal := NewDeal(NewFastRand(2))

	ctx := &IterationContext{
		Tree:      tree,
		Store:     store,
		Config:    DefaultIterConfig(),
		Sampler:   sampler,
		Deal:      deal,
		Traverser: 0,
	}
	if _, err := TraverseOnce(ctx, 1); err != nil {
		t.Fatalf("TraverseOnce: %v", err)
	}

	root := tree.RootNode()
	key := infoSetKeyFor(tree, root, deal)
	if _, ok := store.Peek(key.String()); !ok {
		t.Fatal("expected the root information set to be created by traversal")
	}
}

func TestNewDealPoolDealsSingleBoardWithoutSampling(t *testing.T) {
	cfg := DefaultIterConfig()
	pool := NewDealPool(NewFastRand(1), NewSampler(NewPCG32(1)), cfg)
	if len(pool.Boards) != 1 {
		t.Fatalf("len(Boards) = %d, want 1 when sampling is disabled", len(pool.Boards))
	}
	if pool.Weight != 1 {
		t.Fatalf("Weight = %v, want 1 for a single board", pool.Weight)
	}
}

func TestNewDealPoolChanceStrategySamplesASubsetOfBoards(t *testing.T) {
	cfg := DefaultIterConfig()
	cfg.UseSampling = true
	cfg.SamplingStrategy = SamplingChance
	cfg.SamplingProbability = 0.5

	pool := NewDealPool(NewFastRand(2), NewSampler(NewPCG32(2)), cfg)
	if len(pool.Boards) <= 1 || len(pool.Boards) >= ChanceBoardPoolWidth {
		t.Fatalf("len(Boards) = %d, want a proper subset of the %d-wide pool", len(pool.Boards), ChanceBoardPoolWidth)
	}
	if pool.Weight != 1/float64(len(pool.Boards)) {
		t.Fatalf("Weight = %v, want 1/%d", pool.Weight, len(pool.Boards))
	}
}

func TestNewDealPoolNoneStrategyEnumeratesFullWidth(t *testing.T) {
	cfg := DefaultIterConfig()
	cfg.UseSampling = true
	cfg.SamplingStrategy = SamplingNone

	pool := NewDealPool(NewFastRand(3), NewSampler(NewPCG32(3)), cfg)
	if len(pool.Boards) != ChanceBoardPoolWidth {
		t.Fatalf("len(Boards) = %d, want the full %d-wide pool for \"none\"", len(pool.Boards), ChanceBoardPoolWidth)
	}
}

func TestNewDealPoolBoardsExcludeHoleCards(t *testing.T) {
	cfg := DefaultIterConfig()
	cfg.UseSampling = true
	cfg.SamplingStrategy = SamplingChance
	cfg.SamplingProbability = 1

	pool := NewDealPool(NewFastRand(4), NewSampler(NewPCG32(4)), cfg)
	excl := pool.Hole[0] | pool.Hole[1]
	for _, board := range pool.Boards {
		if board.CountCards() != 5 {
			t.Fatalf("board has %d cards, want 5", board.CountCards())
		}
		for _, c := range board.Cards() {
			if excl.HasCard(c) {
				t.Fatalf("board card %v collides with a hole card", c)
			}
		}
	}
}

func TestRunOneIterationUpdatesBothSeats(t *testing.T) {
	tree, err := gametree.BuildTree(smallPreflopParams())
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	store := NewStore()
	cfg := DefaultIterConfig()

	if err := runOneIteration(tree, store, cfg, 99, 1); err != nil {
		t.Fatalf("runOneIteration: %v", err)
	}
	if store.Size() == 0 {
		t.Fatal("expected at least one information set after an iteration")
	}
}

func TestRunOneIterationIsDeterministicForFixedSeed(t *testing.T) {
	tree, err := gametree.BuildTree(smallPreflopParams())
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	cfg := DefaultIterConfig()

	s1 := NewStore()
	if err := runOneIteration(tree, s1, cfg, 123, 5); err != nil {
		t.Fatalf("runOneIteration: %v", err)
	}
	s2 := NewStore()
	if err := runOneIteration(tree, s2, cfg, 123, 5); err != nil {
		t.Fatalf("runOneIteration: %v", err)
	}

	if s1.Size() != s2.Size() {
		t.Fatalf("store sizes differ across identical (seed, iteration): %d vs %d", s1.Size(), s2.Size())
	}

	var mismatched bool
	s1.Each(func(key string, e *InfoSet) {
		other, ok := s2.Peek(key)
		if !ok {
			mismatched = true
			return
		}
		for i := range e.Regrets {
			if e.Regrets[i] != other.Regrets[i] {
				mismatched = true
			}
		}
	})
	if mismatched {
		t.Fatal("expected identical (seed, iteration) to reproduce identical regrets")
	}
}
