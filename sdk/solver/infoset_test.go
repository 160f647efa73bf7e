package solver

import "testing"

func TestFreshInfoSetIsUniform(t *testing.T) {
	e := newInfoSet(0, 3)
	strat := e.Strategy()
	for i, p := range strat {
		if want := 1.0 / 3; p != want {
			t.Fatalf("strategy[%d] = %v, want %v", i, p, want)
		}
	}
}

func TestRegretMatchingProportionalToPositiveRegret(t *testing.T) {
	e := newInfoSet(0, 3)
	e.Regrets = []float64{10, -5, 3}

	strat := e.strategyLocked()
	want := []float64{10.0 / 13, 0, 3.0 / 13}
	for i := range want {
		if diff := strat[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("strategy[%d] = %v, want %v", i, strat[i], want[i])
		}
	}
}

func TestUpdateAccumulatesRegretAndStrategySum(t *testing.T) {
	e := newInfoSet(0, 2)
	e.Update([]float64{1, -1}, []float64{0.5, 0.5}, 1.0, UpdateOptions{Iteration: 1, PruneThreshold: negInf})

	if e.Regrets[0] != 1 || e.Regrets[1] != -1 {
		t.Fatalf("regrets = %v, want [1 -1]", e.Regrets)
	}
	if e.StrategySum[0] != 0.5 || e.StrategySum[1] != 0.5 {
		t.Fatalf("strategy sum = %v, want [0.5 0.5]", e.StrategySum)
	}
}

func TestCFRPlusFloorsRegretAtZero(t *testing.T) {
	e := newInfoSet(0, 2)
	e.Update([]float64{-5, 2}, []float64{0.5, 0.5}, 1.0, UpdateOptions{CFRPlus: true, Iteration: 1, PruneThreshold: negInf})

	if e.Regrets[0] != 0 {
		t.Fatalf("regret[0] = %v, want 0 under CFR+", e.Regrets[0])
	}
	if e.Regrets[1] != 2 {
		t.Fatalf("regret[1] = %v, want 2", e.Regrets[1])
	}
}

func TestLinearWeightingScalesByIteration(t *testing.T) {
	e := newInfoSet(0, 1)
	e.Update([]float64{1}, []float64{1}, 1.0, UpdateOptions{LinearWeighting: true, Iteration: 10, PruneThreshold: negInf})

	if e.Regrets[0] != 10 {
		t.Fatalf("regret[0] = %v, want 10 with linear weighting at iteration 10", e.Regrets[0])
	}
	if e.StrategySum[0] != 10 {
		t.Fatalf("strategy sum[0] = %v, want 10", e.StrategySum[0])
	}
}

func TestDiscountFactorShrinksStoredRegret(t *testing.T) {
	e := newInfoSet(0, 1)
	e.Regrets[0] = 10
	e.Update([]float64{0}, []float64{1}, 1.0, UpdateOptions{DiscountFactor: 0.5, Iteration: 1, PruneThreshold: negInf})

	if e.Regrets[0] != 5 {
		t.Fatalf("regret[0] = %v, want 5 after a 0.5 discount", e.Regrets[0])
	}
}

func TestPruneThresholdZeroesSmallRegrets(t *testing.T) {
	e := newInfoSet(0, 2)
	e.Regrets = []float64{0.001, 5}
	e.Update([]float64{0, 0}, []float64{0.5, 0.5}, 1.0, UpdateOptions{Iteration: 1, PruneThreshold: 0.01})

	if e.Regrets[0] != 0 {
		t.Fatalf("regret[0] = %v, want pruned to 0", e.Regrets[0])
	}
	if e.Regrets[1] != 5 {
		t.Fatalf("regret[1] = %v, want unpruned 5", e.Regrets[1])
	}
}

func TestAverageStrategyNormalizesAndFallsBackToUniform(t *testing.T) {
	fresh := newInfoSet(0, 2)
	avg := fresh.AverageStrategy()
	if avg[0] != 0.5 || avg[1] != 0.5 {
		t.Fatalf("unvisited average strategy = %v, want [0.5 0.5]", avg)
	}

	visited := newInfoSet(0, 2)
	visited.StrategySum = []float64{3, 1}
	avg = visited.AverageStrategy()
	if avg[0] != 0.75 || avg[1] != 0.25 {
		t.Fatalf("average strategy = %v, want [0.75 0.25]", avg)
	}
}

func TestStoreGetCreatesThenReusesRecord(t *testing.T) {
	s := NewStore()
	a, err := s.Get("k", 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := s.Get("k", 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a != b {
		t.Fatal("expected the same *InfoSet on repeated Get with the same key")
	}
	if s.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", s.Size())
	}
}

func TestStoreGetRejectsShapeMismatch(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("k", 2); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := s.Get("k", 3); err == nil {
		t.Fatal("expected an error when requesting a different action count for the same key")
	}
}

func TestStoreDeleteRemovesRecord(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("k", 2); err != nil {
		t.Fatalf("Get: %v", err)
	}
	s.Delete("k")
	if _, ok := s.Peek("k"); ok {
		t.Fatal("expected record to be gone after Delete")
	}
}

func TestStoreRestoreRoundTrip(t *testing.T) {
	s := NewStore()
	e, err := s.Get("k", 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	e.Update([]float64{1, 2}, []float64{0.5, 0.5}, 1.0, UpdateOptions{Iteration: 1, PruneThreshold: negInf})

	records := map[string]infoSetSnapshot{"k": e.snapshot()}
	restored := NewStore()
	restored.restore(records)

	got, ok := restored.Peek("k")
	if !ok {
		t.Fatal("expected restored record to be present")
	}
	if got.Regrets[0] != 1 || got.Regrets[1] != 2 {
		t.Fatalf("restored regrets = %v, want [1 2]", got.Regrets)
	}
}
