package solver

import (
	"path/filepath"
	"testing"

	"github.com/lox/cfrsolve/sdk/gametree"
)

func TestBlueprintSaveLoadRoundTrip(t *testing.T) {
	store := NewStore()
	e, err := store.Get("seat=1;street=flop;history=cc", 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	e.StrategySum = []float64{3, 1}

	bp := BuildBlueprint(gametree.DefaultGameParams(), 100, store)
	path := filepath.Join(t.TempDir(), "blueprint.json")
	if err := bp.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadBlueprint(path)
	if err != nil {
		t.Fatalf("LoadBlueprint: %v", err)
	}
	if loaded.Iterations != 100 {
		t.Fatalf("Iterations = %d, want 100", loaded.Iterations)
	}
	strat, ok := loaded.Strategies["seat=1;street=flop;history=cc"]
	if !ok {
		t.Fatal("expected strategy to be present")
	}
	if strat[0] != 0.75 || strat[1] != 0.25 {
		t.Fatalf("strategy = %v, want [0.75 0.25]", strat)
	}
}

func TestBlueprintStrategyLookupByKey(t *testing.T) {
	store := NewStore()
	key := InfoSetKey{Seat: 0, Street: gametree.Preflop, History: ""}
	if _, err := store.Get(key.String(), 3); err != nil {
		t.Fatalf("Get: %v", err)
	}

	bp := BuildBlueprint(gametree.DefaultGameParams(), 1, store)
	strat, ok := bp.Strategy(key)
	if !ok {
		t.Fatal("expected strategy for fresh info set to be present (uniform)")
	}
	for _, p := range strat {
		if p != 1.0/3 {
			t.Fatalf("unvisited strategy = %v, want uniform thirds", strat)
		}
	}
}

func TestLoadBlueprintRejectsVersionMismatch(t *testing.T) {
	store := NewStore()
	bp := BuildBlueprint(gametree.DefaultGameParams(), 1, store)
	bp.Version = blueprintVersion + 1

	path := filepath.Join(t.TempDir(), "bad-version.json")
	if err := bp.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := LoadBlueprint(path); err == nil {
		t.Fatal("expected version mismatch to fail")
	}
}
