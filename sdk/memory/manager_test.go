package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/cfrsolve/sdk/solver"
)

func fixedReader(gb float64) MemoryReader {
	return func() float64 { return gb }
}

func TestConfigValidateRejectsBadFractions(t *testing.T) {
	cfg := Config{MaxMemoryGB: 1, WarningFraction: 0.9, CriticalFraction: 0.5}
	require.Error(t, cfg.Validate(), "expected warning >= critical to be rejected")
}

func TestCheckReportsLevelFromReading(t *testing.T) {
	cfg := Config{MaxMemoryGB: 10, WarningFraction: 0.5, CriticalFraction: 0.9}

	m, err := New(cfg, fixedReader(1))
	require.NoError(t, err)
	require.Equal(t, LevelOK, m.Check())

	m, err = New(cfg, fixedReader(6))
	require.NoError(t, err)
	require.Equal(t, LevelWarning, m.Check())

	m, err = New(cfg, fixedReader(9.5))
	require.NoError(t, err)
	require.Equal(t, LevelCritical, m.Check())
}

func populatedStore(t *testing.T, histories []string) *solver.Store {
	t.Helper()
	store := solver.NewStore()
	for _, h := range histories {
		key := "0|preflop|" + h + "|1,2,false|0"
		if _, err := store.Get(key, 2); err != nil {
			t.Fatalf("Get(%q): %v", key, err)
		}
	}
	return store
}

func TestMaybePruneNoOpBelowCritical(t *testing.T) {
	cfg := Config{MaxMemoryGB: 10, WarningFraction: 0.5, CriticalFraction: 0.9, Strategy: PruneDepth, MaxDepth: 0}
	m, err := New(cfg, fixedReader(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store := populatedStore(t, []string{"", "r", "rc"})

	stats := m.MaybePrune(store)
	if stats.Level != LevelOK {
		t.Fatalf("Level = %v, want ok", stats.Level)
	}
	if stats.Pruned != 0 || store.Size() != 3 {
		t.Fatalf("expected no pruning below critical, got pruned=%d size=%d", stats.Pruned, store.Size())
	}
}

func TestMaybePruneDepthDropsDeepRecords(t *testing.T) {
	cfg := Config{MaxMemoryGB: 10, WarningFraction: 0.5, CriticalFraction: 0.9, Strategy: PruneDepth, MaxDepth: 1}
	m, err := New(cfg, fixedReader(9.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store := populatedStore(t, []string{"", "r", "rc", "rcc"})

	stats := m.MaybePrune(store)
	if stats.Level != LevelCritical {
		t.Fatalf("Level = %v, want critical", stats.Level)
	}
	if store.Size() != 2 {
		t.Fatalf("store size after depth prune = %d, want 2 (history \"\" and \"r\")", store.Size())
	}
	if _, ok := store.Peek("0|preflop||1,2,false|0"); !ok {
		t.Fatal("expected root record to survive depth pruning")
	}
}

func TestMaybePruneFrequencyDropsUnvisitedRecords(t *testing.T) {
	cfg := Config{MaxMemoryGB: 10, WarningFraction: 0.5, CriticalFraction: 0.9, Strategy: PruneFrequency, VisitFloor: 1}
	m, err := New(cfg, fixedReader(9.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store := populatedStore(t, []string{"", "r"})
	m.RecordVisit("0|preflop||1,2,false|0")

	stats := m.MaybePrune(store)
	if stats.Pruned != 1 {
		t.Fatalf("Pruned = %d, want 1 (the unvisited record)", stats.Pruned)
	}
	if _, ok := store.Peek("0|preflop||1,2,false|0"); !ok {
		t.Fatal("expected visited record to survive frequency pruning")
	}
}

func TestMaybePruneFrequencyRetainsAncestorOfVisitedDeepRecord(t *testing.T) {
	cfg := Config{MaxMemoryGB: 10, WarningFraction: 0.5, CriticalFraction: 0.9, Strategy: PruneFrequency, VisitFloor: 1}
	m, err := New(cfg, fixedReader(9.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store := populatedStore(t, []string{"", "r", "rc"})
	// Only the deep record is visited; neither its root nor its immediate
	// ancestor ever is. A strategy that scores records independently would
	// drop both, orphaning "rc".
	m.RecordVisit("0|preflop|rc|1,2,false|0")

	stats := m.MaybePrune(store)
	if stats.Pruned != 0 {
		t.Fatalf("Pruned = %d, want 0 (the whole ancestor chain of the one visited record)", stats.Pruned)
	}
	if _, ok := store.Peek("0|preflop|rc|1,2,false|0"); !ok {
		t.Fatal("expected the visited deep record to survive frequency pruning")
	}
	if _, ok := store.Peek("0|preflop|r|1,2,false|0"); !ok {
		t.Fatal("expected the unvisited mid-tree ancestor to survive alongside its visited descendant")
	}
	if _, ok := store.Peek("0|preflop||1,2,false|0"); !ok {
		t.Fatal("expected the unvisited root to survive alongside its visited descendant")
	}
}

func TestMaybePruneImportanceKeepsShallowOverDeep(t *testing.T) {
	cfg := Config{MaxMemoryGB: 10, WarningFraction: 0.1, CriticalFraction: 0.9, Strategy: PruneImportance}
	m, err := New(cfg, fixedReader(9.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store := populatedStore(t, []string{"", "r", "rc", "rcc", "rccc"})

	stats := m.MaybePrune(store)
	if stats.RecordsAfter >= stats.RecordsBefore {
		t.Fatalf("expected importance pruning to shrink the store: before=%d after=%d",
			stats.RecordsBefore, stats.RecordsAfter)
	}
	if _, ok := store.Peek("0|preflop||1,2,false|0"); !ok {
		t.Fatal("expected the shallowest record to survive importance pruning")
	}
}

func TestMaybePruneAdaptiveHalvesOccupancy(t *testing.T) {
	cfg := Config{MaxMemoryGB: 10, WarningFraction: 0.5, CriticalFraction: 0.9, Strategy: PruneAdaptive}
	m, err := New(cfg, fixedReader(9.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store := populatedStore(t, []string{"", "r", "rc", "rcc"})

	stats := m.MaybePrune(store)
	if stats.RecordsAfter != 2 {
		t.Fatalf("RecordsAfter = %d, want 2 (half of 4)", stats.RecordsAfter)
	}
	if m.PruneCount() != 1 {
		t.Fatalf("PruneCount = %d, want 1", m.PruneCount())
	}
}
