package abstraction

import (
	"testing"

	"github.com/lox/cfrsolve/poker"
)

func card(t *testing.T, s string) poker.Card {
	t.Helper()
	c, err := poker.ParseCard(s)
	if err != nil {
		t.Fatalf("ParseCard(%q): %v", s, err)
	}
	return c
}

func TestCanonicalizeHoleSuitIsomorphism(t *testing.T) {
	a := CanonicalizeHole(card(t, "As"), card(t, "Ks"))
	b := CanonicalizeHole(card(t, "Ah"), card(t, "Kh"))
	if a != b {
		t.Fatalf("suited AK should canonicalize identically across suits: %+v vs %+v", a, b)
	}
	if !a.Suited {
		t.Fatalf("AK suited should report Suited=true")
	}
}

func TestCanonicalizeHoleOffsuitAndOrder(t *testing.T) {
	a := CanonicalizeHole(card(t, "Ks"), card(t, "Ah"))
	b := CanonicalizeHole(card(t, "Ah"), card(t, "Ks"))
	if a != b {
		t.Fatalf("canonicalization should not depend on input order: %+v vs %+v", a, b)
	}
	if a.Suited {
		t.Fatalf("AK offsuit should report Suited=false")
	}
	if a.HighRank != poker.Ace || a.LowRank != poker.King {
		t.Fatalf("unexpected ranks: %+v", a)
	}
}

func TestCanonicalizeHolePocketPairNeverSuited(t *testing.T) {
	k := CanonicalizeHole(card(t, "Ts"), card(t, "Th"))
	if k.Suited {
		t.Fatalf("pocket pairs must never be marked suited")
	}
}

func TestClassifyBoardSuitIsomorphism(t *testing.T) {
	boardA := poker.NewHand(card(t, "2s"), card(t, "7s"), card(t, "Kd"))
	boardB := poker.NewHand(card(t, "2h"), card(t, "7h"), card(t, "Kc"))

	fa := ClassifyBoard(boardA)
	fb := ClassifyBoard(boardB)
	if fa.CanonicalPattern != fb.CanonicalPattern {
		t.Fatalf("canonical pattern should be invariant under suit permutation: %d vs %d", fa.CanonicalPattern, fb.CanonicalPattern)
	}
	if fa.MaxSuitCount != 2 || fa.NumSuits != 2 {
		t.Fatalf("unexpected suit shape: %+v", fa)
	}
}

func TestClassifyBoardPairedDetection(t *testing.T) {
	board := poker.NewHand(card(t, "2s"), card(t, "2h"), card(t, "Kd"))
	f := ClassifyBoard(board)
	if !f.IsPaired {
		t.Fatalf("board with two deuces should be paired")
	}
	if f.IsTrips {
		t.Fatalf("board should not be trips")
	}
}

func TestCanonicalTurnCategoryPairing(t *testing.T) {
	flop := poker.NewHand(card(t, "2s"), card(t, "7h"), card(t, "Kd"))
	if got := CanonicalTurnCategory(flop, card(t, "2c")); got != CategoryPairing {
		t.Fatalf("pairing the board should classify as pairing, got %v", got)
	}
}

func TestCanonicalTurnCategoryFlushCompleting(t *testing.T) {
	flop := poker.NewHand(card(t, "2s"), card(t, "7s"), card(t, "Ks"))
	if got := CanonicalTurnCategory(flop, card(t, "3s")); got != CategoryFlushCompleting {
		t.Fatalf("fourth spade should classify as flush-completing, got %v", got)
	}
}
