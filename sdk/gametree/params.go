// Package gametree builds the heads-up limit hold'em extensive-form game
// tree as a flat arena of nodes, replacing the cyclic/back-referenced node
// graphs common in earlier designs with integer indices so the whole tree
// is trivially serialisable.
package gametree

import (
	"fmt"

	"github.com/lox/cfrsolve/sdk/errkind"
)

// GameParams configures the shape of the betting tree. It is the Go
// counterpart of the solver's GameParams configuration surface: a plain
// struct with a Validate method, populated by the CLI's HCL config loader.
type GameParams struct {
	SmallBlind         int
	BigBlind           int
	Stack              int
	MaxRaisesPerStreet int
	RakeMilliBB        int
	PreflopOnly        bool
	UseSuitIsomorphism bool
	UseCardAbstraction bool
	AbstractionBuckets int
}

// DefaultGameParams returns the canonical HU-LHE shape used throughout the
// testable-properties examples: SB=1, BB=2, cap=4.
func DefaultGameParams() GameParams {
	return GameParams{
		SmallBlind:         1,
		BigBlind:           2,
		Stack:              200,
		MaxRaisesPerStreet: 4,
		RakeMilliBB:        0,
		PreflopOnly:        false,
		UseSuitIsomorphism: true,
		UseCardAbstraction: false,
		AbstractionBuckets: 1,
	}
}

// Validate reports a ConfigInvalid-class error for any inconsistent
// parameter combination. Construction must fail synchronously on an
// invalid configuration rather than build a malformed tree.
func (p GameParams) Validate() error {
	if p.SmallBlind <= 0 {
		return fmt.Errorf("%w: small_blind must be > 0", errkind.ConfigInvalid)
	}
	if p.BigBlind <= p.SmallBlind {
		return fmt.Errorf("%w: big_blind must exceed small_blind", errkind.ConfigInvalid)
	}
	if p.Stack <= 0 {
		return fmt.Errorf("%w: stack must be > 0", errkind.ConfigInvalid)
	}
	if p.MaxRaisesPerStreet < 1 {
		return fmt.Errorf("%w: max_raises_per_street must be >= 1", errkind.ConfigInvalid)
	}
	if p.RakeMilliBB < 0 {
		return fmt.Errorf("%w: rake_milli_bb must be >= 0", errkind.ConfigInvalid)
	}
	if p.UseCardAbstraction && p.AbstractionBuckets <= 0 {
		return fmt.Errorf("%w: abstraction_buckets must be > 0 when card abstraction is enabled", errkind.ConfigInvalid)
	}
	// The stack has to cover at least the big blind.
	if p.Stack < p.BigBlind {
		return fmt.Errorf("%w: stack must cover at least the big blind", errkind.ConfigInvalid)
	}
	return nil
}
