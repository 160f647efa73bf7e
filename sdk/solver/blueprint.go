package solver

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lox/cfrsolve/sdk/errkind"
	"github.com/lox/cfrsolve/sdk/gametree"
)

const blueprintVersion = 1

// Blueprint is the exported average strategy produced by a completed (or
// paused) training run: a flat table from information-set key string to the
// time-averaged action probabilities, plus enough of the originating
// configuration to check a runtime caller is querying it compatibly.
type Blueprint struct {
	Version     int                  `json:"version"`
	GeneratedAt time.Time            `json:"generated_at"`
	Iterations  int64                `json:"iterations"`
	GameParams  gametree.GameParams  `json:"game_params"`
	Strategies  map[string][]float64 `json:"strategies"`
}

// BuildBlueprint exports the average strategy of every information set in
// store.
func BuildBlueprint(params gametree.GameParams, iterations int64, store *Store) *Blueprint {
	bp := &Blueprint{
		Version:     blueprintVersion,
		GeneratedAt: time.Now(),
		Iterations:  iterations,
		GameParams:  params,
		Strategies:  make(map[string][]float64),
	}
	store.Each(func(key string, e *InfoSet) {
		bp.Strategies[key] = e.AverageStrategy()
	})
	return bp
}

// Save writes the blueprint to disk as indented JSON.
func (b *Blueprint) Save(path string) error {
	if b == nil {
		return fmt.Errorf("%w: nil blueprint", errkind.ConfigInvalid)
	}
	if path == "" {
		return fmt.Errorf("%w: blueprint destination path is required", errkind.ConfigInvalid)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create blueprint file: %v", errkind.CheckpointIoError, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("%w: encode blueprint: %v", errkind.CheckpointIoError, err)
	}
	return nil
}

// LoadBlueprint reads a blueprint from disk.
func LoadBlueprint(path string) (*Blueprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open blueprint: %v", errkind.CheckpointIoError, err)
	}
	defer f.Close()

	var bp Blueprint
	if err := json.NewDecoder(f).Decode(&bp); err != nil {
		return nil, fmt.Errorf("%w: decode blueprint: %v", errkind.CheckpointIoError, err)
	}
	if bp.Version != blueprintVersion {
		return nil, fmt.Errorf("%w: blueprint version %d, expected %d", errkind.CheckpointIoError, bp.Version, blueprintVersion)
	}
	if err := bp.GameParams.Validate(); err != nil {
		return nil, fmt.Errorf("%w: blueprint game params invalid: %v", errkind.CheckpointIoError, err)
	}
	return &bp, nil
}

// Strategy returns the stored average strategy for key, and false if the
// information set was never visited.
func (b *Blueprint) Strategy(key InfoSetKey) ([]float64, bool) {
	if b == nil {
		return nil, false
	}
	strat, ok := b.Strategies[key.String()]
	return strat, ok
}
