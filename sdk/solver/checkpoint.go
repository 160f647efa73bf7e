package solver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coder/quartz"

	"github.com/lox/cfrsolve/sdk/errkind"
	"github.com/lox/cfrsolve/sdk/gametree"
)

// checkpointVersion is bumped whenever the on-disk snapshot shape changes.
// decodeCheckpoint rejects anything else outright rather than guess at a
// migration.
const checkpointVersion = 1

// Checkpoint is a complete, self-contained snapshot of a training run: the
// game parameters and solver configuration needed to reconstruct the tree
// and store shape, the control loop's progress, the master RNG seed, and
// every information set accumulated so far.
//
// Each iteration derives its own RNG deterministically from (RNGSeed,
// iteration number) rather than advancing one shared stream (see
// runOneIteration) - parallel workers never contend a single generator, and
// a resumed run reproduces the exact same per-iteration draws as an
// uninterrupted one just by continuing the iteration count, with no RNG
// stream position to serialize.
type Checkpoint struct {
	Version    int                        `json:"version"`
	GameParams gametree.GameParams        `json:"game_params"`
	IterConfig IterConfig                 `json:"iter_config"`
	Control    ControlSnapshot            `json:"control"`
	RNGSeed    int64                      `json:"rng_seed"`
	InfoSets   map[string]infoSetSnapshot `json:"info_sets"`
}

// BuildCheckpoint assembles a Checkpoint from the live training state.
func BuildCheckpoint(params gametree.GameParams, cfg IterConfig, ctrl *Control, store *Store, rngSeed int64) *Checkpoint {
	snap := &Checkpoint{
		Version:    checkpointVersion,
		GameParams: params,
		IterConfig: cfg,
		Control:    ctrl.Snapshot(),
		RNGSeed:    rngSeed,
		InfoSets:   make(map[string]infoSetSnapshot),
	}
	store.Each(func(key string, e *InfoSet) {
		snap.InfoSets[key] = e.snapshot()
	})
	return snap
}

// SaveCheckpoint writes snap to path via a temp-file-then-rename so a crash
// mid-write never leaves a truncated checkpoint at the final path.
func SaveCheckpoint(snap *Checkpoint, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create checkpoint dir: %v", errkind.CheckpointIoError, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create checkpoint temp file: %v", errkind.CheckpointIoError, err)
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: encode checkpoint: %v", errkind.CheckpointIoError, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: close checkpoint temp file: %v", errkind.CheckpointIoError, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: persist checkpoint: %v", errkind.CheckpointIoError, err)
	}
	return nil
}

// LoadCheckpoint reads and validates a checkpoint file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open checkpoint: %v", errkind.CheckpointIoError, err)
	}
	defer f.Close()
	return decodeCheckpoint(f)
}

func decodeCheckpoint(r io.Reader) (*Checkpoint, error) {
	var snap Checkpoint
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decode checkpoint: %v", errkind.CheckpointIoError, err)
	}
	if snap.Version != checkpointVersion {
		return nil, fmt.Errorf("%w: checkpoint version %d, expected %d", errkind.CheckpointIoError, snap.Version, checkpointVersion)
	}
	if err := snap.GameParams.Validate(); err != nil {
		return nil, fmt.Errorf("%w: checkpoint game params invalid: %v", errkind.CheckpointIoError, err)
	}
	if err := snap.IterConfig.Validate(); err != nil {
		return nil, fmt.Errorf("%w: checkpoint iteration config invalid: %v", errkind.CheckpointIoError, err)
	}
	return &snap, nil
}

// Restore rebuilds an information-set store and control loop from a
// checkpoint. The caller still needs to rebuild the tree itself via
// gametree.BuildTree(snap.GameParams) - the tree is reconstructed rather than
// serialized, since it is a pure function of GameParams - and should resume
// Train with seed=snap.RNGSeed so subsequent iterations derive the same RNG
// stream a from-scratch run would have produced.
func (snap *Checkpoint) Restore() (*Store, *Control, error) {
	store := NewStore()
	store.restore(snap.InfoSets)

	ctrl := NewControl(snap.IterConfig, quartz.NewReal())
	if err := ctrl.Restore(snap.Control); err != nil {
		return nil, nil, err
	}

	return store, ctrl, nil
}
