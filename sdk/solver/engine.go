package solver

import (
	"context"

	"github.com/lox/cfrsolve/sdk/gametree"
)

// Engine is the facade external callers (the CLI, a checkpoint-resume path,
// a future RPC layer) drive a solve through, matching the build_tree /
// new_store / train / average_strategy / snapshot / restore surface.
type Engine struct {
	Tree  *gametree.Tree
	Store *CacheStore
	seed  int64
}

// NewEngine builds the betting tree for params and a cache-fronted
// information-set store sized per cacheCfg, ready for Train.
func NewEngine(params gametree.GameParams, cacheCfg CacheConfig, seed int64) (*Engine, error) {
	tree, err := gametree.BuildTree(params)
	if err != nil {
		return nil, err
	}
	store, err := NewCacheStore(cacheCfg)
	if err != nil {
		return nil, err
	}
	return &Engine{Tree: tree, Store: store, seed: seed}, nil
}

// CFRIteration runs a single iteration (both seats' traversal passes)
// directly, bypassing the batching/scheduling Train provides - useful for
// single-stepping in tests or an interactive REPL.
func (e *Engine) CFRIteration(cfg IterConfig, iteration int64) error {
	return runOneIteration(e.Tree, e.Store, cfg, e.seed, iteration)
}

// Train runs CFR to a stopping condition using the engine's tree and store.
func (e *Engine) Train(ctx context.Context, cfg IterConfig, res ResourceConfig, hooks Hooks) (TrainReport, error) {
	return Train(ctx, e.Tree, e.Store, cfg, res, e.seed, hooks)
}

// AverageStrategy returns the current time-averaged strategy for key,
// creating the information set with numActions slots if it has never been
// visited (in which case the result is the uniform distribution).
func (e *Engine) AverageStrategy(key InfoSetKey, numActions int) ([]float64, error) {
	entry, err := e.Store.Get(key.String(), numActions)
	if err != nil {
		return nil, err
	}
	return entry.AverageStrategy(), nil
}

// Snapshot exports a checkpoint of the engine's current state.
func (e *Engine) Snapshot(cfg IterConfig, ctrl *Control) *Checkpoint {
	return BuildCheckpoint(e.Tree.Params, cfg, ctrl, e.Store.Underlying(), e.seed)
}

// Blueprint exports the engine's average strategy for every visited
// information set.
func (e *Engine) Blueprint(iterations int64) *Blueprint {
	return BuildBlueprint(e.Tree.Params, iterations, e.Store.Underlying())
}

// RestoreEngine rebuilds an Engine from a checkpoint: the tree is
// reconstructed from the checkpoint's game parameters, and the information
// sets are loaded into a fresh cache-fronted store of the given capacity.
func RestoreEngine(snap *Checkpoint, cacheCfg CacheConfig) (*Engine, *Control, error) {
	tree, err := gametree.BuildTree(snap.GameParams)
	if err != nil {
		return nil, nil, err
	}
	rawStore, ctrl, err := snap.Restore()
	if err != nil {
		return nil, nil, err
	}
	cached, err := NewCacheStore(cacheCfg)
	if err != nil {
		return nil, nil, err
	}
	cached.adoptStore(rawStore)
	return &Engine{Tree: tree, Store: cached, seed: snap.RNGSeed}, ctrl, nil
}
