package main

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/lox/cfrsolve/sdk/errkind"
	"github.com/lox/cfrsolve/sdk/gametree"
	"github.com/lox/cfrsolve/sdk/memory"
	"github.com/lox/cfrsolve/sdk/solver"
)

// fileConfig is the HCL shape of a `solve --config` file: one block per
// configuration surface the engine exposes, each mapping directly onto the
// corresponding Go config struct's fields.
type fileConfig struct {
	Game      gameBlock      `hcl:"game,block"`
	Iteration iterationBlock `hcl:"iteration,block"`
	Resources resourceBlock  `hcl:"resources,block"`
}

type gameBlock struct {
	SmallBlind         int  `hcl:"small_blind"`
	BigBlind           int  `hcl:"big_blind"`
	Stack              int  `hcl:"stack"`
	MaxRaisesPerStreet int  `hcl:"max_raises_per_street,optional"`
	RakeMilliBB        int  `hcl:"rake_milli_bb,optional"`
	PreflopOnly        bool `hcl:"preflop_only,optional"`
	UseSuitIsomorphism bool `hcl:"use_suit_isomorphism,optional"`
	UseCardAbstraction bool `hcl:"use_card_abstraction,optional"`
	AbstractionBuckets int  `hcl:"abstraction_buckets,optional"`
}

type iterationBlock struct {
	UseCFRPlus           bool    `hcl:"use_cfr_plus,optional"`
	UseLinearWeighting   bool    `hcl:"use_linear_weighting,optional"`
	DiscountFactor       float64 `hcl:"discount_factor,optional"`
	UseSampling          bool    `hcl:"use_sampling,optional"`
	SamplingStrategy     string  `hcl:"sampling_strategy,optional"`
	SamplingProbability  float64 `hcl:"sampling_probability,optional"`
	MaxIterations        int64   `hcl:"max_iterations"`
	MinIterations        int64   `hcl:"min_iterations,optional"`
	TargetExploitability float64 `hcl:"target_exploitability,optional"`
	MaxTimeSeconds       float64 `hcl:"max_time_seconds,optional"`
	CheckFrequency       int64   `hcl:"check_frequency,optional"`
}

type resourceBlock struct {
	NumThreads       int     `hcl:"num_threads,optional"`
	ChunkSize        int     `hcl:"chunk_size,optional"`
	LoadBalancing    string  `hcl:"load_balancing,optional"`
	MaxMemoryGB      float64 `hcl:"max_memory_gb,optional"`
	WarningFraction  float64 `hcl:"warning_fraction,optional"`
	CriticalFraction float64 `hcl:"critical_fraction,optional"`
	PruneStrategy    string  `hcl:"prune_strategy,optional"`
	CacheMaxEntries  int     `hcl:"cache_max_entries,optional"`
}

// loadConfig reads and decodes an HCL config file into the engine's native
// config structs, starting from each struct's own defaults so an omitted
// optional field keeps its default rather than zeroing out.
func loadConfig(path string) (gametree.GameParams, solver.IterConfig, solver.ResourceConfig, memory.Config, error) {
	var fc fileConfig
	if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
		return gametree.GameParams{}, solver.IterConfig{}, solver.ResourceConfig{}, memory.Config{},
			fmt.Errorf("%w: %s: %v", errkind.ConfigInvalid, path, err)
	}

	params := gametree.DefaultGameParams()
	params.SmallBlind = fc.Game.SmallBlind
	params.BigBlind = fc.Game.BigBlind
	params.Stack = fc.Game.Stack
	if fc.Game.MaxRaisesPerStreet > 0 {
		params.MaxRaisesPerStreet = fc.Game.MaxRaisesPerStreet
	}
	params.RakeMilliBB = fc.Game.RakeMilliBB
	params.PreflopOnly = fc.Game.PreflopOnly
	params.UseSuitIsomorphism = fc.Game.UseSuitIsomorphism
	params.UseCardAbstraction = fc.Game.UseCardAbstraction
	if fc.Game.AbstractionBuckets > 0 {
		params.AbstractionBuckets = fc.Game.AbstractionBuckets
	}

	iter := solver.DefaultIterConfig()
	iter.UseCFRPlus = fc.Iteration.UseCFRPlus
	iter.UseLinearWeighting = fc.Iteration.UseLinearWeighting
	if fc.Iteration.DiscountFactor > 0 {
		iter.DiscountFactor = fc.Iteration.DiscountFactor
	}
	iter.UseSampling = fc.Iteration.UseSampling
	if fc.Iteration.SamplingStrategy != "" {
		strat, err := parseSamplingStrategy(fc.Iteration.SamplingStrategy)
		if err != nil {
			return gametree.GameParams{}, solver.IterConfig{}, solver.ResourceConfig{}, memory.Config{}, err
		}
		iter.SamplingStrategy = strat
	}
	if fc.Iteration.SamplingProbability > 0 {
		iter.SamplingProbability = fc.Iteration.SamplingProbability
	}
	iter.MaxIterations = fc.Iteration.MaxIterations
	iter.MinIterations = fc.Iteration.MinIterations
	iter.TargetExploitability = fc.Iteration.TargetExploitability
	if fc.Iteration.MaxTimeSeconds > 0 {
		iter.MaxTimeSeconds = fc.Iteration.MaxTimeSeconds
	}
	if fc.Iteration.CheckFrequency > 0 {
		iter.CheckFrequency = fc.Iteration.CheckFrequency
	}

	res := solver.DefaultResourceConfig()
	res.NumThreads = fc.Resources.NumThreads
	if fc.Resources.ChunkSize > 0 {
		res.ChunkSize = fc.Resources.ChunkSize
	}
	if fc.Resources.LoadBalancing != "" {
		lb, err := parseLoadBalancing(fc.Resources.LoadBalancing)
		if err != nil {
			return gametree.GameParams{}, solver.IterConfig{}, solver.ResourceConfig{}, memory.Config{}, err
		}
		res.LoadBalancing = lb
	}
	if fc.Resources.MaxMemoryGB > 0 {
		res.MaxMemoryGB = fc.Resources.MaxMemoryGB
	}
	if fc.Resources.WarningFraction > 0 {
		res.WarningFraction = fc.Resources.WarningFraction
	}
	if fc.Resources.CriticalFraction > 0 {
		res.CriticalFraction = fc.Resources.CriticalFraction
	}
	if fc.Resources.CacheMaxEntries > 0 {
		res.CacheMaxEntries = fc.Resources.CacheMaxEntries
	}

	memCfg := memory.Config{
		MaxMemoryGB:      res.MaxMemoryGB,
		WarningFraction:  res.WarningFraction,
		CriticalFraction: res.CriticalFraction,
		Strategy:         memory.PruneAdaptive,
	}
	if fc.Resources.PruneStrategy != "" {
		strat, err := parsePruneStrategy(fc.Resources.PruneStrategy)
		if err != nil {
			return gametree.GameParams{}, solver.IterConfig{}, solver.ResourceConfig{}, memory.Config{}, err
		}
		memCfg.Strategy = strat
	}

	if err := params.Validate(); err != nil {
		return gametree.GameParams{}, solver.IterConfig{}, solver.ResourceConfig{}, memory.Config{}, err
	}
	if err := iter.Validate(); err != nil {
		return gametree.GameParams{}, solver.IterConfig{}, solver.ResourceConfig{}, memory.Config{}, err
	}
	if err := res.Validate(); err != nil {
		return gametree.GameParams{}, solver.IterConfig{}, solver.ResourceConfig{}, memory.Config{}, err
	}
	return params, iter, res, memCfg, nil
}

func parseSamplingStrategy(s string) (solver.SamplingStrategy, error) {
	switch s {
	case "none":
		return solver.SamplingNone, nil
	case "chance":
		return solver.SamplingChance, nil
	case "outcome":
		return solver.SamplingOutcome, nil
	case "external":
		return solver.SamplingExternal, nil
	default:
		return 0, fmt.Errorf("%w: unknown sampling_strategy %q", errkind.ConfigInvalid, s)
	}
}

func parseLoadBalancing(s string) (solver.LoadBalancing, error) {
	switch s {
	case "static":
		return solver.LoadBalancingStatic, nil
	case "dynamic":
		return solver.LoadBalancingDynamic, nil
	case "work_stealing":
		return solver.LoadBalancingWorkStealing, nil
	default:
		return 0, fmt.Errorf("%w: unknown load_balancing %q", errkind.ConfigInvalid, s)
	}
}

func parsePruneStrategy(s string) (memory.PruneStrategy, error) {
	switch s {
	case "depth":
		return memory.PruneDepth, nil
	case "importance":
		return memory.PruneImportance, nil
	case "frequency":
		return memory.PruneFrequency, nil
	case "adaptive":
		return memory.PruneAdaptive, nil
	default:
		return 0, fmt.Errorf("%w: unknown prune_strategy %q", errkind.ConfigInvalid, s)
	}
}
