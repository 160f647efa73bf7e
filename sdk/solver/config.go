package solver

import (
	"fmt"
	"math"

	"github.com/lox/cfrsolve/sdk/errkind"
)

// SamplingStrategy selects which Monte Carlo CFR sampling policy the
// traversal applies at chance nodes (and, for External, at the opponent's
// decision nodes too).
type SamplingStrategy int

const (
	SamplingNone SamplingStrategy = iota
	SamplingChance
	SamplingOutcome
	SamplingExternal
)

func (s SamplingStrategy) String() string {
	switch s {
	case SamplingNone:
		return "none"
	case SamplingChance:
		return "chance"
	case SamplingOutcome:
		return "outcome"
	case SamplingExternal:
		return "external"
	default:
		return "unknown"
	}
}

// IterConfig configures a single call to Train (or repeated CFRIteration
// calls): the CFR variant, sampling behavior, pruning, and stopping
// criteria.
type IterConfig struct {
	UseCFRPlus         bool
	UseLinearWeighting bool
	DiscountFactor     float64 // in (0,1]; 1 disables discounting
	UseSampling        bool
	SamplingStrategy   SamplingStrategy
	SamplingProbability float64 // in (0,1]
	PruneThreshold     float64 // may be math.Inf(-1) to disable pruning

	MaxIterations       int64
	MinIterations       int64
	TargetExploitability float64
	MaxTimeSeconds      float64
	CheckFrequency      int64
}

// DefaultIterConfig returns vanilla full-traversal CFR with no pruning,
// stopping at 1000 iterations.
func DefaultIterConfig() IterConfig {
	return IterConfig{
		DiscountFactor:       1,
		SamplingProbability:  1,
		PruneThreshold:       math.Inf(-1),
		MaxIterations:        1000,
		MaxTimeSeconds:       3600,
		CheckFrequency:       100,
	}
}

// Validate reports a ConfigInvalid-class error for any inconsistent field.
func (c IterConfig) Validate() error {
	if c.DiscountFactor <= 0 || c.DiscountFactor > 1 {
		return fmt.Errorf("%w: discount_factor must be in (0,1]", errkind.ConfigInvalid)
	}
	if c.UseSampling {
		if c.SamplingProbability <= 0 || c.SamplingProbability > 1 {
			return fmt.Errorf("%w: sampling_probability must be in (0,1]", errkind.ConfigInvalid)
		}
		switch c.SamplingStrategy {
		case SamplingNone, SamplingChance, SamplingOutcome, SamplingExternal:
		default:
			return fmt.Errorf("%w: unknown sampling_strategy", errkind.ConfigInvalid)
		}
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be > 0", errkind.ConfigInvalid)
	}
	if c.MinIterations < 0 {
		return fmt.Errorf("%w: min_iterations must be >= 0", errkind.ConfigInvalid)
	}
	if c.TargetExploitability < 0 {
		return fmt.Errorf("%w: target_exploitability must be >= 0", errkind.ConfigInvalid)
	}
	if c.MaxTimeSeconds <= 0 {
		return fmt.Errorf("%w: max_time_seconds must be > 0", errkind.ConfigInvalid)
	}
	if c.CheckFrequency <= 0 {
		return fmt.Errorf("%w: check_frequency must be > 0", errkind.ConfigInvalid)
	}
	return nil
}

// LoadBalancing selects how the scheduler distributes one iteration's
// root-level work items across worker goroutines.
type LoadBalancing int

const (
	LoadBalancingStatic LoadBalancing = iota
	LoadBalancingDynamic
	LoadBalancingWorkStealing
)

func (l LoadBalancing) String() string {
	switch l {
	case LoadBalancingStatic:
		return "static"
	case LoadBalancingDynamic:
		return "dynamic"
	case LoadBalancingWorkStealing:
		return "work_stealing"
	default:
		return "unknown"
	}
}

// ResourceConfig configures the scheduler, memory manager, and cache layer
// shared across a training run.
type ResourceConfig struct {
	NumThreads      int // 0 = auto (runtime.NumCPU)
	ChunkSize       int
	LoadBalancing   LoadBalancing
	MaxMemoryGB     float64
	WarningFraction float64
	CriticalFraction float64
	CacheMaxEntries int
	CacheEviction   EvictionPolicy
}

// DefaultResourceConfig returns a modest single-machine configuration.
func DefaultResourceConfig() ResourceConfig {
	return ResourceConfig{
		ChunkSize:        64,
		LoadBalancing:    LoadBalancingDynamic,
		MaxMemoryGB:      4,
		WarningFraction:  0.75,
		CriticalFraction: 0.9,
		CacheMaxEntries:  1_000_000,
		CacheEviction:    EvictionLRU,
	}
}

// Validate reports a ConfigInvalid-class error for any inconsistent field.
func (c ResourceConfig) Validate() error {
	if c.NumThreads < 0 {
		return fmt.Errorf("%w: num_threads must be >= 0", errkind.ConfigInvalid)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be > 0", errkind.ConfigInvalid)
	}
	if c.MaxMemoryGB <= 0 {
		return fmt.Errorf("%w: max_memory_gb must be > 0", errkind.ConfigInvalid)
	}
	if c.WarningFraction <= 0 || c.WarningFraction >= 1 {
		return fmt.Errorf("%w: warning_fraction must be in (0,1)", errkind.ConfigInvalid)
	}
	if c.CriticalFraction <= 0 || c.CriticalFraction >= 1 {
		return fmt.Errorf("%w: critical_fraction must be in (0,1)", errkind.ConfigInvalid)
	}
	if c.WarningFraction >= c.CriticalFraction {
		return fmt.Errorf("%w: warning_fraction must be < critical_fraction", errkind.ConfigInvalid)
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("%w: cache_max_entries must be > 0", errkind.ConfigInvalid)
	}
	return nil
}
