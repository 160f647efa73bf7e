package solver

import (
	"context"
	"fmt"

	"github.com/coder/quartz"

	"github.com/lox/cfrsolve/sdk/gametree"
	"github.com/lox/cfrsolve/sdk/scheduler"
)

// TrainReport is returned once Train stops, summarizing why and how far it
// got.
type TrainReport struct {
	Iterations     int64
	StopReason     StopReason
	Exploitability float64
}

// toSchedulerLoadBalancing maps the solver's resource-config enum onto the
// scheduler package's own, since the two packages intentionally don't share
// a dependency on each other's config types.
func toSchedulerLoadBalancing(lb LoadBalancing) scheduler.LoadBalancing {
	switch lb {
	case LoadBalancingStatic:
		return scheduler.Static
	case LoadBalancingWorkStealing:
		return scheduler.WorkStealing
	default:
		return scheduler.Dynamic
	}
}

// Train runs CFR to convergence (or until a stopping rule fires) over tree,
// accumulating into store. Each batch of cfg.CheckFrequency iterations is
// fanned out across a worker pool; every worker runs its own independent
// Deal and both-player traversal before the batch barrier, so the shared
// store never sees a partially-updated iteration.
func Train(ctx context.Context, tree *gametree.Tree, store InfoSetStoreIface, cfg IterConfig,
	res ResourceConfig, seed int64, hooks Hooks) (TrainReport, error) {

	if err := cfg.Validate(); err != nil {
		return TrainReport{}, err
	}
	if err := res.Validate(); err != nil {
		return TrainReport{}, err
	}

	sched, err := scheduler.New(scheduler.Config{
		NumThreads:    res.NumThreads,
		ChunkSize:     res.ChunkSize,
		LoadBalancing: toSchedulerLoadBalancing(res.LoadBalancing),
	})
	if err != nil {
		return TrainReport{}, err
	}

	clock := quartz.NewReal()
	ctrl := NewControl(cfg, clock)

	computeExploitability := hooks.ComputeExploitability
	if computeExploitability == nil {
		computeExploitability = MeanAbsoluteRegret
	}

	batch := int(cfg.CheckFrequency)
	if batch <= 0 {
		batch = 1
	}

	reason := StopNone
	for reason == StopNone {
		base := ctrl.Iteration()

		err := sched.RunBatch(ctx, batch, func(gctx context.Context, unitIndex int) error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			iteration := base + int64(unitIndex) + 1
			return runOneIteration(tree, store, cfg, seed, iteration)
		})
		if err != nil {
			return TrainReport{}, err
		}

		for i := 0; i < batch; i++ {
			ctrl.RecordIteration()
		}

		if s, ok := store.(*Store); ok {
			ctrl.RecordExploitability(computeExploitability(s))
		} else if cs, ok := store.(*CacheStore); ok {
			ctrl.RecordExploitability(computeExploitability(cs.Underlying()))
		}

		if hooks.OnProgress != nil {
			exploit, _ := ctrl.LastExploitability()
			hooks.OnProgress(IterationReport{
				Iteration:      ctrl.Iteration(),
				Exploitability: exploit,
				StopReason:     StopNone,
			})
		}

		reason = ctrl.ShouldStop()
	}

	exploit, _ := ctrl.LastExploitability()
	return TrainReport{
		Iterations:     ctrl.Iteration(),
		StopReason:     reason,
		Exploitability: exploit,
	}, nil
}

// runOneIteration runs both players' traversal passes over one iteration's
// hole cards. The two passes are independent (each updates only its own
// traverser's regrets) and share the same hole cards, matching the
// reasoning that since betting never changes which cards come next,
// there's no benefit to re-dealing between the seat-0 and seat-1 passes of
// the same iteration. When cfg.SamplingStrategy calls for "chance" or
// "none" board sampling, NewDealPool hands back more than one board
// realization; each is traversed independently for both seats and its
// contribution to the regret/strategy update is weighted by the pool's
// importance weight so the set of realizations stays an unbiased estimate
// of the chance node's true expectation.
func runOneIteration(tree *gametree.Tree, store InfoSetStoreIface, cfg IterConfig, seed, iteration int64) error {
	rng := NewFastRand(seed ^ iteration*0x9E3779B97F4A7C15)
	sampler := NewSampler(NewPCG32(seed ^ iteration))
	pool := NewDealPool(rng, sampler, cfg)

	for _, traverser := range [2]int8{0, 1} {
		for _, board := range pool.Boards {
			ctx := &IterationContext{
				Tree:       tree,
				Store:      store,
				Config:     cfg,
				Sampler:    sampler,
				Deal:       &Deal{Hole: pool.Hole, Board: board},
				Traverser:  traverser,
				DealWeight: pool.Weight,
			}
			if _, err := TraverseOnce(ctx, iteration); err != nil {
				return fmt.Errorf("traversal for seat %d at iteration %d: %w", traverser, iteration, err)
			}
		}
	}
	return nil
}
