// Package scheduler distributes a batch of independent root-to-leaf CFR
// traversals across worker goroutines, one call per iteration, with a hard
// barrier between batches so checkpointing and stopping-rule checks always
// see a consistent iteration count.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lox/cfrsolve/sdk/errkind"
)

// LoadBalancing selects how a batch of iteration indices is handed out to
// worker goroutines.
type LoadBalancing int

const (
	// Static splits the batch into NumThreads contiguous chunks up front.
	Static LoadBalancing = iota
	// Dynamic has every worker pull the next unclaimed index from a shared
	// atomic counter, so a slow iteration never stalls idle workers.
	Dynamic
	// WorkStealing gives every worker its own contiguous range and lets an
	// idle worker steal remaining work from the back of whichever other
	// range has the most left once its own range is exhausted.
	WorkStealing
)

func (lb LoadBalancing) String() string {
	switch lb {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case WorkStealing:
		return "work_stealing"
	default:
		return "unknown"
	}
}

// Config controls how a Scheduler fans work out across goroutines.
type Config struct {
	NumThreads    int
	ChunkSize     int
	LoadBalancing LoadBalancing
}

// Scheduler runs batches of independent, same-shaped units of work (one CFR
// traversal per unit) across a bounded worker pool.
type Scheduler struct {
	cfg Config
	sem *semaphore.Weighted
}

// New builds a Scheduler from cfg, defaulting NumThreads to the number of
// available CPUs when unset.
func New(cfg Config) (*Scheduler, error) {
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = defaultThreads()
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: scheduler chunk size must be positive", errkind.ConfigInvalid)
	}
	return &Scheduler{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.NumThreads)),
	}, nil
}

// Work is one scheduled unit: the batch-relative index it was given. The
// caller's closure captures whatever per-unit state (iteration number, RNG,
// Deal) it needs.
type Work func(ctx context.Context, unitIndex int) error

// RunBatch executes n units of work, distributed per the scheduler's
// LoadBalancing strategy, and returns on the first error (cancelling the
// rest via the shared context) or after every unit completes. It is a full
// barrier: no caller-visible work from the next batch starts until this one
// returns.
func (s *Scheduler) RunBatch(ctx context.Context, n int, work Work) error {
	if n <= 0 {
		return nil
	}

	switch s.cfg.LoadBalancing {
	case Static:
		return s.runStatic(ctx, n, work)
	case WorkStealing:
		return s.runWorkStealing(ctx, n, work)
	default:
		return s.runDynamic(ctx, n, work)
	}
}

func (s *Scheduler) runDynamic(ctx context.Context, n int, work Work) error {
	var next int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.cfg.NumThreads; w++ {
		g.Go(func() error {
			if err := s.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.sem.Release(1)
			for {
				i := int(atomic.AddInt64(&next, 1)) - 1
				if i >= n {
					return nil
				}
				if err := work(gctx, i); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}

func (s *Scheduler) runStatic(ctx context.Context, n int, work Work) error {
	chunk := (n + s.cfg.NumThreads - 1) / s.cfg.NumThreads
	if chunk < 1 {
		chunk = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			if err := s.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.sem.Release(1)
			for i := start; i < end; i++ {
				if err := work(gctx, i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// runWorkStealing gives each worker an initial contiguous range of
// ceil(n/NumThreads) indices and, once a worker exhausts its own range, has it steal
// remaining indices off the tail of the range with the most work left.
func (s *Scheduler) runWorkStealing(ctx context.Context, n int, work Work) error {
	workers := s.cfg.NumThreads
	ranges := make([]*workerRange, workers)
	per := (n + workers - 1) / workers
	if per < 1 {
		per = 1
	}
	for w := 0; w < workers; w++ {
		start := w * per
		end := start + per
		if start > n {
			start = n
		}
		if end > n {
			end = n
		}
		ranges[w] = &workerRange{start: int64(start), end: int64(end)}
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			if err := s.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.sem.Release(1)
			for {
				i, ok := ranges[w].take()
				if !ok {
					i, ok = steal(ranges, w)
					if !ok {
						return nil
					}
				}
				if err := work(gctx, i); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}

type workerRange struct {
	start, end int64 // end is exclusive; [start,end) owned by this worker
}

func (r *workerRange) take() (int, bool) {
	i := atomic.AddInt64(&r.start, 1) - 1
	if i >= atomic.LoadInt64(&r.end) {
		return 0, false
	}
	return int(i), true
}

// steal takes one index off the tail of whichever other range currently has
// the most remaining work.
func steal(ranges []*workerRange, self int) (int, bool) {
	best := -1
	bestRemaining := int64(0)
	for i, r := range ranges {
		if i == self {
			continue
		}
		remaining := atomic.LoadInt64(&r.end) - atomic.LoadInt64(&r.start)
		if remaining > bestRemaining {
			bestRemaining = remaining
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	r := ranges[best]
	end := atomic.AddInt64(&r.end, -1)
	if end < atomic.LoadInt64(&r.start) {
		// Lost the race; restore and report nothing stolen this round.
		atomic.AddInt64(&r.end, 1)
		return 0, false
	}
	return int(end), true
}

func defaultThreads() int {
	return maxInt(1, runtime.NumCPU())
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
