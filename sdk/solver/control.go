package solver

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/cfrsolve/sdk/errkind"
)

// StopReason names which stopping rule ended a run, in the fixed priority
// order Control evaluates them.
type StopReason string

const (
	StopNone                 StopReason = ""
	StopMaxIterations        StopReason = "max_iterations"
	StopTargetExploitability StopReason = "target_exploitability"
	StopMaxTime              StopReason = "max_time"
	StopCancelled            StopReason = "cancelled"
)

// Control tracks iteration count, elapsed wall time and a rolling
// exploitability history, and decides when training should stop. Time comes
// from an injected quartz.Clock so tests can drive max_time deterministically
// with quartz.NewMock instead of sleeping.
type Control struct {
	cfg       IterConfig
	clock     quartz.Clock
	startedAt time.Time
	iteration int64
	cancelled atomic.Bool

	exploitabilityHistory []float64
	maxHistory            int
}

// NewControl starts a new control loop against cfg, using clock for all
// elapsed-time checks.
func NewControl(cfg IterConfig, clock quartz.Clock) *Control {
	return &Control{
		cfg:        cfg,
		clock:      clock,
		startedAt:  clock.Now(),
		maxHistory: 64,
	}
}

// RecordIteration advances the iteration counter by one and should be called
// once per completed CFR iteration.
func (c *Control) RecordIteration() {
	c.iteration++
}

// Iteration returns the number of iterations recorded so far.
func (c *Control) Iteration() int64 { return c.iteration }

// RecordExploitability appends a new exploitability sample to the rolling
// history, evicting the oldest sample once the history is full.
func (c *Control) RecordExploitability(v float64) {
	c.exploitabilityHistory = append(c.exploitabilityHistory, v)
	if len(c.exploitabilityHistory) > c.maxHistory {
		c.exploitabilityHistory = c.exploitabilityHistory[1:]
	}
}

// LastExploitability returns the most recently recorded exploitability
// sample, and false if none has been recorded yet.
func (c *Control) LastExploitability() (float64, bool) {
	if len(c.exploitabilityHistory) == 0 {
		return 0, false
	}
	return c.exploitabilityHistory[len(c.exploitabilityHistory)-1], true
}

// Cancel requests an external stop, honored on the next ShouldStop check.
func (c *Control) Cancel() { c.cancelled.Store(true) }

// ShouldStop evaluates the four stopping rules in priority order -
// max_iterations, target_exploitability, max_time, external cancel - and
// reports the first one satisfied. It never reports a reason before
// min_iterations has been reached, and by convention the caller only needs
// to call it every check_frequency iterations.
func (c *Control) ShouldStop() StopReason {
	if c.iteration < c.cfg.MinIterations {
		return StopNone
	}

	if c.cfg.MaxIterations > 0 && c.iteration >= c.cfg.MaxIterations {
		return StopMaxIterations
	}
	if v, ok := c.LastExploitability(); ok && c.cfg.TargetExploitability > 0 && v <= c.cfg.TargetExploitability {
		return StopTargetExploitability
	}
	if c.cfg.MaxTimeSeconds > 0 {
		elapsed := c.clock.Now().Sub(c.startedAt).Seconds()
		if elapsed >= c.cfg.MaxTimeSeconds {
			return StopMaxTime
		}
	}
	if c.cancelled.Load() {
		return StopCancelled
	}
	return StopNone
}

// ShouldCheck reports whether the current iteration is one of the points at
// which the caller should evaluate ShouldStop, per cfg.CheckFrequency.
func (c *Control) ShouldCheck() bool {
	if c.cfg.CheckFrequency <= 0 {
		return true
	}
	return c.iteration%c.cfg.CheckFrequency == 0
}

// Snapshot captures the control loop's state for checkpointing.
type ControlSnapshot struct {
	Iteration             int64
	ExploitabilityHistory []float64
	ElapsedSeconds        float64
}

func (c *Control) Snapshot() ControlSnapshot {
	return ControlSnapshot{
		Iteration:             c.iteration,
		ExploitabilityHistory: append([]float64(nil), c.exploitabilityHistory...),
		ElapsedSeconds:        c.clock.Now().Sub(c.startedAt).Seconds(),
	}
}

// Restore re-seeds the control loop from a snapshot taken by Snapshot,
// effectively rewinding startedAt so MaxTimeSeconds measures cumulative
// elapsed time across a resume.
func (c *Control) Restore(s ControlSnapshot) error {
	if s.Iteration < 0 {
		return fmt.Errorf("%w: control snapshot has negative iteration %d", errkind.CheckpointIoError, s.Iteration)
	}
	c.iteration = s.Iteration
	c.exploitabilityHistory = append([]float64(nil), s.ExploitabilityHistory...)
	c.startedAt = c.clock.Now().Add(-time.Duration(s.ElapsedSeconds * float64(time.Second)))
	return nil
}
