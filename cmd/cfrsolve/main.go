// Command cfrsolve drives a heads-up limit hold'em CFR solve from the
// command line: run a fresh solve from an HCL config file, resume one from
// a checkpoint, list checkpoints in a directory, or export a blueprint
// from a checkpoint's information sets.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/cfrsolve/sdk/errkind"
	"github.com/lox/cfrsolve/sdk/memory"
	"github.com/lox/cfrsolve/sdk/solver"
)

const (
	exitStopped  = 0
	exitCancelled = 1
	exitConfigError = 2
	exitCheckpointError = 3
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Solve           SolveCmd           `cmd:"" help:"run a fresh solve from an HCL config file"`
	Resume          ResumeCmd          `cmd:"" help:"resume a solve from a checkpoint"`
	ListCheckpoints ListCheckpointsCmd `cmd:"list-checkpoints" help:"list checkpoints in a directory"`
	ExportStrategy  ExportStrategyCmd  `cmd:"export-strategy" help:"export a blueprint from a checkpoint"`
}

type SolveCmd struct {
	Config         string `help:"path to the HCL solve configuration" required:"" type:"existingfile"`
	Seed           int64  `help:"master RNG seed" default:"1"`
	CheckpointDir  string `help:"directory to write periodic checkpoints into"`
	CheckpointEvery int64 `help:"write a checkpoint every N iterations (0 disables)" default:"0"`
	Quiet          bool   `help:"disable the live progress display"`
}

type ResumeCmd struct {
	Checkpoint     string `help:"path to the checkpoint to resume from" required:"" type:"existingfile"`
	CheckpointDir  string `help:"directory to write further periodic checkpoints into"`
	CheckpointEvery int64 `help:"write a checkpoint every N iterations (0 disables)" default:"0"`
	Quiet          bool   `help:"disable the live progress display"`
}

type ListCheckpointsCmd struct {
	Dir string `help:"directory to scan for checkpoint files" arg:"" type:"existingdir"`
}

type ExportStrategyCmd struct {
	Checkpoint string `help:"path to the checkpoint to export" required:"" type:"existingfile"`
	Out        string `help:"path to write the blueprint to" required:""`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("cfrsolve"),
		kong.Description("heads-up limit hold'em CFR solver"),
		kong.UsageOnError(),
	)

	logger := log.New(os.Stderr)
	if cli.Debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}

	var code int
	switch ctx.Command() {
	case "solve":
		code = runSolve(logger, &cli.Solve)
	case "resume":
		code = runResume(logger, &cli.Resume)
	case "list-checkpoints <dir>":
		code = runListCheckpoints(logger, &cli.ListCheckpoints)
	case "export-strategy":
		code = runExportStrategy(logger, &cli.ExportStrategy)
	default:
		logger.Fatal("unknown command", "command", ctx.Command())
	}
	os.Exit(code)
}

func runSolve(logger *log.Logger, cmd *SolveCmd) int {
	params, iterCfg, res, memCfg, err := loadConfig(cmd.Config)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		return exitConfigError
	}

	engine, err := solver.NewEngine(params, solver.CacheConfig{MaxEntries: res.CacheMaxEntries, Eviction: res.CacheEviction}, cmd.Seed)
	if err != nil {
		logger.Error("failed to build engine", "err", err)
		return exitConfigError
	}

	ctrl := solver.NewControl(iterCfg, quartz.NewReal())
	return runLoop(logger, engine, ctrl, iterCfg, memCfg, cmd.CheckpointDir, cmd.CheckpointEvery, cmd.Quiet)
}

func runResume(logger *log.Logger, cmd *ResumeCmd) int {
	snap, err := solver.LoadCheckpoint(cmd.Checkpoint)
	if err != nil {
		logger.Error("failed to load checkpoint", "err", err)
		return exitCheckpointError
	}

	engine, ctrl, err := solver.RestoreEngine(snap, solver.CacheConfig{MaxEntries: snap.IterConfig.CheckFrequency * 1000, Eviction: solver.EvictionLRU})
	if err != nil {
		logger.Error("failed to restore engine", "err", err)
		return exitCheckpointError
	}

	memCfg := memory.Config{MaxMemoryGB: 4, WarningFraction: 0.75, CriticalFraction: 0.9, Strategy: memory.PruneAdaptive}
	return runLoop(logger, engine, ctrl, snap.IterConfig, memCfg, cmd.CheckpointDir, cmd.CheckpointEvery, cmd.Quiet)
}

// runLoop drives the iterate/check/prune/checkpoint cycle directly rather
// than through solver.Train, since the CLI needs to interleave memory
// pruning and checkpoint writes between iterations - both of which live
// outside the solver package to avoid a solver<->memory import cycle.
func runLoop(logger *log.Logger, engine *solver.Engine, ctrl *solver.Control, iterCfg solver.IterConfig,
	memCfg memory.Config, checkpointDir string, checkpointEvery int64, quiet bool) int {

	memMgr, err := memory.New(memCfg, nil)
	if err != nil {
		logger.Error("invalid memory configuration", "err", err)
		return exitConfigError
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; ok {
			logger.Warn("cancel requested, finishing the current iteration")
			ctrl.Cancel()
		}
	}()
	defer signal.Stop(sigCh)

	progressCh := make(chan progressMsg, 1)
	memoryCh := make(chan memoryMsg, 1)
	doneCh := make(chan progressDone, 1)

	var program *tea.Program
	done := make(chan struct{})
	if !quiet {
		program = tea.NewProgram(newProgressModel(progressCh, memoryCh, doneCh))
		go func() {
			if _, err := program.Run(); err != nil {
				logger.Error("progress display exited", "err", err)
			}
			close(done)
		}()
	} else {
		close(done)
	}

	bestExploitability := -1.0
	var bestPath string
	reason := solver.StopNone

	for reason == solver.StopNone {
		iteration := ctrl.Iteration() + 1
		if err := engine.CFRIteration(iterCfg, iteration); err != nil {
			finish(doneCh, done, program, solver.TrainReport{}, err)
			logger.Error("iteration failed", "iteration", iteration, "err", err)
			return exitCheckpointError
		}
		ctrl.RecordIteration()

		if !ctrl.ShouldCheck() {
			continue
		}

		exploit := solver.MeanAbsoluteRegret(engine.Store.Underlying())
		ctrl.RecordExploitability(exploit)

		report := solver.IterationReport{
			Iteration:      ctrl.Iteration(),
			StoreSize:      engine.Store.Size(),
			CacheStats:     engine.Store.Stats(),
			Exploitability: exploit,
		}
		logger.Info("progress", "iteration", report.Iteration, "infosets", report.StoreSize, "exploitability", exploit)
		if !quiet {
			select {
			case progressCh <- progressMsg(report):
			default:
			}
		}

		memStats := memMgr.MaybePrune(engine.Store.Underlying())
		if memStats.Pruned > 0 {
			logger.Warn("pruned information sets under memory pressure", "pruned", memStats.Pruned, "remaining", memStats.RecordsAfter)
		}
		if !quiet {
			select {
			case memoryCh <- memoryMsg(memStats):
			default:
			}
		}

		if checkpointDir != "" && checkpointEvery > 0 && ctrl.Iteration()%checkpointEvery == 0 {
			path := filepath.Join(checkpointDir, fmt.Sprintf("checkpoint-%010d.json", ctrl.Iteration()))
			snap := engine.Snapshot(iterCfg, ctrl)
			if err := solver.SaveCheckpoint(snap, path); err != nil {
				logger.Warn("checkpoint write failed, continuing without it", "err", err)
			} else {
				logger.Info("checkpoint written", "path", path)
				if bestExploitability < 0 || exploit < bestExploitability {
					bestExploitability = exploit
					bestPath = path
				}
			}
		}

		reason = ctrl.ShouldStop()
	}

	exploit, _ := ctrl.LastExploitability()
	report := solver.TrainReport{Iterations: ctrl.Iteration(), StopReason: reason, Exploitability: exploit}
	finish(doneCh, done, program, report, nil)

	if bestPath != "" {
		logger.Info("best checkpoint by exploitability", "path", bestPath, "exploitability", bestExploitability)
	}
	logger.Info("solve finished", "iterations", report.Iterations, "stopping_reason", string(report.StopReason))

	if reason == solver.StopCancelled {
		return exitCancelled
	}
	return exitStopped
}

func finish(doneCh chan progressDone, done chan struct{}, program *tea.Program, report solver.TrainReport, err error) {
	select {
	case doneCh <- progressDone{report: report, err: err}:
	default:
	}
	if program != nil {
		<-done
	}
}

func runListCheckpoints(logger *log.Logger, cmd *ListCheckpointsCmd) int {
	entries, err := os.ReadDir(cmd.Dir)
	if err != nil {
		logger.Error("failed to read checkpoint directory", "err", err)
		return exitCheckpointError
	}

	type row struct {
		path       string
		iteration  int64
		modified   time.Time
	}
	var rows []row
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		path := filepath.Join(cmd.Dir, ent.Name())
		snap, err := solver.LoadCheckpoint(path)
		if err != nil {
			continue
		}
		info, statErr := ent.Info()
		modified := time.Time{}
		if statErr == nil {
			modified = info.ModTime()
		}
		rows = append(rows, row{path: path, iteration: snap.Control.Iteration, modified: modified})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].modified.Before(rows[j].modified) })

	for _, r := range rows {
		fmt.Printf("%s\titeration=%d\tmodified=%s\n", r.path, r.iteration, r.modified.Format(time.RFC3339))
	}
	if len(rows) == 0 {
		fmt.Println("no checkpoints found")
	}
	return exitStopped
}

func runExportStrategy(logger *log.Logger, cmd *ExportStrategyCmd) int {
	snap, err := solver.LoadCheckpoint(cmd.Checkpoint)
	if err != nil {
		logger.Error("failed to load checkpoint", "err", err)
		return exitCheckpointError
	}
	store, _, err := snap.Restore()
	if err != nil {
		logger.Error("failed to restore checkpoint", "err", err)
		return exitCheckpointError
	}
	bp := solver.BuildBlueprint(snap.GameParams, snap.Control.Iteration, store)
	if err := bp.Save(cmd.Out); err != nil {
		if errors.Is(err, errkind.CheckpointIoError) {
			logger.Error("failed to write blueprint", "err", err)
			return exitCheckpointError
		}
		logger.Error("failed to write blueprint", "err", err)
		return exitConfigError
	}
	logger.Info("blueprint exported", "path", cmd.Out, "strategies", len(bp.Strategies))
	return exitStopped
}
