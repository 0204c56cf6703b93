// Package driver implements the Time-Step Driver (C9) of spec.md S4.9:
// the top-level loop that runs VectorPatch.Step once per timestep,
// watches for an early-exit request, periodically prints wall-clock
// timing the way gocfd's own Solve loop does, and dumps a checkpoint on
// the deck's schedule.
package driver

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/notargets/pic/checkpoint"
	"github.com/notargets/pic/config"
	"github.com/notargets/pic/diag"
	"github.com/notargets/pic/loadbalance"
	"github.com/notargets/pic/mirror"
	"github.com/notargets/pic/vectorpatch"
	"github.com/notargets/pic/window"
)

// ExitASAP is the broadcastable early-exit flag of spec.md S4.9/S5: a
// signal handler or wall-time watchdog on the master process sets it,
// and every rank checks it once per step before deciding whether to
// keep iterating. The flag itself lives in shared memory for a
// single-process run; a multi-process run would broadcast it through
// the checkpoint-dump/transport layer, which is outside this package's
// scope (spec.md S1 names process orchestration as an external
// collaborator).
type ExitASAP struct {
	flag atomic.Bool
}

func (e *ExitASAP) Set() { e.flag.Store(true) }

func (e *ExitASAP) IsSet() bool { return e.flag.Load() }

// WatchSignals sets e on SIGINT/SIGTERM, mirroring the signal-driven
// early-exit spec.md S4.9 calls out alongside the wall-time watchdog.
// Call once per process; returns a stop function that releases the
// signal handler.
func WatchSignals(e *ExitASAP) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			e.Set()
		case <-done:
		}
	}()
	return func() { close(done); signal.Stop(ch) }
}

// Config bundles everything Run needs beyond the VectorPatch itself.
type Config struct {
	Deck          *config.DeckParams
	CellsPerPatch []int
	Window        *window.Window // nil if the deck has no moving window
	LoadBalance   *loadbalance.Schedule
	Cost          loadbalance.CostModel
	Sink          diag.Sink

	CheckpointEvery int
	CheckpointDir   string

	// PrintEvery prints a status line every N steps (0 disables).
	PrintEvery int

	// StartStep resumes the loop after a restart (spec.md S4.8): 0 for a
	// fresh run, otherwise the step number the loaded checkpoint was
	// dumped at. Simulated time is reconstructed as StartStep*dt, since
	// the timestep is fixed for the life of a run.
	StartStep int

	// StartNMoved restores the moving window's offset on a restart
	// (spec.md S3, S4.8 "n_moved is restored to reconstruct global
	// coordinates"). Ignored when Window is nil.
	StartNMoved int
}

// Run executes spec.md S4.9's time loop: Initialize's Poisson solve (if
// enabled), then NTime iterations of VectorPatch.Step, checking exitASAP
// and the checkpoint schedule once per step, the way gocfd's Euler.Solve
// loop checks CheckIfFinished and PrintUpdate once per RK step.
func Run(vp *vectorpatch.VectorPatch, dom *mirror.Domain, cfg Config, exitASAP *ExitASAP) error {
	if err := vp.Initialize(dom, cfg.CellsPerPatch); err != nil {
		return err
	}
	if cfg.Window != nil {
		cfg.Window.NMoved = cfg.StartNMoved
	}

	deck := cfg.Deck
	dt := deck.Timestep
	t := float64(cfg.StartStep) * dt
	var elapsed time.Duration
	rank := int(vp.Transport.Rank())

	for step := cfg.StartStep + 1; step <= deck.NTime; step++ {
		if exitASAP != nil && exitASAP.IsSet() {
			if err := dumpCheckpoint(vp, cfg, step-1); err != nil {
				return err
			}
			break
		}

		start := time.Now()
		if err := vp.Step(dom, cfg.CellsPerPatch, cfg.Window, cfg.LoadBalance, cfg.Cost, cfg.Sink, step, t, dt); err != nil {
			return err
		}
		elapsed += time.Since(start)
		t += dt

		if cfg.CheckpointEvery > 0 && step%cfg.CheckpointEvery == 0 {
			if err := dumpCheckpoint(vp, cfg, step); err != nil {
				// spec.md S7.4: a dump failure is non-fatal, log and continue.
				fmt.Fprintf(os.Stderr, "rank %d: checkpoint at step %d failed: %v\n", rank, step, err)
			}
		}

		if cfg.PrintEvery > 0 && (step%cfg.PrintEvery == 0 || step == deck.NTime) {
			printStatus(rank, step, deck.NTime, t, elapsed)
		}
	}

	return nil
}

func printStatus(rank int, step, nTime int, t float64, elapsed time.Duration) {
	perStep := float64(elapsed.Microseconds())
	if step > 0 {
		perStep /= float64(step)
	}
	fmt.Printf("rank %d: step %d/%d  t=%8.5f  elapsed=%v  (%.1f us/step)\n",
		rank, step, nTime, t, elapsed, perStep)
}

// dumpCheckpoint gathers this rank's owned patch snapshots into a
// checkpoint.Envelope and writes it (spec.md S4.8). The parameter
// digest is recomputed here rather than cached so a config change
// mid-flight (there is none in this engine) can never drift silently
// out of sync with what gets written.
func dumpCheckpoint(vp *vectorpatch.VectorPatch, cfg Config, step int) error {
	env := checkpoint.Envelope{
		Step:         step,
		ParamsDigest: cfg.Deck.Digest(),
		Patches:      map[int][]byte{},
	}
	if cfg.Window != nil {
		env.NMoved = cfg.Window.NMoved
	}
	for gi, p := range vp.Owned {
		blob, err := p.Snapshot()
		if err != nil {
			return err
		}
		env.Patches[gi] = blob
	}
	env.PatchDistribution = vp.Decomp.Counts()
	return checkpoint.Dump(cfg.CheckpointDir, env)
}
