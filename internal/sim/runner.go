package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/timewalk/tourguide/internal/tour"
	"github.com/timewalk/tourguide/pkg/core"
)

// Driver is what the runner ticks: the tour machine directly, or the command
// surface in front of it.
type Driver interface {
	Tick(scene core.SceneID, tel core.Telemetry, dt time.Duration) error
	TransitionDone(era core.SceneID) error
}

// Runner steps a World and a Driver in lockstep.
type Runner struct {
	world  *World
	driver Driver
	dt     time.Duration
	err    error
}

// NewRunner wires transition completion from the world into the driver.
func NewRunner(w *World, d Driver, dt time.Duration) *Runner {
	r := &Runner{world: w, driver: d, dt: dt}
	w.OnTransitionDone(func(era core.SceneID) {
		if err := d.TransitionDone(era); err != nil && r.err == nil {
			r.err = fmt.Errorf("reporting transition to %s: %w", era, err)
		}
	})
	return r
}

// Step runs one tick: the driver sees the current telemetry, then the world
// moves by dt.
func (r *Runner) Step() error {
	if err := r.driver.Tick(r.world.Era(), r.world.Telemetry(), r.dt); err != nil {
		return fmt.Errorf("tick %d: %w", r.world.Tick(), err)
	}
	r.world.Advance(r.dt)
	if r.err != nil {
		err := r.err
		r.err = nil
		return err
	}
	return nil
}

// Run steps n ticks, or until ctx is done. n <= 0 runs until ctx is done.
func (r *Runner) Run(ctx context.Context, n int) error {
	for i := 0; n <= 0 || i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.Step(); err != nil {
			return err
		}
	}
	return nil
}

// MachineDriver drives a tour machine without the command surface.
type MachineDriver struct {
	Machine *tour.Machine
}

func (d MachineDriver) Tick(scene core.SceneID, tel core.Telemetry, dt time.Duration) error {
	return d.Machine.Tick(scene, tel, dt)
}

func (d MachineDriver) TransitionDone(era core.SceneID) error {
	d.Machine.Enqueue(tour.TransitionDone{Era: era})
	return nil
}
