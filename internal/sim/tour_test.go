package sim

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timewalk/tourguide/internal/config"
	"github.com/timewalk/tourguide/internal/storage/memory"
	"github.com/timewalk/tourguide/internal/tour"
	"github.com/timewalk/tourguide/pkg/core"
)

const step = 100 * time.Millisecond

type tourRig struct {
	world   *World
	machine *tour.Machine
	journal *memory.Backend
	runner  *Runner
}

func newTourRig(t *testing.T, cfg Config, tune func(*tour.Params)) *tourRig {
	t.Helper()

	cat := mall(t)
	cfg.Catalog = cat
	if cfg.TransitionTicks == 0 {
		cfg.TransitionTicks = 5
	}
	w := newWorld(t, cfg)

	p := tour.DefaultParams()
	p.PauseAtCameraDuration = 2 * time.Second
	p.ResumeDuration = time.Second
	p.ResumeDurationPeeking = time.Second
	p.PeekOnArrival = false
	p.SampleEveryTicks = 10
	p.Indoor = core.SpeedProfile{Name: "indoor", Speed: 5, Acceleration: 10}
	p.Outdoor = core.SpeedProfile{Name: "outdoor", Speed: 8, Acceleration: 10}
	if tune != nil {
		tune(&p)
	}

	journal := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, journal.Init())

	m, err := tour.New(w.Host(), tour.Options{
		Params:   p,
		Eras:     cat.Ring(),
		Origin:   cat.Origin(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder: journal,
	})
	require.NoError(t, err)
	for _, era := range cat.Ring() {
		require.NoError(t, m.Enable(era))
	}

	return &tourRig{
		world:   w,
		machine: m,
		journal: journal,
		runner:  NewRunner(w, MachineDriver{Machine: m}, step),
	}
}

func (r *tourRig) events(kind core.EventKind) []core.TourEvent {
	var out []core.TourEvent
	for _, e := range r.journal.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *tourRig) outcomes() []string {
	var out []string
	for _, e := range r.events(core.EventRecovery) {
		if o, ok := e.Detail["outcome"].(string); ok {
			out = append(out, o)
		}
	}
	return out
}

func TestTour_WalksEveryWaypoint(t *testing.T) {
	r := newTourRig(t, Config{Era: era1960}, nil)
	r.machine.Start()

	profiles := map[string]bool{}
	for i := 0; i < 600; i++ {
		require.NoError(t, r.runner.Step())
		profiles[r.world.Profile().Name] = true
	}

	advances := r.events(core.EventAdvance)
	require.GreaterOrEqual(t, len(advances), 4, "every waypoint should be visited once")
	for i, e := range advances[:4] {
		assert.Equal(t, era1960, e.Scene)
		assert.Equal(t, "dwell", e.Detail["reason"])
		assert.Equal(t, (i+1)%4, e.WaypointIndex)
	}

	assert.True(t, profiles["indoor"])
	assert.True(t, profiles["outdoor"], "the parking lot leg is long and outdoors")
	assert.Empty(t, r.outcomes(), "the 1960 concourse has no obstacles")

	_, _, calls := r.world.VisibilityState()
	assert.Positive(t, calls)
	assert.NotEmpty(t, r.journal.Samples())

	r.machine.End()
	path := r.journal.GetExportedFilePath()
	require.NotEmpty(t, path)
	_, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, len(advances), r.journal.GetExportMetadata().Waypoints)
}

func TestTour_PeekRoundTrip(t *testing.T) {
	r := newTourRig(t, Config{Era: era1960}, func(p *tour.Params) {
		p.PeekOnArrival = true
		p.PeekDuration = 3 * time.Second
		p.PrePeekDelay = 500 * time.Millisecond
		p.PeekTransitionDuration = 500 * time.Millisecond
	})
	r.machine.Start()

	sawPeeking := false
	for i := 0; i < 1000 && len(r.world.Transitions()) < 2; i++ {
		require.NoError(t, r.runner.Step())
		if r.machine.State() == tour.StatePeeking {
			sawPeeking = true
		}
	}
	require.NoError(t, r.runner.Run(t.Context(), 20))

	assert.True(t, sawPeeking)
	trans := r.world.Transitions()
	require.Len(t, trans, 2)
	assert.Equal(t, era1960, trans[0].From)
	assert.Equal(t, era1990, trans[0].To)
	assert.Equal(t, era1990, trans[1].From)
	assert.Equal(t, era1960, trans[1].To)
	for _, req := range trans {
		assert.InDelta(t, 0.5, req.Duration, 1e-9)
	}

	assert.Equal(t, era1960, r.world.Era())
	s, ok := r.machine.Session(era1960)
	require.True(t, ok)
	assert.Equal(t, "diner", s.Current().Name, "the peek finishes by moving past the fountain")
	assert.Equal(t, tour.StateActive, r.machine.State())
}

func TestTour_RecoversAroundObstacle(t *testing.T) {
	r := newTourRig(t, Config{Era: era1990}, nil)
	r.machine.Start()

	for i := 0; i < 1500; i++ {
		require.NoError(t, r.runner.Step())
		pos := r.world.Position()
		require.False(t, pos.X > 44 && pos.X < 48 && pos.Z > -3 && pos.Z < 3, "agent walked into the kiosk at %v", pos)
	}

	outcomes := r.outcomes()
	assert.Contains(t, outcomes, "redirected")
	assert.Contains(t, outcomes, "advanced")
	assert.NotContains(t, outcomes, "stalled")

	var reasons []string
	for _, e := range r.events(core.EventAdvance) {
		reasons = append(reasons, e.Detail["reason"].(string))
	}
	assert.Contains(t, reasons, "dwell")
	assert.Contains(t, reasons, "path recovery")
	assert.GreaterOrEqual(t, len(reasons), 4, "the tour keeps cycling")
}

func TestTour_OverrideThenRelocate(t *testing.T) {
	r := newTourRig(t, Config{
		Era:       era1960,
		Overrides: []OverrideWindow{{From: 20, To: 60, Velocity: core.Vec3{Z: 3}}},
	}, nil)
	r.machine.Start()

	sawPaused := false
	for i := 0; i < 200; i++ {
		require.NoError(t, r.runner.Step())
		if r.machine.State() == tour.StatePaused {
			sawPaused = true
		}
	}

	assert.True(t, sawPaused)
	assert.Positive(t, r.world.Warps())
	assert.Contains(t, r.outcomes(), "relocated")
	assert.True(t, r.world.Telemetry().OnNavigableSurface)
	assert.Equal(t, tour.StateActive, r.machine.State())
}

func TestRunner_StopsOnContext(t *testing.T) {
	r := newTourRig(t, Config{Era: era1960}, nil)

	require.NoError(t, r.runner.Run(t.Context(), 5))
	assert.Equal(t, uint64(5), r.world.Tick())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, r.runner.Run(ctx, 0), context.Canceled)
	assert.Equal(t, uint64(5), r.world.Tick())
}

func TestRunner_DisabledSceneFails(t *testing.T) {
	r := newTourRig(t, Config{Era: era1960}, nil)
	require.NoError(t, r.machine.Disable(era1960))

	err := r.runner.Step()
	assert.ErrorIs(t, err, tour.ErrSceneDisabled)
}
