package handlers

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timewalk/tourguide/internal/catalog"
	"github.com/timewalk/tourguide/internal/dispatcher"
	"github.com/timewalk/tourguide/internal/logging"
	"github.com/timewalk/tourguide/internal/parser"
	"github.com/timewalk/tourguide/internal/sim"
	"github.com/timewalk/tourguide/internal/tour"
	"github.com/timewalk/tourguide/pkg/core"
)

const (
	era1960 core.SceneID = "mall-1960"
	era1990 core.SceneID = "mall-1990"
)

type rig struct {
	world      *sim.World
	machine    *tour.Machine
	service    *Service
	dispatcher *dispatcher.Dispatcher
	ended      int
}

func newRig(t *testing.T, tickOpts ...dispatcher.Option) *rig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cat, err := catalog.Load(filepath.Join("..", "catalog", "testdata", "mall.yaml"))
	require.NoError(t, err)
	w, err := sim.New(sim.Config{Catalog: cat, Era: era1960, TransitionTicks: 3})
	require.NoError(t, err)

	p := tour.DefaultParams()
	p.PauseAtCameraDuration = time.Second
	p.ResumeDuration = 500 * time.Millisecond
	p.PeekOnArrival = false
	m, err := tour.New(w.Host(), tour.Options{
		Params: p,
		Eras:   cat.Ring(),
		Origin: cat.Origin(),
		Logger: logger,
	})
	require.NoError(t, err)

	d, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	r := &rig{world: w, machine: m, dispatcher: d}
	r.service = NewService(Dependencies{
		Machine: m,
		Parser:  parser.NewParser(logger),
		Logger:  logger,
		OnEnd:   func() { r.ended++ },
	})
	r.service.Register(d, tickOpts...)
	return r
}

func (r *rig) call(t *testing.T, cmd string, args ...string) any {
	t.Helper()
	res, err := r.dispatcher.Dispatch(dispatcher.Event{Command: cmd, Args: args})
	require.NoError(t, err, cmd)
	return res
}

func TestRegister_AllCommands(t *testing.T) {
	r := newRig(t)
	assert.Equal(t, []string{
		CmdDisable, CmdEnable, CmdEnd, CmdStart, CmdStatus, CmdTick, CmdTimeTravel, CmdTransitionDone,
	}, r.dispatcher.Commands())
}

func TestLifecycle(t *testing.T) {
	r := newRig(t)

	assert.Equal(t, "inactive", r.call(t, CmdStatus))
	assert.Equal(t, Ok, r.call(t, CmdEnable, `"mall-1960"`))
	assert.Equal(t, Ok, r.call(t, CmdEnable, "mall-1990"))
	assert.Equal(t, "active", r.call(t, CmdStart))

	st := r.service.Status()
	assert.Equal(t, era1960, st.Scene)
	assert.Equal(t, 4, st.Waypoints)
	assert.NotEmpty(t, st.SessionID)

	assert.Equal(t, Ok, r.call(t, CmdEnd))
	assert.Equal(t, Ok, r.call(t, CmdEnd))
	assert.Equal(t, 1, r.ended, "OnEnd only runs when a tour was running")
	assert.Equal(t, "inactive", r.call(t, CmdStatus))
}

func TestEnable_Errors(t *testing.T) {
	r := newRig(t)

	_, err := r.dispatcher.Dispatch(dispatcher.Event{Command: CmdEnable})
	assert.ErrorIs(t, err, parser.ErrArgs)

	_, err = r.dispatcher.Dispatch(dispatcher.Event{Command: CmdEnable, Args: []string{"atlantis"}})
	assert.ErrorIs(t, err, catalog.ErrUnknownEra)

	_, err = r.dispatcher.Dispatch(dispatcher.Event{Command: CmdDisable, Args: []string{"mall-1960"}})
	assert.ErrorIs(t, err, tour.ErrUnknownScene)
}

func TestTick_Errors(t *testing.T) {
	r := newRig(t)
	r.call(t, CmdEnable, "mall-1960")

	_, err := r.dispatcher.Dispatch(dispatcher.Event{
		Command: CmdTick, Args: []string{"mall-1990", "0.1", `{"position":[0,0,0]}`},
	})
	assert.ErrorIs(t, err, tour.ErrUnknownScene)

	_, err = r.dispatcher.Dispatch(dispatcher.Event{
		Command: CmdTick, Args: []string{"mall-1960", "0.1", `{"velocity":[0,0,0]}`},
	})
	assert.Error(t, err, "position is required")

	r.call(t, CmdDisable, "mall-1960")
	_, err = r.dispatcher.Dispatch(dispatcher.Event{
		Command: CmdTick, Args: []string{"mall-1960", "0.1", `{"position":[0,0,0]}`},
	})
	assert.ErrorIs(t, err, tour.ErrSceneDisabled)
}

func TestCommandDriver_WalksTour(t *testing.T) {
	r := newRig(t)
	r.call(t, CmdEnable, "mall-1960")
	r.call(t, CmdStart)

	runner := sim.NewRunner(r.world, CommandDriver{Dispatcher: r.dispatcher}, 100*time.Millisecond)
	require.NoError(t, runner.Run(context.Background(), 250))

	st := r.service.Status()
	assert.Equal(t, uint64(250), st.Tick)
	assert.Positive(t, st.WaypointIndex, "the agent should have passed the entrance")
	assert.Greater(t, r.world.Position().X, 5.0)
}

func TestCommandDriver_TimeTravel(t *testing.T) {
	r := newRig(t)
	r.call(t, CmdEnable, "mall-1960")
	r.call(t, CmdEnable, "mall-1990")
	r.call(t, CmdStart)

	runner := sim.NewRunner(r.world, CommandDriver{Dispatcher: r.dispatcher}, 100*time.Millisecond)
	require.NoError(t, runner.Step())

	assert.Equal(t, Ok, r.call(t, CmdTimeTravel))
	require.NoError(t, runner.Run(context.Background(), 10))

	trans := r.world.Transitions()
	require.Len(t, trans, 1)
	assert.Equal(t, era1960, trans[0].From)
	assert.Equal(t, era1990, trans[0].To)
	assert.Equal(t, era1990, r.world.Era())

	st := r.service.Status()
	assert.Equal(t, era1990, st.Scene)
	assert.Empty(t, st.Transitioning, "the host reported the transition done")
}

func TestTick_Buffered(t *testing.T) {
	r := newRig(t, dispatcher.Buffered(16), dispatcher.Blocking())
	r.call(t, CmdEnable, "mall-1960")

	payload, err := parser.EncodeTelemetry(r.world.Telemetry())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.Equal(t, dispatcher.Queued, r.call(t, CmdTick, "mall-1960", "0.1", payload))
	}

	r.dispatcher.Close()
	assert.Equal(t, uint64(5), r.service.Status().Tick)
}

func TestLastStatus_TracksCommands(t *testing.T) {
	r := newRig(t)
	assert.Equal(t, tour.StateInactive, r.service.LastStatus().State)

	r.call(t, CmdEnable, "mall-1960")
	r.call(t, CmdStart)
	assert.Equal(t, tour.StateActive, r.service.LastStatus().State)
	assert.Equal(t, era1960, r.service.LastStatus().Scene)

	r.call(t, CmdEnd)
	assert.Equal(t, tour.StateInactive, r.service.LastStatus().State)
}
