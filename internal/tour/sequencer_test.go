package tour

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timewalk/tourguide/pkg/core"
)

func namedWaypoints(n int) []core.Waypoint {
	wps := make([]core.Waypoint, n)
	for i := range wps {
		wps[i] = core.Waypoint{Name: fmt.Sprintf("wp%d", i), Destination: core.Vec3{X: float64(i)}}
	}
	return wps
}

func names(wps []core.Waypoint) []string {
	out := make([]string, len(wps))
	for i, wp := range wps {
		out[i] = wp.Name
	}
	return out
}

func TestSequencer_CyclingIsTotal(t *testing.T) {
	for n := 1; n <= 9; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			seq, err := NewSequencer(namedWaypoints(n), OrderCurated, 0, nil)
			require.NoError(t, err)

			for start := 0; start < n; start++ {
				for seq.Index() != start {
					seq.Advance()
				}
				for i := 0; i < n; i++ {
					idx := seq.Advance()
					assert.GreaterOrEqual(t, idx, 0)
					assert.Less(t, idx, n)
				}
				assert.Equal(t, start, seq.Index())

				for i := 0; i < n; i++ {
					seq.Retreat()
				}
				assert.Equal(t, start, seq.Index())
			}
		})
	}
}

func TestSequencer_Neighbours(t *testing.T) {
	seq, err := NewSequencer(namedWaypoints(3), OrderCurated, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, "wp0", seq.Current().Name)
	assert.Equal(t, "wp2", seq.Previous().Name)
	assert.Equal(t, "wp1", seq.Next().Name)

	seq.Retreat()
	assert.Equal(t, "wp2", seq.Current().Name)
	assert.Equal(t, "wp0", seq.Next().Name)
	assert.Equal(t, "wp1", seq.At(-5).Name)
}

func TestSequencer_SingleWaypoint(t *testing.T) {
	seq, err := NewSequencer(namedWaypoints(1), OrderCurated, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, seq.Advance())
	assert.Equal(t, "wp0", seq.Previous().Name)
	assert.Equal(t, "wp0", seq.Next().Name)
}

func TestSequencer_ShuffleIsSeeded(t *testing.T) {
	wps := namedWaypoints(12)

	a, err := NewSequencer(wps, OrderShuffled, 42, nil)
	require.NoError(t, err)
	b, err := NewSequencer(wps, OrderShuffled, 42, nil)
	require.NoError(t, err)

	assert.Equal(t, names(a.Waypoints()), names(b.Waypoints()))
	assert.ElementsMatch(t, names(wps), names(a.Waypoints()))
	assert.Equal(t, "wp0", wps[0].Name, "input must not be reordered")
}

func TestSequencer_DebugSubset(t *testing.T) {
	seq, err := NewSequencer(namedWaypoints(5), OrderDebug, 0, []string{"wp3", "wp1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"wp1", "wp3"}, names(seq.Waypoints()))

	_, err = NewSequencer(namedWaypoints(5), OrderDebug, 0, []string{"missing"})
	assert.ErrorIs(t, err, ErrNoWaypoints)
}

func TestSequencer_FallbackIndex(t *testing.T) {
	wps := namedWaypoints(4)
	seq, err := NewSequencer(wps, OrderCurated, 0, nil)
	require.NoError(t, err)
	_, ok := seq.FallbackIndex()
	assert.False(t, ok)

	wps[2].Meta.Fallback = true
	wps[3].Meta.Fallback = true
	seq, err = NewSequencer(wps, OrderCurated, 0, nil)
	require.NoError(t, err)
	idx, ok := seq.FallbackIndex()
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestBuildWaypoints(t *testing.T) {
	src := &fakeWaypoints{
		cams: map[core.SceneID][]core.PhotoCamera{
			era1960: {
				{Name: "fountain", Position: core.Vec3{X: 10, Y: 1.6, Z: 0}, Forward: core.Vec3{X: 2}},
				{Name: "rooftop", Position: core.Vec3{X: 0, Y: 40, Z: 0}, Forward: core.Vec3{Z: 1}},
			},
		},
		meta: map[string]core.WaypointMeta{"fountain": {PeekEnabled: true}},
	}
	nav := &fakeNav{navigableFn: func(p core.Vec3) (core.Vec3, bool) {
		if p.Y > 10 {
			return core.Vec3{}, false
		}
		return core.Vec3{X: p.X, Y: 0, Z: p.Z}, true
	}}

	wps, err := BuildWaypoints(era1960, src, nav, DefaultParams(), slog.Default())
	require.NoError(t, err)
	require.Len(t, wps, 1)

	wp := wps[0]
	assert.Equal(t, "fountain", wp.Name)
	assert.InDelta(t, 8.5, wp.AdjustedPosition.X, 1e-9)
	assert.Equal(t, core.Vec3{X: 8.5, Y: 0, Z: 0}, wp.Destination)
	assert.Equal(t, core.Vec3{X: 11, Y: 1.6, Z: 0}, wp.ViewTarget)
	assert.True(t, wp.Meta.PeekEnabled)
}

func TestBuildWaypoints_Errors(t *testing.T) {
	nav := &fakeNav{navigableFn: func(core.Vec3) (core.Vec3, bool) { return core.Vec3{}, false }}
	src := &fakeWaypoints{cams: map[core.SceneID][]core.PhotoCamera{era1960: line("a", "b")}}

	_, err := BuildWaypoints(era1960, src, nav, DefaultParams(), slog.Default())
	assert.True(t, errors.Is(err, ErrNoWaypoints))

	_, err = BuildWaypoints("unknown", src, &fakeNav{}, DefaultParams(), slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing waypoints")
}
