package tour

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timewalk/tourguide/pkg/core"
)

func activeMode() Mode {
	var m Mode
	m.set(primaryActive, subNone)
	return m
}

func TestSampleDistances_HysteresisKeysOffPrevious(t *testing.T) {
	tests := []struct {
		name     string
		pos      core.Vec3
		expected float64
	}{
		{"just left previous", core.Vec3{X: 3}, 8},
		{"at far band edge", core.Vec3{X: 8}, 8},
		{"beyond far band", core.Vec3{X: 8.5}, 4},
		{"near next but far from previous", core.Vec3{X: 28}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := SampleDistances(tt.pos, core.Vec3{X: 30}, core.Vec3{}, 4, 8)
			assert.Equal(t, tt.expected, d.ToggleDistance)
			assert.InDelta(t, 30-tt.pos.X, d.ToNext, 1e-9)
			assert.InDelta(t, tt.pos.X, d.ToPrevious, 1e-9)
		})
	}
}

func TestVisibilitySync_IdempotentCommands(t *testing.T) {
	v := NewVisibilitySync()
	target := &fakeVisibility{}
	mode := activeMode()
	far := DistanceSample{ToNext: 20, ToPrevious: 10, ToggleDistance: 4}

	v.Update(mode, true, far)
	assert.Equal(t, 2, v.Flush(target), "initial refresh pushes both")

	v.Update(mode, true, far)
	assert.Equal(t, 0, v.Flush(target))
	v.Update(mode, true, far)
	assert.Equal(t, 0, v.Flush(target))

	near := DistanceSample{ToNext: 3, ToPrevious: 27, ToggleDistance: 4}
	v.Update(mode, true, near)
	assert.Equal(t, 2, v.Flush(target))
	v.Update(mode, true, near)
	assert.Equal(t, 0, v.Flush(target))

	assert.Equal(t, []bool{false, true}, target.overlays)
	assert.Equal(t, []bool{true, false}, target.pedestrians)

	v.ForceRefresh()
	assert.Equal(t, 2, v.Flush(target))
	assert.Equal(t, 0, v.Flush(target))
}

func TestVisibilitySync_HoldsRequestWhileStationary(t *testing.T) {
	v := NewVisibilitySync()
	mode := activeMode()

	v.Update(mode, true, DistanceSample{ToNext: 2, ToggleDistance: 8})
	overlays, pedestrians := v.Requested()
	assert.True(t, overlays)
	assert.False(t, pedestrians)

	v.Update(mode, false, DistanceSample{ToNext: 50, ToggleDistance: 8})
	overlays, pedestrians = v.Requested()
	assert.True(t, overlays)
	assert.False(t, pedestrians)
}

func TestVisibilitySync_SubStatesForceHidden(t *testing.T) {
	for _, sub := range []subState{subPeeking, subPeriodic} {
		var mode Mode
		mode.set(primaryActive, sub)

		v := NewVisibilitySync()
		v.Update(mode, true, DistanceSample{ToNext: 50, ToggleDistance: 8})
		overlays, pedestrians := v.Requested()
		assert.False(t, overlays)
		assert.False(t, pedestrians)
	}
}

func TestVisibilitySync_InactiveShowsPedestrians(t *testing.T) {
	v := NewVisibilitySync()
	v.Update(activeMode(), true, DistanceSample{ToNext: 1, ToggleDistance: 8})

	v.Update(Mode{}, false, DistanceSample{})
	overlays, pedestrians := v.Requested()
	assert.False(t, overlays)
	assert.True(t, pedestrians)
}
