package tour

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timewalk/tourguide/pkg/core"
)

func TestBlender_FirstFacingIsTakenAsIs(t *testing.T) {
	b := NewBlender(0.4, 60, 30)
	got := b.Blend(core.Vec3{X: 3})
	assert.Equal(t, core.Vec3{X: 1}, got)
	assert.Equal(t, 0, b.Frames())
}

func TestBlender_SmallChangesPassThrough(t *testing.T) {
	b := NewBlender(0.4, 60, 30)
	b.Blend(core.Vec3{X: 1})

	desired := core.Vec3{X: 1, Z: 1}.Normalize()
	got := b.Blend(desired)
	assert.InDelta(t, 0, got.Sub(desired).Norm(), 1e-9)
	assert.Equal(t, 0, b.Frames())
}

func TestBlender_AntiparallelJumpIsInterpolated(t *testing.T) {
	b := NewBlender(0.4, 60, 30)
	b.Blend(core.Vec3{X: 1})

	got := b.Blend(core.Vec3{X: -1})
	assert.InDelta(t, 0.8*math.Pi, float64(core.Vec3{X: 1}.Angle(got)), 1e-9)
	assert.InDelta(t, 0, got.Y, 1e-9, "antiparallel turns stay in the horizontal plane")
	assert.InDelta(t, 1, got.Norm(), 1e-9)
	assert.Equal(t, 1, b.Frames())
}

func TestBlender_FrameBudget(t *testing.T) {
	b := NewBlender(0.01, 60, 2)
	b.Blend(core.Vec3{X: 1})

	target := core.Vec3{X: -1}
	b.Blend(target)
	b.Blend(target)
	assert.Equal(t, 2, b.Frames())

	got := b.Blend(target)
	assert.Equal(t, target, got, "budget exhausted, desired applied directly")
	assert.Equal(t, 0, b.Frames())
}

func TestBlender_ZeroDesiredKeepsFacing(t *testing.T) {
	b := NewBlender(0.4, 60, 30)
	b.Blend(core.Vec3{Z: 1})

	assert.Equal(t, core.Vec3{Z: 1}, b.Blend(core.Vec3{}))

	b.Reset()
	assert.Equal(t, core.Vec3{}, b.Previous())
	assert.Equal(t, core.Vec3{}, b.Blend(core.Vec3{}))
}

func TestBlender_StepIsBounded(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	b := NewBlender(0.4, 60, 30)
	b.Blend(core.Vec3{X: 1})
	threshold := 60 * math.Pi / 180

	for i := 0; i < 2000; i++ {
		var desired core.Vec3
		if i%50 == 0 {
			desired = b.Previous().Mul(-1)
		} else {
			desired = core.Vec3{X: r.Float64()*2 - 1, Y: r.Float64()*0.2 - 0.1, Z: r.Float64()*2 - 1}
		}
		if core.IsZero(desired, 1e-6) {
			continue
		}

		if b.Frames() >= 30 {
			b.Blend(desired)
			continue
		}
		prev := b.Previous()
		jump := float64(prev.Angle(desired.Normalize()))
		got := b.Blend(desired)
		require.InDelta(t, 1, got.Norm(), 1e-9)

		step := float64(prev.Angle(got))
		limit := math.Max(threshold, b.Step()*jump)
		assert.LessOrEqual(t, step, limit+1e-9, "iteration %d", i)
	}
}
