package tour

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"

	"github.com/timewalk/tourguide/pkg/core"
)

// Blender smooths the facing direction between ticks. Jumps larger than the
// pre-blend angle are interpolated at twice the turn rate for at most
// maxFrames consecutive ticks.
type Blender struct {
	turnRate  float64
	threshold s1.Angle
	maxFrames int

	previous core.Vec3
	frames   int
}

// NewBlender returns a blender with threshold given in degrees.
func NewBlender(turnRate, thresholdDegrees float64, maxFrames int) *Blender {
	return &Blender{
		turnRate:  turnRate,
		threshold: s1.Angle(thresholdDegrees) * s1.Degree,
		maxFrames: maxFrames,
	}
}

// Step is the interpolation fraction used while pre-blending.
func (b *Blender) Step() float64 {
	return math.Min(1, 2*b.turnRate)
}

// Previous returns the last applied facing; zero after Reset.
func (b *Blender) Previous() core.Vec3 { return b.previous }

// Frames returns the number of consecutive pre-blend ticks.
func (b *Blender) Frames() int { return b.frames }

// Reset zeroes the carried facing and the frame counter.
func (b *Blender) Reset() {
	b.previous = core.Vec3{}
	b.frames = 0
}

// Blend returns the facing to apply this tick for the desired direction.
// A zero desired direction keeps the previous facing.
func (b *Blender) Blend(desired core.Vec3) core.Vec3 {
	if core.IsZero(desired, 1e-9) {
		return b.previous
	}
	desired = desired.Normalize()

	if core.IsZero(b.previous, 1e-9) {
		b.previous = desired
		b.frames = 0
		return desired
	}

	angle := b.previous.Angle(desired)
	if angle > b.threshold && b.frames < b.maxFrames {
		b.previous = slerp(b.previous, desired, angle, b.Step())
		b.frames++
		return b.previous
	}

	b.previous = desired
	b.frames = 0
	return desired
}

// slerp rotates unit vector from towards to by t of the angle between them.
// Antiparallel inputs rotate about the up axis.
func slerp(from, to core.Vec3, angle s1.Angle, t float64) core.Vec3 {
	axis := from.Cross(to)
	if core.IsZero(axis, 1e-9) {
		axis = core.Up
		if core.IsZero(from.Cross(axis), 1e-9) {
			axis = r3.Vector{X: 1}
		}
	}
	return rotate(from, axis.Normalize(), float64(angle)*t).Normalize()
}

// rotate applies Rodrigues' rotation of v about unit axis k by theta radians.
func rotate(v, k core.Vec3, theta float64) core.Vec3 {
	sin, cos := math.Sincos(theta)
	return v.Mul(cos).
		Add(k.Cross(v).Mul(sin)).
		Add(k.Mul(k.Dot(v) * (1 - cos)))
}
