// pkg/core/vector.go
package core

import (
	"math"

	"github.com/golang/geo/r3"
)

// Vec3 is a position or direction in scene space. Y is up.
type Vec3 = r3.Vector

// Up is the world up axis.
var Up = Vec3{X: 0, Y: 1, Z: 0}

// Flatten removes the vertical component of v.
func Flatten(v Vec3) Vec3 {
	return Vec3{X: v.X, Y: 0, Z: v.Z}
}

// IsZero reports whether v is the zero vector within eps.
func IsZero(v Vec3, eps float64) bool {
	return v.Norm2() <= eps*eps
}

// HorizontalDistance returns the XZ-plane distance between a and b.
func HorizontalDistance(a, b Vec3) float64 {
	return math.Hypot(a.X-b.X, a.Z-b.Z)
}

// SlopeDegrees returns the angle between a surface normal and the up axis.
// A zero normal is treated as flat.
func SlopeDegrees(normal Vec3) float64 {
	if IsZero(normal, 1e-9) {
		return 0
	}
	return normal.Angle(Up).Degrees()
}
