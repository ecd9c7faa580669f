package tour

import (
	"github.com/timewalk/tourguide/pkg/core"
	"github.com/timewalk/tourguide/pkg/engine"
)

// DistanceSample holds the per-tick distances visibility is derived from.
type DistanceSample struct {
	ToNext         float64
	ToPrevious     float64
	ToggleDistance float64
}

// SampleDistances measures the agent against the waypoint it is heading to and
// the one it left. The near band applies once the agent is beyond the far band
// from the previous waypoint.
func SampleDistances(pos, next, previous core.Vec3, near, far float64) DistanceSample {
	s := DistanceSample{
		ToNext:     pos.Distance(next),
		ToPrevious: pos.Distance(previous),
	}
	if s.ToPrevious > far {
		s.ToggleDistance = near
	} else {
		s.ToggleDistance = far
	}
	return s
}

// VisibilitySync tracks requested and committed visibility of photo overlays
// and pedestrians and only pushes changes.
type VisibilitySync struct {
	overlaysRequested    bool
	pedestriansRequested bool

	overlaysCommitted    bool
	pedestriansCommitted bool

	refresh bool
}

// NewVisibilitySync starts with overlays hidden, pedestrians visible and a
// pending refresh.
func NewVisibilitySync() *VisibilitySync {
	return &VisibilitySync{
		pedestriansRequested: true,
		pedestriansCommitted: true,
		refresh:              true,
	}
}

// ForceRefresh makes the next Flush push both flags unconditionally.
func (v *VisibilitySync) ForceRefresh() { v.refresh = true }

// Requested returns the requested overlay and pedestrian visibility.
func (v *VisibilitySync) Requested() (overlays, pedestrians bool) {
	return v.overlaysRequested, v.pedestriansRequested
}

// Committed returns the last pushed overlay and pedestrian visibility.
func (v *VisibilitySync) Committed() (overlays, pedestrians bool) {
	return v.overlaysCommitted, v.pedestriansCommitted
}

// Update derives the requested visibility. While stationary in an active tour
// the previous request is held.
func (v *VisibilitySync) Update(mode Mode, moving bool, d DistanceSample) {
	switch {
	case !mode.IsRunning():
		v.overlaysRequested = false
		v.pedestriansRequested = true
	case mode.IsPeeking() || mode.IsPeriodicTimeTraveling():
		v.overlaysRequested = false
		v.pedestriansRequested = false
	case mode.IsActive() && moving:
		within := d.ToNext < d.ToggleDistance
		v.overlaysRequested = within
		v.pedestriansRequested = !within
	}
}

// Flush pushes requested flags that differ from the committed ones, or both
// when a refresh is pending. It returns the number of commands issued.
func (v *VisibilitySync) Flush(target engine.Visibility) int {
	issued := 0
	if v.refresh || v.overlaysRequested != v.overlaysCommitted {
		target.SetOverlaysVisible(v.overlaysRequested)
		v.overlaysCommitted = v.overlaysRequested
		issued++
	}
	if v.refresh || v.pedestriansRequested != v.pedestriansCommitted {
		target.SetPedestriansVisible(v.pedestriansRequested)
		v.pedestriansCommitted = v.pedestriansRequested
		issued++
	}
	v.refresh = false
	return issued
}
