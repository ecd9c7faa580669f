// Package engine declares the host-engine collaborators the tour controller
// talks to. Implementations live in the host (see pkg/hostproto) or in the
// headless simulator.
package engine

import "github.com/timewalk/tourguide/pkg/core"

// Navigator is the navigation-mesh oracle and agent controller.
type Navigator interface {
	FindPath(from, to core.Vec3) core.Path
	NearestNavigablePoint(p core.Vec3, tolerance float64) (core.Vec3, bool)
	SetDestination(path core.Path)
	Stop()
	Resume()
	Warp(p core.Vec3)
	SetSpeedProfile(profile core.SpeedProfile)
	// SetFacing orients the character (no vertical component) and the look camera.
	SetFacing(character, camera core.Vec3)
}

// Transitioner switches the visitor between eras. Completion is reported back
// to the tour as a transition-done command.
type Transitioner interface {
	RequestTransition(req core.TransitionRequest)
}

// Visibility toggles historic-photo overlays and ambient pedestrians.
type Visibility interface {
	SetOverlaysVisible(visible bool)
	SetPedestriansVisible(visible bool)
}

// OverrideDetector reports whether the visitor is steering manually.
type OverrideDetector interface {
	IsManualOverrideRequested() bool
}

// WaypointSource lists the curated photo cameras of a scene.
type WaypointSource interface {
	ListWaypoints(scene core.SceneID) ([]core.PhotoCamera, error)
	// Metadata returns curated behavior for a waypoint name; ok is false when
	// nothing is curated for it.
	Metadata(scene core.SceneID, name string) (meta core.WaypointMeta, ok bool)
}

// TerrainClassifier decides whether a surface under the agent is outdoors.
type TerrainClassifier interface {
	IsOutdoor(surfaceTag string) bool
}

// Host bundles every collaborator.
type Host struct {
	Navigator    Navigator
	Transitioner Transitioner
	Visibility   Visibility
	Override     OverrideDetector
	Waypoints    WaypointSource
	Terrain      TerrainClassifier
}
