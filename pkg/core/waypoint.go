// pkg/core/waypoint.go
package core

// SceneID identifies a loaded era scene.
type SceneID string

// PhotoCamera is a curated historic-photo camera as listed by the host scene.
type PhotoCamera struct {
	Name     string `json:"name" yaml:"name"`
	Position Vec3   `json:"position" yaml:"position"`
	Forward  Vec3   `json:"forward" yaml:"forward"`
}

// WaypointMeta is the curated per-waypoint behavior. The zero value means
// "no special behavior".
type WaypointMeta struct {
	PeekEnabled           bool `json:"peekEnabled" yaml:"peekEnabled"`
	PeriodicTravelEnabled bool `json:"periodicTravelEnabled" yaml:"periodicTravelEnabled"`
	Fallback              bool `json:"fallback" yaml:"fallback"`
}

// Waypoint is one stop of a tour. Waypoints are immutable once built for a scene.
type Waypoint struct {
	Name             string
	CameraPosition   Vec3
	AdjustedPosition Vec3
	Destination      Vec3
	ViewTarget       Vec3
	Meta             WaypointMeta
}
