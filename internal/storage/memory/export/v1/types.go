// Package v1 contains the v1 export format of a tour journal.
package v1

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/timewalk/tourguide/pkg/core"
)

// Version is written into every v1 export.
const Version = 1

// Export is the root JSON structure for v1 format.
type Export struct {
	Version     int            `json:"version"`
	SessionID   string         `json:"sessionId"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     time.Time      `json:"endTime"`
	Duration    float64        `json:"duration"`
	Eras        []string       `json:"eras"`
	Origin      core.GeoOrigin `json:"origin"`
	Stops       []Stop         `json:"stops"`
	Events      []Event        `json:"events"`
	Samples     []Sample       `json:"samples"`
	TrackLength float64        `json:"trackLength"`
	// Track is a GeoJSON LineString of the sampled agent positions.
	Track *geom.Geometry `json:"track,omitempty"`
}

// Stop is one waypoint the tour moved past.
type Stop struct {
	Tick    uint64  `json:"tick"`
	SimTime float64 `json:"simTime"`
	Scene   string  `json:"scene"`
	Index   int     `json:"index"`
	Name    string  `json:"name"`
}

// Event is a flattened journal event.
type Event struct {
	Tick          uint64         `json:"tick"`
	SimTime       float64        `json:"simTime"`
	Scene         string         `json:"scene"`
	Kind          string         `json:"kind"`
	From          string         `json:"from,omitempty"`
	To            string         `json:"to,omitempty"`
	WaypointIndex int            `json:"waypointIndex"`
	WaypointName  string         `json:"waypointName,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
}

// Sample is a geo-referenced telemetry sample.
type Sample struct {
	Tick          uint64  `json:"tick"`
	Scene         string  `json:"scene"`
	State         string  `json:"state"`
	Longitude     float64 `json:"lon"`
	Latitude      float64 `json:"lat"`
	Height        float64 `json:"height"`
	Speed         float64 `json:"speed"`
	WaypointIndex int     `json:"waypointIndex"`
	ToNext        float64 `json:"toNext"`
}
