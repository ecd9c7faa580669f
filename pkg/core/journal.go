// pkg/core/journal.go
package core

import "time"

// EventKind classifies journal events.
type EventKind string

const (
	EventState      EventKind = "state"
	EventAdvance    EventKind = "advance"
	EventRecovery   EventKind = "recovery"
	EventVisibility EventKind = "visibility"
	EventTransition EventKind = "transition"
	EventFatal      EventKind = "fatal"
)

// GeoOrigin anchors scene-local meters to a real-world location.
type GeoOrigin struct {
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
}

// TourSession describes one journaled tour run.
type TourSession struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Eras      []SceneID `json:"eras"`
	Origin    GeoOrigin `json:"origin"`
}

// TourEvent is one journal entry produced by the tour state machine.
type TourEvent struct {
	SessionID     string         `json:"sessionId"`
	Scene         SceneID        `json:"scene"`
	Tick          uint64         `json:"tick"`
	SimTime       float64        `json:"simTime"`
	Time          time.Time      `json:"time"`
	Kind          EventKind      `json:"kind"`
	From          string         `json:"from,omitempty"`
	To            string         `json:"to,omitempty"`
	WaypointIndex int            `json:"waypointIndex"`
	WaypointName  string         `json:"waypointName,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
}

// TelemetrySample is a periodic snapshot of the agent for time-series sinks.
type TelemetrySample struct {
	SessionID     string    `json:"sessionId"`
	Scene         SceneID   `json:"scene"`
	Tick          uint64    `json:"tick"`
	Time          time.Time `json:"time"`
	State         string    `json:"state"`
	Position      Vec3      `json:"position"`
	Speed         float64   `json:"speed"`
	WaypointIndex int       `json:"waypointIndex"`
	ToNext        float64   `json:"toNext"`
}

// Duration returns the length of a finished session; zero while running.
func (s TourSession) Duration() time.Duration {
	if s.EndTime.IsZero() || s.EndTime.Before(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// UploadMetadata describes an exported journal file for upload.
type UploadMetadata struct {
	SessionID string
	Eras      []SceneID
	Duration  float64 // seconds
	Waypoints int     // advances recorded
	Tag       string
}
