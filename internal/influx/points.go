package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/timewalk/tourguide/pkg/core"
)

// SamplePoint maps a telemetry sample to a tour_sample point.
func SamplePoint(s core.TelemetrySample) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementSample,
		map[string]string{
			"session": s.SessionID,
			"scene":   string(s.Scene),
			"state":   s.State,
		},
		map[string]any{
			"x":        s.Position.X,
			"y":        s.Position.Y,
			"z":        s.Position.Z,
			"speed":    s.Speed,
			"waypoint": s.WaypointIndex,
			"to_next":  s.ToNext,
			"tick":     s.Tick,
		},
		s.Time,
	)
}

// EventPoint maps a journal event to a tour_event point.
func EventPoint(e core.TourEvent) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementEvent).
		AddTag("session", e.SessionID).
		AddTag("scene", string(e.Scene)).
		AddTag("kind", string(e.Kind)).
		AddField("waypoint", e.WaypointIndex).
		AddField("tick", e.Tick).
		SetTime(e.Time)
	if e.From != "" {
		p.AddField("from", e.From)
	}
	if e.To != "" {
		p.AddField("to", e.To)
	}
	if e.WaypointName != "" {
		p.AddField("waypoint_name", e.WaypointName)
	}
	if outcome, ok := e.Detail["outcome"].(string); ok {
		p.AddTag("outcome", outcome)
	}
	return p
}

// SessionPoint marks the start or end of a session.
func SessionPoint(s core.TourSession, phase string, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementSession).
		AddTag("session", s.ID).
		AddTag("phase", phase).
		AddField("eras", len(s.Eras)).
		AddField("duration", s.Duration().Seconds()).
		SetTime(at)
}
