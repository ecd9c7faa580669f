package v1

import (
	"math"
	"sort"

	"github.com/timewalk/tourguide/internal/geo"
	"github.com/timewalk/tourguide/pkg/core"
)

// SessionData contains all the data needed to build an export.
type SessionData struct {
	Session core.TourSession
	Events  []core.TourEvent
	Samples []core.TelemetrySample
}

// Build creates an Export from the session data.
func Build(data *SessionData) Export {
	s := data.Session
	export := Export{
		Version:   Version,
		SessionID: s.ID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Duration:  s.Duration().Seconds(),
		Eras:      make([]string, 0, len(s.Eras)),
		Origin:    s.Origin,
		Stops:     make([]Stop, 0),
		Events:    make([]Event, 0, len(data.Events)),
		Samples:   make([]Sample, 0, len(data.Samples)),
	}
	for _, era := range s.Eras {
		export.Eras = append(export.Eras, string(era))
	}

	for _, e := range data.Events {
		export.Events = append(export.Events, Event{
			Tick:          e.Tick,
			SimTime:       round(e.SimTime),
			Scene:         string(e.Scene),
			Kind:          string(e.Kind),
			From:          e.From,
			To:            e.To,
			WaypointIndex: e.WaypointIndex,
			WaypointName:  e.WaypointName,
			Detail:        e.Detail,
		})
		if e.Kind == core.EventAdvance {
			export.Stops = append(export.Stops, Stop{
				Tick:    e.Tick,
				SimTime: round(e.SimTime),
				Scene:   string(e.Scene),
				Index:   e.WaypointIndex,
				Name:    e.WaypointName,
			})
		}
	}

	samples := make([]core.TelemetrySample, len(data.Samples))
	copy(samples, data.Samples)
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Tick < samples[j].Tick })

	positions := make([]core.Vec3, 0, len(samples))
	for _, smp := range samples {
		lon, lat := geo.LocalToLonLat(s.Origin, smp.Position)
		export.Samples = append(export.Samples, Sample{
			Tick:          smp.Tick,
			Scene:         string(smp.Scene),
			State:         smp.State,
			Longitude:     lon,
			Latitude:      lat,
			Height:        round(smp.Position.Y),
			Speed:         round(smp.Speed),
			WaypointIndex: smp.WaypointIndex,
			ToNext:        round(smp.ToNext),
		})
		positions = append(positions, smp.Position)
	}

	export.TrackLength = round(geo.TrackLength(positions))
	if ls, err := geo.TrackLineString(s.Origin, positions); err == nil {
		g := ls.AsGeometry()
		export.Track = &g
	}

	return export
}

// round keeps two decimals, enough for centimeter positions.
func round(v float64) float64 {
	return math.Round(v*100) / 100
}
