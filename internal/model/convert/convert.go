// Package convert maps journal records from pkg/core to gorm models.
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/timewalk/tourguide/internal/geo"
	"github.com/timewalk/tourguide/internal/model"
	"github.com/timewalk/tourguide/pkg/core"
)

// CoreToSession converts a core.TourSession to a gorm model.
func CoreToSession(s core.TourSession) model.TourSession {
	eras := make([]string, 0, len(s.Eras))
	for _, e := range s.Eras {
		eras = append(eras, string(e))
	}
	rec := model.TourSession{
		ID:        s.ID,
		StartTime: s.StartTime,
		Eras:      toJSON(eras),
		OriginLon: s.Origin.Longitude,
		OriginLat: s.Origin.Latitude,
	}
	if !s.EndTime.IsZero() {
		rec.EndTime = sql.NullTime{Time: s.EndTime, Valid: true}
	}
	return rec
}

// CoreToEvent converts a core.TourEvent to a gorm model.
func CoreToEvent(e core.TourEvent) model.TourEvent {
	rec := model.TourEvent{
		SessionID:     e.SessionID,
		Time:          e.Time,
		Tick:          e.Tick,
		SimTime:       e.SimTime,
		Scene:         string(e.Scene),
		Kind:          string(e.Kind),
		FromState:     e.From,
		ToState:       e.To,
		WaypointIndex: e.WaypointIndex,
		WaypointName:  e.WaypointName,
	}
	if len(e.Detail) > 0 {
		rec.Detail = toJSON(e.Detail)
	}
	return rec
}

// CoreToSample converts a core.TelemetrySample to a gorm model,
// geo-referencing the position around origin.
func CoreToSample(s core.TelemetrySample, origin core.GeoOrigin) model.TelemetrySample {
	lon, lat := geo.LocalToLonLat(origin, s.Position)
	return model.TelemetrySample{
		SessionID: s.SessionID,
		Time:      s.Time,
		Tick:      s.Tick,
		Scene:     string(s.Scene),
		State:     s.State,
		Position: geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: lon, Y: lat},
			Type: geom.DimXY,
		}),
		Height:        s.Position.Y,
		Speed:         s.Speed,
		WaypointIndex: s.WaypointIndex,
		ToNext:        s.ToNext,
	}
}

// EventToCore converts a stored event back to its core form. A detail column
// that is not a JSON object is reported; the rest of the event is still returned.
func EventToCore(rec model.TourEvent) (core.TourEvent, error) {
	e := core.TourEvent{
		SessionID:     rec.SessionID,
		Scene:         core.SceneID(rec.Scene),
		Tick:          rec.Tick,
		SimTime:       rec.SimTime,
		Time:          rec.Time,
		Kind:          core.EventKind(rec.Kind),
		From:          rec.FromState,
		To:            rec.ToState,
		WaypointIndex: rec.WaypointIndex,
		WaypointName:  rec.WaypointName,
	}
	if len(rec.Detail) > 0 {
		if err := json.Unmarshal(rec.Detail, &e.Detail); err != nil {
			return e, fmt.Errorf("event %d detail: %w", rec.ID, err)
		}
	}
	return e, nil
}

func toJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
