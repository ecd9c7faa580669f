package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/timewalk/tourguide/internal/model"
	"github.com/timewalk/tourguide/pkg/core"
)

func TestCoreToSession(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := core.TourSession{
		ID:        "s1",
		StartTime: start,
		Eras:      []core.SceneID{"era1960", "era1990"},
		Origin:    core.GeoOrigin{Longitude: 2.35, Latitude: 48.85},
	}

	rec := CoreToSession(s)
	assert.Equal(t, "s1", rec.ID)
	assert.False(t, rec.EndTime.Valid)
	assert.JSONEq(t, `["era1960","era1990"]`, string(rec.Eras))
	assert.Equal(t, 48.85, rec.OriginLat)

	s.EndTime = start.Add(time.Minute)
	rec = CoreToSession(s)
	assert.True(t, rec.EndTime.Valid)
	assert.Equal(t, s.EndTime, rec.EndTime.Time)
}

func TestCoreToEvent_RoundTripsDetail(t *testing.T) {
	e := core.TourEvent{
		SessionID:     "s1",
		Scene:         "era1960",
		Tick:          42,
		Kind:          core.EventRecovery,
		WaypointIndex: 3,
		WaypointName:  "arcade",
		Detail:        map[string]any{"outcome": "redirected", "attempt": 2.0},
	}

	rec := CoreToEvent(e)
	assert.Equal(t, "recovery", rec.Kind)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(rec.Detail, &detail))
	assert.Equal(t, "redirected", detail["outcome"])

	back, err := EventToCore(rec)
	require.NoError(t, err)
	assert.Equal(t, e, back)
}

func TestEventToCore_CorruptDetail(t *testing.T) {
	rec := model.TourEvent{ID: 7, Kind: "advance", ToState: "2", Detail: datatypes.JSON(`{"reason":`)}

	back, err := EventToCore(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event 7 detail")
	assert.Equal(t, core.EventAdvance, back.Kind)
	assert.Equal(t, "2", back.To)
	assert.Nil(t, back.Detail)
}

func TestCoreToEvent_NoDetail(t *testing.T) {
	rec := CoreToEvent(core.TourEvent{Kind: core.EventState, From: "inactive", To: "active"})
	assert.Nil(t, rec.Detail)
	assert.Equal(t, "inactive", rec.FromState)
	assert.Equal(t, "active", rec.ToState)
}

func TestCoreToSample_Georeferenced(t *testing.T) {
	origin := core.GeoOrigin{Longitude: 2.35, Latitude: 48.85}
	rec := CoreToSample(core.TelemetrySample{
		SessionID: "s1",
		Tick:      20,
		State:     "active",
		Position:  core.Vec3{X: 0, Y: 1.5, Z: 0},
		Speed:     1.4,
	}, origin)

	xy, ok := rec.Position.XY()
	require.True(t, ok)
	assert.InDelta(t, 2.35, xy.X, 1e-9)
	assert.InDelta(t, 48.85, xy.Y, 1e-9)
	assert.Equal(t, 1.5, rec.Height)
	assert.Equal(t, "active", rec.State)
}
