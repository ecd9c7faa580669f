package gormstorage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timewalk/tourguide/internal/database"
	"github.com/timewalk/tourguide/internal/model"
	"github.com/timewalk/tourguide/internal/model/convert"
	"github.com/timewalk/tourguide/pkg/core"
)

var start = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func session() core.TourSession {
	return core.TourSession{
		ID:        "11111111-2222-3333-4444-555555555555",
		StartTime: start,
		Eras:      []core.SceneID{"era1960", "era1990"},
		Origin:    core.GeoOrigin{Longitude: 2.35, Latitude: 48.85},
	}
}

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend() *Backend {
	return New(Dependencies{})
}

func newSqliteBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInitClose_QueueOnly(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "close is idempotent")
}

func TestRecord_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(session()))

	require.NoError(t, b.RecordEvent(core.TourEvent{Kind: core.EventState}))
	require.NoError(t, b.RecordEvent(core.TourEvent{Kind: core.EventAdvance}))
	require.NoError(t, b.RecordSample(core.TelemetrySample{Tick: 20}))

	events, samples := b.Pending()
	assert.Equal(t, 2, events)
	assert.Equal(t, 1, samples)

	// no DB: flush keeps everything queued
	require.NoError(t, b.Flush())
	events, _ = b.Pending()
	assert.Equal(t, 2, events)
}

func TestSqlite_SessionLifecycle(t *testing.T) {
	b := newSqliteBackend(t)
	db := b.DB()

	require.NoError(t, b.StartSession(session()))
	var stored model.TourSession
	require.NoError(t, db.First(&stored, "id = ?", session().ID).Error)
	assert.False(t, stored.EndTime.Valid)

	require.NoError(t, b.RecordEvent(core.TourEvent{
		SessionID: session().ID,
		Tick:      12,
		Kind:      core.EventRecovery,
		Detail:    map[string]any{"outcome": "redirected"},
	}))
	require.NoError(t, b.RecordSample(core.TelemetrySample{
		SessionID: session().ID,
		Tick:      20,
		Position:  core.Vec3{X: 100, Y: 2},
	}))

	ended := session()
	ended.EndTime = start.Add(time.Minute)
	require.NoError(t, b.EndSession(ended))

	events, samples := b.Pending()
	assert.Zero(t, events)
	assert.Zero(t, samples)

	require.NoError(t, db.First(&stored, "id = ?", session().ID).Error)
	assert.True(t, stored.EndTime.Valid)
	assert.Equal(t, 1, stored.Events)
	assert.Equal(t, 1, stored.Samples)

	var evs []model.TourEvent
	require.NoError(t, db.Where("session_id = ?", session().ID).Find(&evs).Error)
	require.Len(t, evs, 1)
	back, err := convert.EventToCore(evs[0])
	require.NoError(t, err)
	assert.Equal(t, core.EventRecovery, back.Kind)
	assert.Equal(t, "redirected", back.Detail["outcome"])

	var smp model.TelemetrySample
	require.NoError(t, db.First(&smp, "session_id = ?", session().ID).Error)
	xy, ok := smp.Position.XY()
	require.True(t, ok)
	assert.Greater(t, xy.X, 2.35, "100 m east of the origin")
	assert.Equal(t, 2.0, smp.Height)
}

func TestSqlite_CloseFlushesPending(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(session()))

	for i := 0; i < 25; i++ {
		require.NoError(t, b.RecordSample(core.TelemetrySample{SessionID: session().ID, Tick: uint64(i)}))
	}
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.TelemetrySample{}).Count(&count).Error)
	assert.Equal(t, int64(25), count)
}

func TestSqlite_PeriodicFlush(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	require.NoError(t, b.StartSession(session()))

	require.NoError(t, b.RecordEvent(core.TourEvent{SessionID: session().ID, Kind: core.EventState}))

	assert.Eventually(t, func() bool {
		events, _ := b.Pending()
		return events == 0
	}, 2*time.Second, 10*time.Millisecond)
}
