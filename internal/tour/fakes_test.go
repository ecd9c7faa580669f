package tour

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timewalk/tourguide/internal/logging"
	"github.com/timewalk/tourguide/pkg/core"
	"github.com/timewalk/tourguide/pkg/engine"
)

const (
	era1960 core.SceneID = "mall-1960"
	era1990 core.SceneID = "mall-1990"
)

type fakeNav struct {
	pathFn      func(from, to core.Vec3) core.Path
	navigableFn func(p core.Vec3) (core.Vec3, bool)

	findCalls    []core.Vec3 // requested targets
	destinations []core.Path
	stops        int
	resumes      int
	warps        []core.Vec3
	profiles     []core.SpeedProfile
	characters   []core.Vec3
	cameras      []core.Vec3
}

func (n *fakeNav) FindPath(from, to core.Vec3) core.Path {
	n.findCalls = append(n.findCalls, to)
	if n.pathFn != nil {
		return n.pathFn(from, to)
	}
	return core.Path{Status: core.PathComplete, Corners: []core.Vec3{from, to}}
}

func (n *fakeNav) NearestNavigablePoint(p core.Vec3, _ float64) (core.Vec3, bool) {
	if n.navigableFn != nil {
		return n.navigableFn(p)
	}
	return p, true
}

func (n *fakeNav) SetDestination(path core.Path) { n.destinations = append(n.destinations, path) }
func (n *fakeNav) Stop()                         { n.stops++ }
func (n *fakeNav) Resume()                       { n.resumes++ }
func (n *fakeNav) Warp(p core.Vec3)              { n.warps = append(n.warps, p) }

func (n *fakeNav) SetSpeedProfile(profile core.SpeedProfile) {
	n.profiles = append(n.profiles, profile)
}

func (n *fakeNav) SetFacing(character, camera core.Vec3) {
	n.characters = append(n.characters, character)
	n.cameras = append(n.cameras, camera)
}

func (n *fakeNav) lastDestination() (core.Vec3, bool) {
	if len(n.destinations) == 0 {
		return core.Vec3{}, false
	}
	return n.destinations[len(n.destinations)-1].End()
}

type fakeTransitioner struct {
	requests []core.TransitionRequest
}

func (f *fakeTransitioner) RequestTransition(req core.TransitionRequest) {
	f.requests = append(f.requests, req)
}

type fakeVisibility struct {
	overlays    []bool
	pedestrians []bool
}

func (f *fakeVisibility) SetOverlaysVisible(v bool)    { f.overlays = append(f.overlays, v) }
func (f *fakeVisibility) SetPedestriansVisible(v bool) { f.pedestrians = append(f.pedestrians, v) }

type fakeOverride struct {
	active bool
}

func (f *fakeOverride) IsManualOverrideRequested() bool { return f.active }

type fakeWaypoints struct {
	cams map[core.SceneID][]core.PhotoCamera
	meta map[string]core.WaypointMeta
}

func (f *fakeWaypoints) ListWaypoints(scene core.SceneID) ([]core.PhotoCamera, error) {
	cams, ok := f.cams[scene]
	if !ok {
		return nil, fmt.Errorf("no cameras for %s", scene)
	}
	return cams, nil
}

func (f *fakeWaypoints) Metadata(_ core.SceneID, name string) (core.WaypointMeta, bool) {
	m, ok := f.meta[name]
	return m, ok
}

type fakeTerrain struct{}

func (fakeTerrain) IsOutdoor(tag string) bool { return tag == "grass" }

type memRecorder struct {
	mu      sync.Mutex
	started []core.TourSession
	ended   []core.TourSession
	events  []core.TourEvent
	samples []core.TelemetrySample
}

func (r *memRecorder) StartSession(s core.TourSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, s)
	return nil
}

func (r *memRecorder) RecordEvent(e core.TourEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memRecorder) RecordSample(s core.TelemetrySample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return nil
}

func (r *memRecorder) EndSession(s core.TourSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, s)
	return nil
}

func (r *memRecorder) kinds(kind core.EventKind) []core.TourEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.TourEvent
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// levelCounter counts records per level.
type levelCounter struct {
	mu     sync.Mutex
	counts map[slog.Level]int
}

func newLevelCounter() *levelCounter {
	return &levelCounter{counts: make(map[slog.Level]int)}
}

func (h *levelCounter) Enabled(context.Context, slog.Level) bool { return true }

func (h *levelCounter) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[r.Level]++
	return nil
}

func (h *levelCounter) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *levelCounter) WithGroup(string) slog.Handler      { return h }

func (h *levelCounter) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[level]
}

func (h *levelCounter) fatals() int { return h.count(logging.LevelFatal) }

// rig is a machine wired to fakes.
type rig struct {
	m     *Machine
	nav   *fakeNav
	trans *fakeTransitioner
	vis   *fakeVisibility
	over  *fakeOverride
	wps   *fakeWaypoints
	rec   *memRecorder
	logs  *levelCounter
}

// line places cameras every 30 units along +X facing +X. With the default
// pull-back of 1.5 their destinations sit at x = 30*i.
func line(names ...string) []core.PhotoCamera {
	cams := make([]core.PhotoCamera, len(names))
	for i, name := range names {
		cams[i] = core.PhotoCamera{
			Name:     name,
			Position: core.Vec3{X: float64(30*i) + 1.5},
			Forward:  core.Vec3{X: 1},
		}
	}
	return cams
}

func newRig(t *testing.T, cams []core.PhotoCamera, meta map[string]core.WaypointMeta, tune func(*Params)) *rig {
	t.Helper()
	return newEraRig(t, []core.SceneID{era1960, era1990}, cams, meta, tune)
}

// newEraRig builds a rig whose era ring is eras; every era is enabled.
func newEraRig(t *testing.T, eras []core.SceneID, cams []core.PhotoCamera, meta map[string]core.WaypointMeta, tune func(*Params)) *rig {
	t.Helper()

	p := DefaultParams()
	if tune != nil {
		tune(&p)
	}

	r := &rig{
		nav:   &fakeNav{},
		trans: &fakeTransitioner{},
		vis:   &fakeVisibility{},
		over:  &fakeOverride{},
		wps: &fakeWaypoints{
			cams: map[core.SceneID][]core.PhotoCamera{era1960: cams, era1990: cams},
			meta: meta,
		},
		rec:  &memRecorder{},
		logs: newLevelCounter(),
	}

	m, err := New(engine.Host{
		Navigator:    r.nav,
		Transitioner: r.trans,
		Visibility:   r.vis,
		Override:     r.over,
		Waypoints:    r.wps,
		Terrain:      fakeTerrain{},
	}, Options{
		Params:   p,
		Eras:     eras,
		Logger:   slog.New(r.logs),
		Recorder: r.rec,
	})
	require.NoError(t, err)
	for _, era := range eras {
		require.NoError(t, m.Enable(era))
	}
	r.m = m
	return r
}

func still(pos core.Vec3) core.Telemetry {
	return core.Telemetry{
		Position:           pos,
		HasPath:            true,
		PathStatus:         core.PathComplete,
		OnNavigableSurface: true,
	}
}

func moving(pos, vel core.Vec3) core.Telemetry {
	tel := still(pos)
	tel.Velocity = vel
	tel.RemainingDistance = 10
	return tel
}

func (r *rig) tick(t *testing.T, scene core.SceneID, tel core.Telemetry) {
	t.Helper()
	require.NoError(t, r.m.Tick(scene, tel, time.Second))
}

func (r *rig) ticks(t *testing.T, n int, scene core.SceneID, tel core.Telemetry) {
	t.Helper()
	for i := 0; i < n; i++ {
		r.tick(t, scene, tel)
	}
}

func (r *rig) session(t *testing.T, scene core.SceneID) *Session {
	t.Helper()
	s, ok := r.m.Session(scene)
	require.True(t, ok)
	return s
}
