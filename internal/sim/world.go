// Package sim is a headless stand-in for the host engine. A World walks a
// single agent across the flat ground zones of a catalog era and implements
// every collaborator the tour machine needs.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/timewalk/tourguide/internal/catalog"
	"github.com/timewalk/tourguide/internal/geo"
	"github.com/timewalk/tourguide/pkg/core"
	"github.com/timewalk/tourguide/pkg/engine"
)

// DefaultSurface is reported for ground outside every outdoor zone.
const DefaultSurface = "tile"

// probeStep is the resolution used to find where an obstacle cuts a path.
const probeStep = 0.5

// OverrideWindow scripts manual steering between two world ticks. While it
// is open the agent moves at Velocity regardless of navigation.
type OverrideWindow struct {
	From     uint64
	To       uint64
	Velocity core.Vec3
}

// Config configures a World.
type Config struct {
	Catalog *catalog.Catalog
	Era     core.SceneID
	// TransitionTicks is how long an era transition takes to report done.
	TransitionTicks int
	Overrides       []OverrideWindow
	// Keywords override the catalog's outdoor keywords when set.
	Keywords []string
}

type pendingTransition struct {
	req core.TransitionRequest
	due uint64
}

// World is the simulated scene. All methods are safe for concurrent use.
type World struct {
	cat       *catalog.Catalog
	terrain   *catalog.Terrain
	overrides []OverrideWindow
	transTime int

	mu        sync.Mutex
	era       *catalog.Era
	tick      uint64
	pos       core.Vec3
	vel       core.Vec3
	speed     float64
	profile   core.SpeedProfile
	corners   []core.Vec3
	status    core.PathStatus
	hasPath   bool
	stopped   bool
	character core.Vec3
	camera    core.Vec3

	overlays    bool
	pedestrians bool
	visCalls    int
	transitions []core.TransitionRequest
	warps       int
	pending     *pendingTransition
	onDone      func(core.SceneID)
}

// New places the agent at the era's spawn point.
func New(cfg Config) (*World, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("sim: catalog is required")
	}
	era := cfg.Era
	if era == "" {
		ring := cfg.Catalog.Ring()
		era = ring[0]
	}
	e, ok := cfg.Catalog.Era(era)
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownEra, era)
	}
	if len(e.ZonesOf(catalog.ZoneWalkable)) == 0 {
		return nil, fmt.Errorf("sim: era %s has no walkable zone", era)
	}

	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = cfg.Catalog.OutdoorKeywords()
	}
	return &World{
		cat:       cfg.Catalog,
		terrain:   catalog.NewTerrain(keywords...),
		overrides: cfg.Overrides,
		transTime: cfg.TransitionTicks,
		era:       e,
		pos:       ground(e.Spawn),
		profile:   core.SpeedProfile{Name: "default", Speed: 1.4, Acceleration: 4},
		overlays:  true,
	}, nil
}

// Host bundles the world's collaborators for the tour machine.
func (w *World) Host() engine.Host {
	return engine.Host{
		Navigator:    w,
		Transitioner: w,
		Visibility:   w,
		Override:     w,
		Waypoints:    w.cat,
		Terrain:      w.terrain,
	}
}

// OnTransitionDone sets the callback fired when a transition completes.
func (w *World) OnTransitionDone(fn func(era core.SceneID)) {
	w.mu.Lock()
	w.onDone = fn
	w.mu.Unlock()
}

// Era is the era the visitor is currently in.
func (w *World) Era() core.SceneID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.era.ID
}

// Tick is the number of Advance calls so far.
func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Position is the agent's ground position.
func (w *World) Position() core.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos
}

// Profile is the last speed profile pushed by the tour.
func (w *World) Profile() core.SpeedProfile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.profile
}

// Facing returns the last character and camera facing.
func (w *World) Facing() (character, camera core.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.character, w.camera
}

// VisibilityState returns the overlay and pedestrian flags and how many
// visibility commands were received.
func (w *World) VisibilityState() (overlays, pedestrians bool, calls int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.overlays, w.pedestrians, w.visCalls
}

// Transitions returns every transition requested so far.
func (w *World) Transitions() []core.TransitionRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.TransitionRequest(nil), w.transitions...)
}

// Warps counts Warp calls.
func (w *World) Warps() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.warps
}

// Telemetry reports the agent as the host would at the start of a tick.
func (w *World) Telemetry() core.Telemetry {
	w.mu.Lock()
	defer w.mu.Unlock()

	return core.Telemetry{
		Position:           w.pos,
		Velocity:           w.vel,
		RemainingDistance:  w.remaining(),
		HasPath:            w.hasPath,
		PathStatus:         w.status,
		OnNavigableSurface: w.navigable(w.pos),
		SurfaceTag:         w.surface(w.pos),
		SurfaceNormal:      core.Up,
	}
}

// Advance moves the world forward by dt: pending transitions complete, then
// the agent follows its path or the scripted override.
func (w *World) Advance(dt time.Duration) {
	w.mu.Lock()
	w.tick++
	done := w.completeTransition()
	w.move(dt.Seconds())
	cb := w.onDone
	w.mu.Unlock()

	if done != "" && cb != nil {
		cb(done)
	}
}

func (w *World) completeTransition() core.SceneID {
	if w.pending == nil || w.tick < w.pending.due {
		return ""
	}
	req := w.pending.req
	w.pending = nil

	if e, ok := w.cat.Era(req.To); ok {
		w.era = e
	}
	w.pos = ground(req.Position)
	w.corners = nil
	w.hasPath = false
	w.speed = 0
	return req.To
}

func (w *World) move(secs float64) {
	start := w.pos
	defer func() {
		if secs > 0 {
			w.vel = w.pos.Sub(start).Mul(1 / secs)
		}
	}()

	if win, ok := w.override(); ok {
		w.speed = 0
		w.pos = ground(w.pos.Add(win.Velocity.Mul(secs)))
		return
	}
	if w.stopped || len(w.corners) == 0 {
		w.speed = 0
		return
	}

	w.speed = math.Min(w.profile.Speed, w.speed+w.profile.Acceleration*secs)
	budget := w.speed * secs
	for budget > 0 && len(w.corners) > 0 {
		next := w.corners[0]
		d := core.HorizontalDistance(w.pos, next)
		if d <= budget {
			w.pos = next
			w.corners = w.corners[1:]
			budget -= d
			continue
		}
		dir := core.Flatten(next.Sub(w.pos)).Normalize()
		w.pos = w.pos.Add(dir.Mul(budget))
		budget = 0
	}
	if len(w.corners) == 0 {
		w.speed = 0
	}
}

func (w *World) override() (OverrideWindow, bool) {
	for _, win := range w.overrides {
		if w.tick >= win.From && w.tick < win.To {
			return win, true
		}
	}
	return OverrideWindow{}, false
}

func (w *World) remaining() float64 {
	total := 0.0
	prev := w.pos
	for _, c := range w.corners {
		total += core.HorizontalDistance(prev, c)
		prev = c
	}
	return total
}

func (w *World) navigable(p core.Vec3) bool {
	inside := false
	for _, z := range w.era.ZonesOf(catalog.ZoneWalkable) {
		if z.Contains(p) {
			inside = true
			break
		}
	}
	if !inside {
		return false
	}
	for _, z := range w.era.ZonesOf(catalog.ZoneObstacle) {
		if z.Contains(p) {
			return false
		}
	}
	return true
}

func (w *World) surface(p core.Vec3) string {
	for _, z := range w.era.ZonesOf(catalog.ZoneOutdoor) {
		if z.Contains(p) && z.Surface != "" {
			return z.Surface
		}
	}
	return DefaultSurface
}

// FindPath returns a straight path. It is Partial up to the first obstacle
// and Invalid when either end is off the walkable ground.
func (w *World) FindPath(from, to core.Vec3) core.Path {
	w.mu.Lock()
	defer w.mu.Unlock()

	from, to = ground(from), ground(to)
	if !w.navigable(from) || !w.navigable(to) {
		return core.Path{Status: core.PathInvalid}
	}
	for _, z := range w.era.ZonesOf(catalog.ZoneObstacle) {
		if z.Crosses(from, to) {
			return core.Path{Status: core.PathPartial, Corners: []core.Vec3{from, w.lastClear(from, to)}}
		}
	}
	return core.Path{Status: core.PathComplete, Corners: []core.Vec3{from, to}}
}

func (w *World) lastClear(from, to core.Vec3) core.Vec3 {
	length := core.HorizontalDistance(from, to)
	dir := core.Flatten(to.Sub(from)).Normalize()
	clear := from
	for d := probeStep; d < length; d += probeStep {
		p := from.Add(dir.Mul(d))
		if !w.navigable(p) {
			break
		}
		clear = p
	}
	return clear
}

// NearestNavigablePoint snaps p to walkable ground within tolerance.
func (w *World) NearestNavigablePoint(p core.Vec3, tolerance float64) (core.Vec3, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return geo.NearestWhere(ground(p), tolerance, w.navigable)
}

func (w *World) SetDestination(path core.Path) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.corners = append([]core.Vec3(nil), path.Corners...)
	w.status = path.Status
	w.hasPath = len(path.Corners) > 0
}

func (w *World) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.speed = 0
}

func (w *World) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = false
}

// Warp teleports the agent and drops its path.
func (w *World) Warp(p core.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pos = ground(p)
	w.corners = nil
	w.hasPath = false
	w.speed = 0
	w.warps++
}

func (w *World) SetSpeedProfile(profile core.SpeedProfile) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.profile = profile
}

func (w *World) SetFacing(character, camera core.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.character, w.camera = character, camera
}

// RequestTransition schedules the switch to req.To after the configured
// number of ticks. A newer request replaces a pending one.
func (w *World) RequestTransition(req core.TransitionRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transitions = append(w.transitions, req)
	w.pending = &pendingTransition{req: req, due: w.tick + uint64(max(w.transTime, 1))}
}

func (w *World) SetOverlaysVisible(visible bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.overlays = visible
	w.visCalls++
}

func (w *World) SetPedestriansVisible(visible bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pedestrians = visible
	w.visCalls++
}

// IsManualOverrideRequested is true while a scripted override window is open.
func (w *World) IsManualOverrideRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.override()
	return ok
}

// ground drops p onto the flat floor.
func ground(p core.Vec3) core.Vec3 {
	return core.Vec3{X: p.X, Z: p.Z}
}
