// Package tour implements the guided tour autopilot: a per-tick state machine
// that walks an agent through curated waypoints, pauses at each photo,
// recovers from bad paths and triggers era transitions.
package tour

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/timewalk/tourguide/internal/logging"
	"github.com/timewalk/tourguide/internal/queue"
	"github.com/timewalk/tourguide/pkg/core"
	"github.com/timewalk/tourguide/pkg/engine"
)

// ErrSceneDisabled is returned when ticking a scene that is currently disabled.
var ErrSceneDisabled = errors.New("scene disabled")

// Recorder receives the tour journal. Errors are logged, never propagated
// into the tick.
type Recorder interface {
	StartSession(s core.TourSession) error
	RecordEvent(e core.TourEvent) error
	RecordSample(s core.TelemetrySample) error
	EndSession(s core.TourSession) error
}

type nopRecorder struct{}

func (nopRecorder) StartSession(core.TourSession) error     { return nil }
func (nopRecorder) RecordEvent(core.TourEvent) error        { return nil }
func (nopRecorder) RecordSample(core.TelemetrySample) error { return nil }
func (nopRecorder) EndSession(core.TourSession) error       { return nil }

// Command is a request queued by the host and consumed on the next tick.
type Command interface {
	commandName() string
}

// TimeTravel requests an era transition. An empty To means the next era.
// Brief transitions use the peek transition duration.
type TimeTravel struct {
	To    core.SceneID
	Brief bool
}

// TransitionDone reports that the host finished a transition into Era.
type TransitionDone struct {
	Era core.SceneID
}

func (TimeTravel) commandName() string     { return "time_travel" }
func (TransitionDone) commandName() string { return "transition_done" }

// Options configures a Machine.
type Options struct {
	Params Params
	// Eras is the era ring used to resolve the next era for time travel.
	Eras     []core.SceneID
	Origin   core.GeoOrigin
	Logger   *slog.Logger
	Trace    *zerolog.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Status is a snapshot of the machine for status queries.
type Status struct {
	State          State        `json:"state"`
	Scene          core.SceneID `json:"scene"`
	WaypointIndex  int          `json:"waypointIndex"`
	WaypointName   string       `json:"waypointName"`
	Waypoints      int          `json:"waypoints"`
	Tick           uint64       `json:"tick"`
	SessionID      string       `json:"sessionId"`
	PendingActions int          `json:"pendingActions"`
	Transitioning  core.SceneID `json:"transitioning,omitempty"`

	// DroppedCommands counts commands rejected by a full command queue.
	DroppedCommands uint64 `json:"droppedCommands,omitempty"`
}

// Machine is the tour coordinator. It is not safe for concurrent use except
// for Enqueue.
type Machine struct {
	host     engine.Host
	params   Params
	eras     []core.SceneID
	origin   core.GeoOrigin
	logger   *slog.Logger
	trace    zerolog.Logger
	rec      Recorder
	now      func() time.Time
	metrics  *metrics
	recovery RecoveryPolicy

	mode     Mode
	sessions map[core.SceneID]*Session
	current  core.SceneID
	commands *queue.Queue[Command]
	sched    scheduler
	blender  *Blender
	vis      *VisibilitySync

	tick         uint64
	simTime      time.Duration
	lastPosition core.Vec3
	peekOrigin   core.SceneID
	peekElapsed  time.Duration
	speedProfile string
	// transitioning is the era a requested transition is heading to.
	transitioning core.SceneID
	journal       core.TourSession
}

// New creates an inactive machine over the host collaborators.
func New(host engine.Host, opts Options) (*Machine, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tour params: %w", err)
	}
	if host.Navigator == nil || host.Transitioner == nil || host.Visibility == nil ||
		host.Override == nil || host.Waypoints == nil || host.Terrain == nil {
		return nil, errors.New("tour: every host collaborator is required")
	}

	mt, err := newMetrics()
	if err != nil {
		return nil, err
	}

	m := &Machine{
		host:     host,
		params:   opts.Params,
		eras:     opts.Eras,
		origin:   opts.Origin,
		logger:   opts.Logger,
		rec:      opts.Recorder,
		now:      opts.Now,
		metrics:  mt,
		recovery: NewRecoveryPolicy(host.Navigator, opts.Params),
		sessions: make(map[core.SceneID]*Session),
		commands: queue.NewBounded[Command](opts.Params.CommandQueueLimit),
		blender:  NewBlender(opts.Params.TurnRate, opts.Params.PreBlendAngle, opts.Params.PreBlendFrames),
		vis:      NewVisibilitySync(),
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "tour")
	if opts.Trace != nil {
		m.trace = *opts.Trace
	} else {
		m.trace = zerolog.Nop()
	}
	if m.rec == nil {
		m.rec = nopRecorder{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Mode returns a copy of the current mode.
func (m *Machine) Mode() Mode { return m.mode }

// State returns the projected tour state.
func (m *Machine) State() State { return m.mode.State() }

// CurrentScene is the scene of the most recent tick, or the first enabled scene.
func (m *Machine) CurrentScene() core.SceneID { return m.current }

// Session returns the session for scene.
func (m *Machine) Session(scene core.SceneID) (*Session, bool) {
	s, ok := m.sessions[scene]
	return s, ok
}

// Visibility exposes the visibility tracker for inspection.
func (m *Machine) Visibility() *VisibilitySync { return m.vis }

// Blender exposes the orientation blender for inspection.
func (m *Machine) Blender() *Blender { return m.blender }

// Pending returns the number of scheduled delayed actions.
func (m *Machine) Pending() int { return m.sched.len() }

// Status returns a snapshot for status queries.
func (m *Machine) Status() Status {
	st := Status{
		State:          m.mode.State(),
		Scene:          m.current,
		Tick:           m.tick,
		SessionID:      m.journal.ID,
		PendingActions: m.sched.len(),
		Transitioning:  m.transitioning,

		DroppedCommands: m.commands.Dropped(),
	}
	if s, ok := m.sessions[m.current]; ok {
		wp := s.Current()
		st.WaypointIndex = s.Index()
		st.WaypointName = wp.Name
		st.Waypoints = s.seq.Len()
	}
	return st
}

// Enable creates the scene's session on first use, or resets it. Re-enabling
// while a tour is running pauses the tour and forces a fresh path.
func (m *Machine) Enable(scene core.SceneID) error {
	if s, ok := m.sessions[scene]; ok {
		s.reset()
		m.vis.ForceRefresh()
		if m.mode.IsActive() {
			m.host.Navigator.Stop()
			m.setMode(primaryPaused, m.mode.sub, "scene re-enabled")
		}
		m.logger.Info("scene re-enabled", "scene", scene, "index", s.Index())
		return nil
	}

	waypoints, err := BuildWaypoints(scene, m.host.Waypoints, m.host.Navigator, m.params, m.logger)
	if err != nil {
		return err
	}
	seq, err := NewSequencer(waypoints, m.params.Order, m.params.Seed, m.params.DebugWaypoints)
	if err != nil {
		return fmt.Errorf("sequencing scene %s: %w", scene, err)
	}

	s := newSession(scene, seq)
	m.sessions[scene] = s
	if m.current == "" {
		m.current = scene
	}
	m.vis.ForceRefresh()

	if _, ok := seq.FallbackIndex(); !ok {
		m.reportMissingFallback(s)
	}
	m.logger.Info("scene enabled", "scene", scene, "waypoints", seq.Len(), "order", m.params.Order.String())
	return nil
}

// Disable marks the scene disabled. Its session keeps its index.
func (m *Machine) Disable(scene core.SceneID) error {
	s, ok := m.sessions[scene]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScene, scene)
	}
	s.enabled = false
	s.resetTimers()
	m.vis.ForceRefresh()
	m.logger.Info("scene disabled", "scene", scene)
	return nil
}

// Start begins a tour. Starting a running tour is a no-op.
func (m *Machine) Start() {
	if m.mode.IsRunning() {
		return
	}

	m.journal = core.TourSession{
		ID:        uuid.NewString(),
		StartTime: m.now(),
		Eras:      append([]core.SceneID(nil), m.eras...),
		Origin:    m.origin,
	}
	if err := m.rec.StartSession(m.journal); err != nil {
		m.logger.Warn("failed to record session start", "error", err)
	}

	for _, s := range m.sessions {
		s.needsFreshPath = true
		s.pendingRetry = false
		s.resetTimers()
	}
	m.speedProfile = ""
	m.transitioning = ""
	m.vis.ForceRefresh()
	m.host.Navigator.Resume()
	m.setMode(primaryActive, subNone, "start")
}

// End stops the tour from any state and drops pending delayed actions.
func (m *Machine) End() {
	if !m.mode.IsRunning() {
		return
	}
	m.host.Navigator.Stop()
	m.setMode(primaryInactive, subNone, "end")
	m.sched.drop()
	m.commands.Clear()
	m.peekOrigin = ""
	m.peekElapsed = 0
	m.transitioning = ""
	m.vis.ForceRefresh()

	m.journal.EndTime = m.now()
	if err := m.rec.EndSession(m.journal); err != nil {
		m.logger.Warn("failed to record session end", "error", err)
	}
	m.journal = core.TourSession{}
}

// Enqueue queues a command for the next tick. Safe for concurrent use.
// Commands beyond CommandQueueLimit are dropped.
func (m *Machine) Enqueue(cmd Command) {
	if !m.commands.Push(cmd) {
		m.logger.Warn("tour command queue full, command dropped", "command", cmd.commandName())
	}
}

// Tick advances the tour by one simulation step of dt for the given scene.
func (m *Machine) Tick(scene core.SceneID, tel core.Telemetry, dt time.Duration) error {
	s, ok := m.sessions[scene]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScene, scene)
	}
	if !s.enabled {
		return fmt.Errorf("%w: %s", ErrSceneDisabled, scene)
	}

	m.tick++
	m.simTime += dt
	m.current = scene
	m.lastPosition = tel.Position
	m.metrics.ticks.Add(context.Background(), 1)

	m.drainCommands()
	m.fireDue()

	if m.mode.IsRunning() {
		m.step(s, tel, dt)
	} else {
		m.mode.override = false
	}

	m.syncVisibility(s, tel)
	m.sample(s, tel)
	return nil
}

func (m *Machine) step(s *Session, tel core.Telemetry, dt time.Duration) {
	moving := m.isMoving(tel)

	m.mode.override = m.host.Override.IsManualOverrideRequested()
	if m.mode.override {
		if !m.mode.IsPaused() {
			m.host.Navigator.Stop()
			m.setMode(primaryPaused, m.mode.sub, "manual override")
		}
		m.blender.Reset()
		s.pausedStationary = 0
		return
	}

	if m.mode.IsPaused() {
		if moving {
			s.pausedStationary = 0
			return
		}
		s.pausedStationary += dt
		wait := m.params.ResumeDuration
		if m.mode.IsPeeking() {
			wait = m.params.ResumeDurationPeeking
		}
		if s.pausedStationary >= wait {
			m.resume(s)
		}
		return
	}

	switch m.mode.sub {
	case subPeeking:
		m.peekElapsed += dt
		if m.peekElapsed >= m.params.PeekDuration {
			m.setMode(primaryActive, subNone, "peek finished")
			m.finishPeek(true)
		}
	case subPeriodic:
		// Waits for the transition to complete.
	default:
		if moving {
			s.activeStationary = 0
		} else {
			s.activeStationary += dt
		}
		if s.activeStationary >= m.params.PauseAtCameraDuration {
			m.dwell(s)
		}
		if m.mode.IsActive() && m.mode.sub == subNone && m.transitioning == "" {
			m.drive(s, tel)
		}
	}
}

func (m *Machine) resume(s *Session) {
	peeking := m.mode.IsPeeking()
	s.needsFreshPath = true
	m.host.Navigator.Resume()
	m.setMode(primaryActive, subNone, "resume")
	if peeking {
		m.finishPeek(false)
	}
}

// dwell decides what happens after the agent has rested at a waypoint.
func (m *Machine) dwell(s *Session) {
	wp := s.Current()
	s.activeStationary = 0

	switch {
	case m.params.PeriodicTimeTravel && wp.Meta.PeriodicTravelEnabled && m.nextEra(s.Scene) != "":
		m.setMode(primaryActive, subPeriodic, "periodic time travel")
		m.advance(s, "periodic time travel")
		m.Enqueue(TimeTravel{})
	case m.params.PeekOnArrival && wp.Meta.PeekEnabled:
		m.peekOrigin = s.Scene
		m.peekElapsed = 0
		m.setMode(primaryActive, subPeeking, "peek")
		m.Enqueue(TimeTravel{Brief: true})
	default:
		m.advance(s, "dwell")
	}
}

// finishPeek sends the visitor back to the era the peek started from.
func (m *Machine) finishPeek(advance bool) {
	origin := m.peekOrigin
	m.peekOrigin = ""
	m.peekElapsed = 0
	if origin == "" {
		return
	}
	if s, ok := m.sessions[origin]; ok {
		s.needsFreshPath = true
		if advance {
			m.advance(s, "peek finished")
		}
	}
	m.Enqueue(TimeTravel{To: origin, Brief: true})
}

func (m *Machine) advance(s *Session, reason string) {
	from := s.Index()
	to := s.advance()
	s.needsFreshPath = true

	m.metrics.advances.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)))
	m.logger.Debug("waypoint advanced", "scene", s.Scene, "from", from, "to", to, "reason", reason)
	m.record(core.EventAdvance, s, fmt.Sprint(from), fmt.Sprint(to), map[string]any{"reason": reason})
}

func (m *Machine) setMode(p primary, sub subState, reason string) {
	from := m.mode.State()
	if !m.mode.set(p, sub) {
		return
	}
	to := m.mode.State()

	if s, ok := m.sessions[m.current]; ok {
		s.resetTimers()
	}
	if from != to {
		m.blender.Reset()
	}

	m.metrics.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
	m.logger.Info("tour state changed", "from", from.String(), "to", to.String(), "reason", reason)
	m.record(core.EventState, m.sessions[m.current], from.String(), to.String(), map[string]any{"reason": reason})
}

func (m *Machine) drainCommands() {
	for _, cmd := range m.commands.Drain() {
		switch c := cmd.(type) {
		case TimeTravel:
			m.timeTravel(c)
		case TransitionDone:
			m.transitionDone(c)
		default:
			m.logger.Warn("unhandled tour command", "command", cmd.commandName())
		}
	}
}

func (m *Machine) timeTravel(c TimeTravel) {
	target := c.To
	if target == "" {
		target = m.nextEra(m.current)
	}
	switch {
	case target == "":
		m.logger.Warn("time travel has no target era", "scene", m.current)
		m.abandonPeriodic()
		return
	case target == m.current:
		m.logger.Debug("time travel target is the current era", "scene", m.current)
		m.abandonPeriodic()
		return
	}

	from := m.current
	brief := c.Brief || m.mode.IsPeeking()
	if m.mode.IsPeeking() || m.mode.IsPeriodicTimeTraveling() {
		m.sched.afterTime(m.simTime, m.params.PrePeekDelay, &continuation{
			name: "transition",
			snap: m.snapshot(),
			run:  func() { m.requestTransition(from, target, brief) },
		})
		return
	}
	m.requestTransition(from, target, brief)
}

// abandonPeriodic drops a periodic travel that cannot fire back to plain Active.
func (m *Machine) abandonPeriodic() {
	if !m.mode.IsPeriodicTimeTraveling() {
		return
	}
	m.setMode(m.mode.primary, subNone, "periodic travel has no target")
	if s, ok := m.sessions[m.current]; ok {
		s.needsFreshPath = true
	}
}

func (m *Machine) requestTransition(from, to core.SceneID, brief bool) {
	duration := m.params.TransitionDuration
	if brief {
		duration = m.params.PeekTransitionDuration
	}
	req := core.TransitionRequest{
		From:     from,
		To:       to,
		Position: m.lastPosition,
		Facing:   m.blender.Previous(),
		Effect:   m.params.TransitionEffect,
		Duration: duration.Seconds(),
	}
	m.transitioning = to
	m.host.Transitioner.RequestTransition(req)
	m.logger.Info("era transition requested", "from", from, "to", to, "state", m.mode.State().String())
	m.record(core.EventTransition, m.sessions[m.current], string(from), string(to),
		map[string]any{"effect": req.Effect, "duration": req.Duration})
}

func (m *Machine) transitionDone(c TransitionDone) {
	if m.transitioning == c.Era {
		m.transitioning = ""
	}
	if m.mode.IsPeriodicTimeTraveling() {
		m.setMode(m.mode.primary, subNone, "periodic travel complete")
	}
	if s, ok := m.sessions[c.Era]; ok {
		s.needsFreshPath = true
		s.resetTimers()
	}
	m.vis.ForceRefresh()
	m.record(core.EventTransition, m.sessions[c.Era], "", string(c.Era), map[string]any{"done": true})
}

func (m *Machine) nextEra(scene core.SceneID) core.SceneID {
	if len(m.eras) < 2 {
		return ""
	}
	for i, era := range m.eras {
		if era == scene {
			return m.eras[(i+1)%len(m.eras)]
		}
	}
	return ""
}

func (m *Machine) snapshot() snapshot {
	snap := snapshot{epoch: m.mode.epoch, scene: m.current, index: -1}
	if s, ok := m.sessions[m.current]; ok {
		snap.index = s.Index()
	}
	return snap
}

func (m *Machine) stale(snap snapshot) bool {
	return snap != m.snapshot()
}

func (m *Machine) fireDue() {
	for _, c := range m.sched.popDue(m.tick, m.simTime) {
		if m.stale(c.snap) {
			m.trace.Debug().Str("action", c.name).Uint64("tick", m.tick).Msg("dropping stale delayed action")
			if c.cancel != nil {
				c.cancel()
			}
			continue
		}
		c.run()
	}
}

func (m *Machine) syncVisibility(s *Session, tel core.Telemetry) {
	d := SampleDistances(tel.Position, s.Current().Destination, s.seq.Previous().Destination,
		m.params.NearToggleDistance, m.params.FarToggleDistance)
	m.vis.Update(m.mode, m.isMoving(tel), d)

	n := m.vis.Flush(m.host.Visibility)
	if n == 0 {
		return
	}
	overlays, pedestrians := m.vis.Committed()
	m.metrics.visibility.Add(context.Background(), int64(n))
	m.trace.Debug().Bool("overlays", overlays).Bool("pedestrians", pedestrians).
		Float64("toNext", d.ToNext).Float64("toggle", d.ToggleDistance).Msg("visibility pushed")
	m.record(core.EventVisibility, s, "", "", map[string]any{
		"overlays":    overlays,
		"pedestrians": pedestrians,
		"toNext":      d.ToNext,
	})
}

func (m *Machine) sample(s *Session, tel core.Telemetry) {
	if m.params.SampleEveryTicks <= 0 || m.journal.ID == "" || m.tick%uint64(m.params.SampleEveryTicks) != 0 {
		return
	}
	err := m.rec.RecordSample(core.TelemetrySample{
		SessionID:     m.journal.ID,
		Scene:         s.Scene,
		Tick:          m.tick,
		Time:          m.now(),
		State:         m.mode.State().String(),
		Position:      tel.Position,
		Speed:         tel.Velocity.Norm(),
		WaypointIndex: s.Index(),
		ToNext:        tel.Position.Distance(s.Current().Destination),
	})
	if err != nil {
		m.logger.Warn("failed to record telemetry sample", "error", err)
	}
}

func (m *Machine) record(kind core.EventKind, s *Session, from, to string, detail map[string]any) {
	if m.journal.ID == "" {
		return
	}
	ev := core.TourEvent{
		SessionID:     m.journal.ID,
		Scene:         m.current,
		Tick:          m.tick,
		SimTime:       m.simTime.Seconds(),
		Time:          m.now(),
		Kind:          kind,
		From:          from,
		To:            to,
		WaypointIndex: -1,
		Detail:        detail,
	}
	if s != nil {
		ev.Scene = s.Scene
		ev.WaypointIndex = s.Index()
		ev.WaypointName = s.Current().Name
	}
	if err := m.rec.RecordEvent(ev); err != nil {
		m.logger.Warn("failed to record tour event", "kind", kind, "error", err)
	}
}

func (m *Machine) reportMissingFallback(s *Session) {
	if s.fatalLogged {
		return
	}
	s.fatalLogged = true
	m.logger.Log(context.Background(), logging.LevelFatal,
		"no fallback waypoint for scene, path recovery disabled", "scene", s.Scene)
	m.record(core.EventFatal, s, "", "", map[string]any{"error": "no fallback waypoint"})
}

func (m *Machine) isMoving(tel core.Telemetry) bool {
	return tel.Velocity.Norm() > m.params.StationarySpeed
}
