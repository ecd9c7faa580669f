package tour

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/timewalk/tourguide/pkg/core"
)

// drive steers the agent toward the current waypoint for one tick.
func (m *Machine) drive(s *Session, tel core.Telemetry) {
	nav := m.host.Navigator

	if !tel.OnNavigableSurface {
		p, ok := m.recovery.Relocate(tel.Position)
		if !ok {
			m.trace.Warn().Str("scene", string(s.Scene)).Msg("agent off navigable surface with no point nearby")
			return
		}
		nav.Warp(p)
		s.needsFreshPath = true
		m.logger.Debug("agent relocated to navigable surface", "scene", s.Scene, "to", p)
		m.record(core.EventRecovery, s, "", "", map[string]any{"outcome": "relocated"})
		return
	}

	switch {
	case s.pendingRetry:
		// Heading to the fallback until the retry fires.
	case s.needsFreshPath || !tel.HasPath:
		m.requestPath(s, tel.Position)
	case tel.PathStatus != core.PathComplete && !tel.TraversingLink:
		m.recoverPath(s, tel.Position)
	}

	m.applySpeedProfile(s, tel)
	m.applyFacing(s, tel)
}

// requestPath asks for a path to the current waypoint and falls back to the
// recovery ladder when the oracle cannot provide a complete one.
func (m *Machine) requestPath(s *Session, from core.Vec3) {
	wp := s.Current()
	path := m.host.Navigator.FindPath(from, wp.Destination)
	m.trace.Debug().Str("scene", string(s.Scene)).Str("waypoint", wp.Name).
		Stringer("status", path.Status).Msg("path requested")

	if path.Status == core.PathComplete {
		m.host.Navigator.SetDestination(path)
		s.needsFreshPath = false
		return
	}
	m.recoverPath(s, from)
}

func (m *Machine) recoverPath(s *Session, pos core.Vec3) {
	d := m.recovery.Decide(s, pos)
	m.metrics.recoveries.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", d.Outcome.String())))

	switch d.Outcome {
	case RecoveryStalled:
		m.reportMissingFallback(s)
		return

	case RecoveryRedirected:
		m.host.Navigator.SetDestination(d.Path)
		s.needsFreshPath = false
		s.pendingRetry = true
		s.recoveryAttempts++
		m.sched.afterTicks(m.tick, m.params.RetryDelayTicks, &continuation{
			name: "path retry",
			snap: m.snapshot(),
			run: func() {
				s.pendingRetry = false
				s.needsFreshPath = true
			},
			cancel: func() {
				s.pendingRetry = false
			},
		})

	case RecoveryAdvanced:
		m.advance(s, "path recovery")
		start := m.recovery.RestartFrom(pos)
		m.host.Navigator.SetDestination(m.host.Navigator.FindPath(start, s.Current().Destination))
		s.needsFreshPath = false
	}

	m.logger.Debug("path recovery", "scene", s.Scene, "outcome", d.Outcome.String(),
		"reason", d.Reason, "fallbackDistance", d.FallbackDistance, "attempts", s.recoveryAttempts)
	m.record(core.EventRecovery, s, "", "", map[string]any{
		"outcome":          d.Outcome.String(),
		"reason":           d.Reason,
		"fallbackDistance": d.FallbackDistance,
	})
}

// selectProfile picks the outdoor profile only on flat outdoor ground with a
// long way left to go.
func (m *Machine) selectProfile(tel core.Telemetry) core.SpeedProfile {
	if m.host.Terrain.IsOutdoor(tel.SurfaceTag) &&
		tel.RemainingDistance > m.params.OutdoorMinDistance &&
		core.SlopeDegrees(tel.SurfaceNormal) <= m.params.FlatSlopeDegrees {
		return m.params.Outdoor
	}
	return m.params.Indoor
}

func (m *Machine) applySpeedProfile(s *Session, tel core.Telemetry) {
	profile := m.selectProfile(tel)
	if profile.Name == m.speedProfile {
		return
	}
	m.speedProfile = profile.Name
	m.host.Navigator.SetSpeedProfile(profile)
	m.trace.Debug().Str("scene", string(s.Scene)).Str("profile", profile.Name).Msg("speed profile changed")
}

// applyFacing looks at the photo when close to the waypoint and along the
// direction of travel otherwise.
func (m *Machine) applyFacing(s *Session, tel core.Telemetry) {
	wp := s.Current()

	var desired core.Vec3
	if core.HorizontalDistance(tel.Position, wp.Destination) <= m.params.LookToCameraDistance {
		desired = core.Flatten(wp.ViewTarget.Sub(tel.Position))
	} else {
		desired = core.Flatten(tel.Velocity)
	}

	facing := m.blender.Blend(desired)
	if core.IsZero(facing, 1e-9) {
		return
	}
	character := core.Flatten(facing)
	if core.IsZero(character, 1e-9) {
		return
	}
	m.host.Navigator.SetFacing(character.Normalize(), facing)
}
