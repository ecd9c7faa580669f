package tour

import (
	"github.com/timewalk/tourguide/pkg/core"
	"github.com/timewalk/tourguide/pkg/engine"
)

// RecoveryOutcome is the result of one pass of the recovery ladder.
type RecoveryOutcome int

const (
	// RecoveryStalled means the scene has no fallback waypoint; nothing was done.
	RecoveryStalled RecoveryOutcome = iota
	// RecoveryRedirected means the agent was sent to the fallback and a retry is due.
	RecoveryRedirected
	// RecoveryAdvanced means the destination was given up on.
	RecoveryAdvanced
)

func (o RecoveryOutcome) String() string {
	switch o {
	case RecoveryStalled:
		return "stalled"
	case RecoveryRedirected:
		return "redirected"
	case RecoveryAdvanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// RecoveryDecision is what the policy chose for a partial or invalid path.
type RecoveryDecision struct {
	Outcome RecoveryOutcome
	Reason  string
	// Path is the verified path to the fallback when redirecting.
	Path             core.Path
	FallbackDistance float64
}

// RecoveryPolicy decides how to get an agent with a partial or invalid path
// moving again.
type RecoveryPolicy struct {
	nav    engine.Navigator
	params Params
}

func NewRecoveryPolicy(nav engine.Navigator, p Params) RecoveryPolicy {
	return RecoveryPolicy{nav: nav, params: p}
}

// Decide runs the ladder for the session's current destination from pos.
func (r RecoveryPolicy) Decide(s *Session, pos core.Vec3) RecoveryDecision {
	fallback, ok := s.Fallback()
	if !ok {
		return RecoveryDecision{Outcome: RecoveryStalled, Reason: "no fallback waypoint"}
	}
	if s.recoveryAttempts >= r.params.MaxRecoveryAttempts {
		return RecoveryDecision{Outcome: RecoveryAdvanced, Reason: "recovery attempts exhausted"}
	}

	dist := pos.Distance(fallback.Destination)
	verify := r.nav.FindPath(pos, fallback.Destination)

	switch {
	case dist <= r.params.MinApproachDistance:
		return RecoveryDecision{Outcome: RecoveryAdvanced, Reason: "within approach distance of fallback", FallbackDistance: dist}
	case verify.Status != core.PathComplete:
		return RecoveryDecision{Outcome: RecoveryAdvanced, Reason: "fallback path " + verify.Status.String(), FallbackDistance: dist}
	}
	return RecoveryDecision{
		Outcome:          RecoveryRedirected,
		Reason:           "redirect to fallback",
		Path:             verify,
		FallbackDistance: dist,
	}
}

// Relocate returns the navigable point to warp an off-surface agent to,
// raised to the character's grounded height.
func (r RecoveryPolicy) Relocate(pos core.Vec3) (core.Vec3, bool) {
	p, ok := r.nav.NearestNavigablePoint(pos, r.params.NavSampleTolerance)
	if !ok {
		return core.Vec3{}, false
	}
	p.Y += r.params.AgentGroundOffset
	return p, true
}

// RestartFrom returns where a fresh path after giving up should start.
func (r RecoveryPolicy) RestartFrom(pos core.Vec3) core.Vec3 {
	if p, ok := r.nav.NearestNavigablePoint(pos, r.params.NavSampleTolerance); ok {
		return p
	}
	return pos
}
