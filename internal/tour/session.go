package tour

import (
	"time"

	"github.com/timewalk/tourguide/pkg/core"
)

// Session is the per-scene tour state. Sessions outlive scene disable so an
// era keeps its place in the tour; re-enable resets everything but the index.
type Session struct {
	Scene core.SceneID

	seq     *Sequencer
	enabled bool

	activeStationary time.Duration
	pausedStationary time.Duration

	needsFreshPath   bool
	pendingRetry     bool
	recoveryAttempts int
	fatalLogged      bool
}

func newSession(scene core.SceneID, seq *Sequencer) *Session {
	return &Session{
		Scene:          scene,
		seq:            seq,
		enabled:        true,
		needsFreshPath: true,
	}
}

func (s *Session) Sequencer() *Sequencer { return s.seq }
func (s *Session) Index() int            { return s.seq.Index() }
func (s *Session) Enabled() bool         { return s.enabled }

// Current returns the waypoint the agent is heading to.
func (s *Session) Current() core.Waypoint { return s.seq.Current() }

// Fallback returns the recovery anchor waypoint, if the scene has one.
func (s *Session) Fallback() (core.Waypoint, bool) {
	i, ok := s.seq.FallbackIndex()
	if !ok {
		return core.Waypoint{}, false
	}
	return s.seq.At(i), true
}

// ActiveStationary is the time the agent has been still while the tour was active.
func (s *Session) ActiveStationary() time.Duration { return s.activeStationary }

// PausedStationary is the time the agent has been still and unsteered while paused.
func (s *Session) PausedStationary() time.Duration { return s.pausedStationary }

func (s *Session) NeedsFreshPath() bool  { return s.needsFreshPath }
func (s *Session) PendingRetry() bool    { return s.pendingRetry }
func (s *Session) RecoveryAttempts() int { return s.recoveryAttempts }

func (s *Session) resetTimers() {
	s.activeStationary = 0
	s.pausedStationary = 0
}

// reset clears transient state on re-enable. The index is kept.
func (s *Session) reset() {
	s.enabled = true
	s.resetTimers()
	s.needsFreshPath = true
	s.pendingRetry = false
	s.recoveryAttempts = 0
}

// advance moves to the next waypoint and drops destination-specific state.
func (s *Session) advance() int {
	s.activeStationary = 0
	s.pendingRetry = false
	s.recoveryAttempts = 0
	return s.seq.Advance()
}
