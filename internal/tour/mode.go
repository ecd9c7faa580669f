package tour

// State is the externally visible tour state.
type State int

const (
	StateInactive State = iota
	StateActive
	StatePaused
	StatePeeking
	StatePeriodicTraveling
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StatePeeking:
		return "peeking"
	case StatePeriodicTraveling:
		return "periodic_traveling"
	default:
		return "unknown"
	}
}

type primary uint8

const (
	primaryInactive primary = iota
	primaryActive
	primaryPaused
)

type subState uint8

const (
	subNone subState = iota
	subPeeking
	subPeriodic
)

// Mode is the tour's mode value. Only the Machine mutates it; everyone else
// gets a copy.
//
// The primary state and sub-state are single fields, so active/paused and
// peeking/periodic-traveling can never be set together.
type Mode struct {
	primary  primary
	sub      subState
	override bool
	epoch    uint64
}

func (m Mode) IsActive() bool                { return m.primary == primaryActive }
func (m Mode) IsPaused() bool                { return m.primary == primaryPaused }
func (m Mode) IsRunning() bool               { return m.primary != primaryInactive }
func (m Mode) IsPeeking() bool               { return m.sub == subPeeking }
func (m Mode) IsPeriodicTimeTraveling() bool { return m.sub == subPeriodic }
func (m Mode) IsOverrideRequested() bool     { return m.override }

// Epoch increments on every primary or sub-state change. Delayed actions
// capture it and are dropped when it has moved on.
func (m Mode) Epoch() uint64 { return m.epoch }

// State projects the mode onto the five tour states. A paused tour reports
// Paused even while a peek is pending.
func (m Mode) State() State {
	switch m.primary {
	case primaryInactive:
		return StateInactive
	case primaryPaused:
		return StatePaused
	}
	switch m.sub {
	case subPeeking:
		return StatePeeking
	case subPeriodic:
		return StatePeriodicTraveling
	}
	return StateActive
}

func (m *Mode) set(p primary, s subState) bool {
	if m.primary == p && m.sub == s {
		return false
	}
	m.primary, m.sub = p, s
	m.epoch++
	return true
}
