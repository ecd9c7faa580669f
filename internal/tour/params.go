package tour

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/timewalk/tourguide/pkg/core"
)

// Order selects how a scene's waypoints are sequenced.
type Order int

const (
	// OrderCurated keeps the waypoint source's order.
	OrderCurated Order = iota
	// OrderShuffled randomizes the order, deterministically when Params.Seed is set.
	OrderShuffled
	// OrderDebug keeps only Params.DebugWaypoints, in curated order.
	OrderDebug
)

func (o Order) String() string {
	switch o {
	case OrderCurated:
		return "curated"
	case OrderShuffled:
		return "shuffled"
	case OrderDebug:
		return "debug"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseOrder converts a config value to an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "curated":
		return OrderCurated, nil
	case "shuffled", "random":
		return OrderShuffled, nil
	case "debug":
		return OrderDebug, nil
	}
	return OrderCurated, fmt.Errorf("unknown waypoint order %q", s)
}

// Params holds the tour tunables.
type Params struct {
	PauseAtCameraDuration time.Duration
	ResumeDuration        time.Duration
	ResumeDurationPeeking time.Duration
	PeekDuration          time.Duration
	PrePeekDelay          time.Duration

	LookToCameraDistance float64
	NearToggleDistance   float64
	FarToggleDistance    float64
	MinApproachDistance  float64

	RetryDelayTicks     int
	MaxRecoveryAttempts int

	TurnRate       float64
	PreBlendAngle  float64 // degrees
	PreBlendFrames int

	StationarySpeed    float64
	NavSampleTolerance float64
	AgentGroundOffset  float64
	WaypointPullBack   float64

	OutdoorMinDistance float64
	FlatSlopeDegrees   float64
	Indoor             core.SpeedProfile
	Outdoor            core.SpeedProfile

	PeekOnArrival      bool
	PeriodicTimeTravel bool

	Order          Order
	Seed           int64
	DebugWaypoints []string

	TransitionEffect       string
	TransitionDuration     time.Duration
	PeekTransitionDuration time.Duration

	// SampleEveryTicks controls how often telemetry samples are recorded. Zero disables sampling.
	SampleEveryTicks  int
	// CommandQueueLimit bounds commands queued between ticks. Zero is unbounded.
	CommandQueueLimit int
}

// DefaultParams returns the stock tunables.
func DefaultParams() Params {
	return Params{
		PauseAtCameraDuration:  10 * time.Second,
		ResumeDuration:         4 * time.Second,
		ResumeDurationPeeking:  4500 * time.Millisecond,
		PeekDuration:           10 * time.Second,
		PrePeekDelay:           1500 * time.Millisecond,
		LookToCameraDistance:   3,
		NearToggleDistance:     4,
		FarToggleDistance:      8,
		MinApproachDistance:    20,
		RetryDelayTicks:        10,
		MaxRecoveryAttempts:    8,
		TurnRate:               0.4,
		PreBlendAngle:          60,
		PreBlendFrames:         30,
		StationarySpeed:        0.05,
		NavSampleTolerance:     5,
		AgentGroundOffset:      1,
		WaypointPullBack:       1.5,
		OutdoorMinDistance:     15,
		FlatSlopeDegrees:       5,
		Indoor:                 core.SpeedProfile{Name: "indoor", Speed: 1.4, Acceleration: 4},
		Outdoor:                core.SpeedProfile{Name: "outdoor", Speed: 3.5, Acceleration: 6},
		PeekOnArrival:          true,
		TransitionEffect:       "fade",
		TransitionDuration:     2 * time.Second,
		PeekTransitionDuration: time.Second,
		SampleEveryTicks:       20,
		CommandQueueLimit:      16,
	}
}

// Validate reports tunables the machine cannot run with.
func (p Params) Validate() error {
	var errs []error
	if p.PauseAtCameraDuration <= 0 {
		errs = append(errs, errors.New("pauseAtCameraDuration must be positive"))
	}
	if p.ResumeDuration <= 0 || p.ResumeDurationPeeking <= 0 {
		errs = append(errs, errors.New("resume durations must be positive"))
	}
	if p.PeekDuration <= 0 {
		errs = append(errs, errors.New("peekDuration must be positive"))
	}
	if p.CommandQueueLimit < 0 {
		errs = append(errs, errors.New("commandQueueLimit must not be negative"))
	}
	if p.PrePeekDelay < 0 {
		errs = append(errs, errors.New("prePeekDelay must not be negative"))
	}
	if p.NearToggleDistance <= 0 || p.FarToggleDistance < p.NearToggleDistance {
		errs = append(errs, fmt.Errorf("toggle distances must satisfy 0 < near (%v) <= far (%v)",
			p.NearToggleDistance, p.FarToggleDistance))
	}
	if p.RetryDelayTicks < 1 {
		errs = append(errs, errors.New("retryDelayTicks must be at least 1"))
	}
	if p.MaxRecoveryAttempts < 1 {
		errs = append(errs, errors.New("maxRecoveryAttempts must be at least 1"))
	}
	if p.TurnRate <= 0 {
		errs = append(errs, errors.New("turnRate must be positive"))
	}
	if p.PreBlendAngle <= 0 || p.PreBlendAngle > 180 {
		errs = append(errs, errors.New("preBlendAngle must be in (0, 180]"))
	}
	if p.PreBlendFrames < 0 {
		errs = append(errs, errors.New("preBlendFrames must not be negative"))
	}
	if p.Order == OrderDebug && len(p.DebugWaypoints) == 0 {
		errs = append(errs, errors.New("debug order needs at least one debug waypoint"))
	}
	return errors.Join(errs...)
}
