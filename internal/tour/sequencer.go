package tour

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/timewalk/tourguide/pkg/core"
	"github.com/timewalk/tourguide/pkg/engine"
)

var (
	// ErrNoWaypoints is returned when a scene yields no usable waypoint.
	ErrNoWaypoints = errors.New("no waypoints")
	// ErrUnknownScene is returned for a scene that was never enabled.
	ErrUnknownScene = errors.New("unknown scene")
)

// BuildWaypoints turns a scene's photo cameras into tour waypoints. Each camera
// is pulled back along its view direction and projected onto the navigable
// surface; cameras that cannot be projected are skipped.
func BuildWaypoints(scene core.SceneID, src engine.WaypointSource, nav engine.Navigator, p Params, logger *slog.Logger) ([]core.Waypoint, error) {
	cams, err := src.ListWaypoints(scene)
	if err != nil {
		return nil, fmt.Errorf("listing waypoints for %s: %w", scene, err)
	}

	waypoints := make([]core.Waypoint, 0, len(cams))
	for _, cam := range cams {
		forward := cam.Forward
		if !core.IsZero(forward, 1e-9) {
			forward = forward.Normalize()
		}
		adjusted := cam.Position.Sub(forward.Mul(p.WaypointPullBack))

		dest, ok := nav.NearestNavigablePoint(adjusted, p.NavSampleTolerance)
		if !ok {
			logger.Warn("photo camera has no navigable point nearby, skipping",
				"scene", scene, "camera", cam.Name, "position", adjusted)
			continue
		}

		meta, _ := src.Metadata(scene, cam.Name)
		waypoints = append(waypoints, core.Waypoint{
			Name:             cam.Name,
			CameraPosition:   cam.Position,
			AdjustedPosition: adjusted,
			Destination:      dest,
			ViewTarget:       cam.Position.Add(forward),
			Meta:             meta,
		})
	}

	if len(waypoints) == 0 {
		return nil, fmt.Errorf("%w: scene %s", ErrNoWaypoints, scene)
	}
	return waypoints, nil
}

// Sequencer holds the ordered waypoints of one scene and the current index.
type Sequencer struct {
	waypoints []core.Waypoint
	index     int
	fallback  int
}

// NewSequencer orders waypoints per order. seed 0 means an unseeded shuffle.
func NewSequencer(waypoints []core.Waypoint, order Order, seed int64, debug []string) (*Sequencer, error) {
	ordered := make([]core.Waypoint, 0, len(waypoints))

	switch order {
	case OrderCurated:
		ordered = append(ordered, waypoints...)
	case OrderShuffled:
		ordered = append(ordered, waypoints...)
		r := shuffleSource(seed)
		r.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	case OrderDebug:
		keep := make(map[string]bool, len(debug))
		for _, name := range debug {
			keep[name] = true
		}
		for _, wp := range waypoints {
			if keep[wp.Name] {
				ordered = append(ordered, wp)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported order %v", order)
	}

	if len(ordered) == 0 {
		return nil, ErrNoWaypoints
	}

	s := &Sequencer{waypoints: ordered, fallback: -1}
	for i, wp := range ordered {
		if wp.Meta.Fallback {
			s.fallback = i
			break
		}
	}
	return s, nil
}

func shuffleSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

func (s *Sequencer) Len() int   { return len(s.waypoints) }
func (s *Sequencer) Index() int { return s.index }

// Waypoints returns a copy of the ordered waypoints.
func (s *Sequencer) Waypoints() []core.Waypoint {
	return append([]core.Waypoint(nil), s.waypoints...)
}

// At returns the waypoint at i modulo Len.
func (s *Sequencer) At(i int) core.Waypoint {
	return s.waypoints[s.wrap(i)]
}

func (s *Sequencer) Current() core.Waypoint  { return s.At(s.index) }
func (s *Sequencer) Previous() core.Waypoint { return s.At(s.index - 1) }
func (s *Sequencer) Next() core.Waypoint     { return s.At(s.index + 1) }

// Advance moves to the next waypoint, wrapping to the first.
func (s *Sequencer) Advance() int {
	s.index = s.wrap(s.index + 1)
	return s.index
}

// Retreat moves to the previous waypoint, wrapping to the last.
func (s *Sequencer) Retreat() int {
	s.index = s.wrap(s.index - 1)
	return s.index
}

// FallbackIndex returns the index of the reliably reachable waypoint used for
// path recovery.
func (s *Sequencer) FallbackIndex() (int, bool) {
	return s.fallback, s.fallback >= 0
}

func (s *Sequencer) wrap(i int) int {
	n := len(s.waypoints)
	return ((i % n) + n) % n
}
