// Package parser converts raw host command arguments into tour inputs. It has
// no dependencies beyond a logger and never touches tour state.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/timewalk/tourguide/internal/util"
	"github.com/timewalk/tourguide/pkg/core"
)

// ErrArgs is returned when a command gets the wrong number of arguments.
var ErrArgs = errors.New("wrong number of arguments")

// maxTickStep bounds dt; anything longer is a host hitch, not a tick.
const maxTickStep = 5 * time.Second

// Tick is a parsed :TOUR:TICK: call.
type Tick struct {
	Scene     core.SceneID
	DT        time.Duration
	Telemetry core.Telemetry
}

// Parser provides pure []string -> tour input conversion.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// clean strips the host's quoting from every argument.
func clean(args []string) []string {
	out := make([]string, len(args))
	for i, v := range args {
		out[i] = util.Unquote(strings.TrimSpace(v))
	}
	return out
}

// ParseScene reads a single scene id argument.
func (p *Parser) ParseScene(args []string) (core.SceneID, error) {
	args = clean(args)
	if len(args) != 1 {
		return "", fmt.Errorf("%w: want scene, got %d args", ErrArgs, len(args))
	}
	if args[0] == "" {
		return "", errors.New("empty scene id")
	}
	return core.SceneID(args[0]), nil
}

// ParseTick reads [scene, dt seconds, telemetry JSON].
func (p *Parser) ParseTick(args []string) (Tick, error) {
	args = clean(args)
	if len(args) != 3 {
		return Tick{}, fmt.Errorf("%w: want scene, dt, telemetry; got %d args", ErrArgs, len(args))
	}
	if args[0] == "" {
		return Tick{}, errors.New("empty scene id")
	}

	dt, err := parseSeconds(args[1])
	if err != nil {
		return Tick{}, fmt.Errorf("error parsing dt: %w", err)
	}
	if dt > maxTickStep {
		p.logger.Warn("clamping long tick", "scene", args[0], "dt", dt)
		dt = maxTickStep
	}

	tel, err := ParseTelemetry([]byte(args[2]))
	if err != nil {
		return Tick{}, err
	}
	return Tick{Scene: core.SceneID(args[0]), DT: dt, Telemetry: tel}, nil
}

// ParseTimeTravel reads an optional target era and an optional "brief" flag.
// No arguments means the next era of the ring.
func (p *Parser) ParseTimeTravel(args []string) (core.SceneID, bool, error) {
	args = clean(args)
	switch len(args) {
	case 0:
		return "", false, nil
	case 1:
		return core.SceneID(args[0]), false, nil
	case 2:
		brief, err := strconv.ParseBool(args[1])
		if err != nil && strings.EqualFold(args[1], "brief") {
			brief, err = true, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("error parsing brief flag %q: %w", args[1], err)
		}
		return core.SceneID(args[0]), brief, nil
	}
	return "", false, fmt.Errorf("%w: want [era [brief]], got %d args", ErrArgs, len(args))
}

// parseSeconds parses a non-negative duration given in (fractional) seconds.
func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a valid duration", s)
	}
	return time.Duration(math.Round(f * float64(time.Second))), nil
}

// vec3 accepts [x, y, z] or {"x":…, "y":…, "z":…}.
type vec3 core.Vec3

func (v *vec3) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) != 3 {
			return fmt.Errorf("vector needs 3 components, got %d", len(arr))
		}
		*v = vec3{X: arr[0], Y: arr[1], Z: arr[2]}
		return nil
	}
	var obj struct{ X, Y, Z float64 }
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("vector must be an array or object: %w", err)
	}
	*v = vec3{X: obj.X, Y: obj.Y, Z: obj.Z}
	return nil
}

type telemetryWire struct {
	Position           *vec3           `json:"position"`
	Velocity           vec3            `json:"velocity"`
	RemainingDistance  float64         `json:"remainingDistance"`
	HasPath            bool            `json:"hasPath"`
	PathStatus         core.PathStatus `json:"pathStatus"`
	OnNavigableSurface *bool           `json:"onNavigableSurface"`
	TraversingLink     bool            `json:"traversingLink"`
	SurfaceTag         string          `json:"surfaceTag"`
	SurfaceNormal      vec3            `json:"surfaceNormal"`
}

// ParseTelemetry decodes a telemetry object. Position is required; the agent
// is assumed to be on the navigable surface unless told otherwise.
func ParseTelemetry(data []byte) (core.Telemetry, error) {
	var w telemetryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return core.Telemetry{}, fmt.Errorf("error unmarshalling telemetry: %w", err)
	}
	if w.Position == nil {
		return core.Telemetry{}, errors.New("telemetry without position")
	}

	tel := core.Telemetry{
		Position:           core.Vec3(*w.Position),
		Velocity:           core.Vec3(w.Velocity),
		RemainingDistance:  w.RemainingDistance,
		HasPath:            w.HasPath,
		PathStatus:         w.PathStatus,
		OnNavigableSurface: true,
		TraversingLink:     w.TraversingLink,
		SurfaceTag:         w.SurfaceTag,
		SurfaceNormal:      core.Vec3(w.SurfaceNormal),
	}
	if w.OnNavigableSurface != nil {
		tel.OnNavigableSurface = *w.OnNavigableSurface
	}
	return tel, nil
}

// EncodeTelemetry is the inverse of ParseTelemetry, used by in-process hosts.
func EncodeTelemetry(tel core.Telemetry) (string, error) {
	b, err := json.Marshal(tel)
	if err != nil {
		return "", fmt.Errorf("error marshalling telemetry: %w", err)
	}
	return string(b), nil
}
