// pkg/core/navigation.go
package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PathStatus is the navigation oracle's verdict on a path query.
type PathStatus int

const (
	PathComplete PathStatus = iota
	PathPartial
	PathInvalid
)

func (s PathStatus) String() string {
	switch s {
	case PathComplete:
		return "complete"
	case PathPartial:
		return "partial"
	case PathInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ParsePathStatus accepts the names returned by String.
func ParsePathStatus(s string) (PathStatus, error) {
	switch strings.ToLower(s) {
	case "complete":
		return PathComplete, nil
	case "partial":
		return PathPartial, nil
	case "invalid":
		return PathInvalid, nil
	}
	return PathInvalid, fmt.Errorf("unknown path status %q", s)
}

// MarshalJSON encodes the status by name.
func (s PathStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the status name or its number.
func (s *PathStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		v, err := ParsePathStatus(name)
		if err != nil {
			return err
		}
		*s = v
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("path status must be a name or number: %w", err)
	}
	if n < int(PathComplete) || n > int(PathInvalid) {
		return fmt.Errorf("path status %d out of range", n)
	}
	*s = PathStatus(n)
	return nil
}

// Path is a path query result.
type Path struct {
	Status  PathStatus `json:"status"`
	Corners []Vec3     `json:"corners"`
}

// End returns the last corner of the path, if any.
func (p Path) End() (Vec3, bool) {
	if len(p.Corners) == 0 {
		return Vec3{}, false
	}
	return p.Corners[len(p.Corners)-1], true
}

// SpeedProfile is the agent speed/acceleration pair pushed to the navigator.
type SpeedProfile struct {
	Name         string  `json:"name"`
	Speed        float64 `json:"speed"`
	Acceleration float64 `json:"acceleration"`
}

// Telemetry is the agent state reported by the host each tick.
type Telemetry struct {
	Position           Vec3       `json:"position"`
	Velocity           Vec3       `json:"velocity"`
	RemainingDistance  float64    `json:"remainingDistance"`
	HasPath            bool       `json:"hasPath"`
	PathStatus         PathStatus `json:"pathStatus"`
	OnNavigableSurface bool       `json:"onNavigableSurface"`
	TraversingLink     bool       `json:"traversingLink"`
	SurfaceTag         string     `json:"surfaceTag"`
	SurfaceNormal      Vec3       `json:"surfaceNormal"`
}

// TransitionRequest asks the host to switch the visitor between eras.
type TransitionRequest struct {
	From     SceneID `json:"from"`
	To       SceneID `json:"to"`
	Position Vec3    `json:"position"`
	Facing   Vec3    `json:"facing"`
	Effect   string  `json:"effect"`
	Duration float64 `json:"duration"`
}
