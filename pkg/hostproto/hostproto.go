// Package hostproto implements the engine collaborators over a
// request/response transport. Every call is a named host function with a
// JSON payload; the host answers with a JSON result.
//
// Calls never fail the tour: a transport or decode error is logged and the
// collaborator returns the safest answer (an invalid path, no override).
package hostproto

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/timewalk/tourguide/pkg/core"
	"github.com/timewalk/tourguide/pkg/engine"
)

// Host function names.
const (
	FnFindPath          = "nav.findPath"
	FnNearestNavigable  = "nav.nearestNavigable"
	FnSetDestination    = "nav.setDestination"
	FnStop              = "nav.stop"
	FnResume            = "nav.resume"
	FnWarp              = "nav.warp"
	FnSetSpeedProfile   = "nav.setSpeedProfile"
	FnSetFacing         = "nav.setFacing"
	FnRequestTransition = "era.requestTransition"
	FnSetOverlays       = "vis.setOverlays"
	FnSetPedestrians    = "vis.setPedestrians"
	FnOverride          = "input.override"
	FnListWaypoints     = "scene.listWaypoints"
	FnMetadata          = "scene.metadata"
	FnIsOutdoor         = "terrain.isOutdoor"
)

const defaultTimeout = 250 * time.Millisecond

// Transport carries one call to the host.
type Transport interface {
	Call(ctx context.Context, fn string, payload []byte) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, fn string, payload []byte) ([]byte, error)

func (f TransportFunc) Call(ctx context.Context, fn string, payload []byte) ([]byte, error) {
	return f(ctx, fn, payload)
}

// Client implements every engine collaborator over a Transport.
type Client struct {
	transport Transport
	logger    *slog.Logger
	timeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a client over t.
func New(t Transport, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		transport: t,
		logger:    logger.With("component", "hostproto"),
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns a collaborator bundle served by the host. Non-nil waypoints
// or terrain replace the remote implementations, e.g. with a local catalog.
func (c *Client) Host(waypoints engine.WaypointSource, terrain engine.TerrainClassifier) engine.Host {
	h := engine.Host{
		Navigator:    c,
		Transitioner: c,
		Visibility:   c,
		Override:     c,
		Waypoints:    c,
		Terrain:      c,
	}
	if waypoints != nil {
		h.Waypoints = waypoints
	}
	if terrain != nil {
		h.Terrain = terrain
	}
	return h
}

func (c *Client) call(fn string, req, resp any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", fn, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	out, err := c.transport.Call(ctx, fn, payload)
	if err != nil {
		return fmt.Errorf("calling %s: %w", fn, err)
	}
	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(out, resp); err != nil {
		return fmt.Errorf("decoding %s response: %w", fn, err)
	}
	return nil
}

// notify is a call whose result is ignored.
func (c *Client) notify(fn string, req any) {
	if err := c.call(fn, req, nil); err != nil {
		c.logger.Warn("host call failed", "fn", fn, "error", err)
	}
}

type pathRequest struct {
	From core.Vec3 `json:"from"`
	To   core.Vec3 `json:"to"`
}

type nearestRequest struct {
	Point     core.Vec3 `json:"point"`
	Tolerance float64   `json:"tolerance"`
}

type nearestResponse struct {
	Point core.Vec3 `json:"point"`
	Found bool      `json:"found"`
}

type facingRequest struct {
	Character core.Vec3 `json:"character"`
	Camera    core.Vec3 `json:"camera"`
}

type visibleRequest struct {
	Visible bool `json:"visible"`
}

type sceneRequest struct {
	Scene core.SceneID `json:"scene"`
	Name  string       `json:"name,omitempty"`
}

type metadataResponse struct {
	Meta  core.WaypointMeta `json:"meta"`
	Found bool              `json:"found"`
}

type surfaceRequest struct {
	Tag string `json:"tag"`
}

// FindPath asks the host's navigation mesh. Failures report an invalid path.
func (c *Client) FindPath(from, to core.Vec3) core.Path {
	var p core.Path
	if err := c.call(FnFindPath, pathRequest{From: from, To: to}, &p); err != nil {
		c.logger.Warn("path query failed", "error", err)
		return core.Path{Status: core.PathInvalid}
	}
	return p
}

func (c *Client) NearestNavigablePoint(p core.Vec3, tolerance float64) (core.Vec3, bool) {
	var resp nearestResponse
	if err := c.call(FnNearestNavigable, nearestRequest{Point: p, Tolerance: tolerance}, &resp); err != nil {
		c.logger.Warn("nearest point query failed", "error", err)
		return core.Vec3{}, false
	}
	return resp.Point, resp.Found
}

func (c *Client) SetDestination(path core.Path)       { c.notify(FnSetDestination, path) }
func (c *Client) Stop()                               { c.notify(FnStop, struct{}{}) }
func (c *Client) Resume()                             { c.notify(FnResume, struct{}{}) }
func (c *Client) Warp(p core.Vec3)                    { c.notify(FnWarp, p) }
func (c *Client) SetSpeedProfile(p core.SpeedProfile) { c.notify(FnSetSpeedProfile, p) }

func (c *Client) SetFacing(character, camera core.Vec3) {
	c.notify(FnSetFacing, facingRequest{Character: character, Camera: camera})
}

func (c *Client) RequestTransition(req core.TransitionRequest) {
	c.notify(FnRequestTransition, req)
}

func (c *Client) SetOverlaysVisible(visible bool) {
	c.notify(FnSetOverlays, visibleRequest{Visible: visible})
}

func (c *Client) SetPedestriansVisible(visible bool) {
	c.notify(FnSetPedestrians, visibleRequest{Visible: visible})
}

// IsManualOverrideRequested reports false when the host can't be asked.
func (c *Client) IsManualOverrideRequested() bool {
	var requested bool
	if err := c.call(FnOverride, struct{}{}, &requested); err != nil {
		c.logger.Warn("override query failed", "error", err)
		return false
	}
	return requested
}

// ListWaypoints is the one call whose error reaches the caller: a scene
// without cameras can't be toured.
func (c *Client) ListWaypoints(scene core.SceneID) ([]core.PhotoCamera, error) {
	var cams []core.PhotoCamera
	if err := c.call(FnListWaypoints, sceneRequest{Scene: scene}, &cams); err != nil {
		return nil, err
	}
	return cams, nil
}

func (c *Client) Metadata(scene core.SceneID, name string) (core.WaypointMeta, bool) {
	var resp metadataResponse
	if err := c.call(FnMetadata, sceneRequest{Scene: scene, Name: name}, &resp); err != nil {
		c.logger.Warn("metadata query failed", "scene", scene, "name", name, "error", err)
		return core.WaypointMeta{}, false
	}
	if !resp.Found {
		return core.WaypointMeta{}, false
	}
	return resp.Meta, true
}

func (c *Client) IsOutdoor(tag string) bool {
	var outdoor bool
	if err := c.call(FnIsOutdoor, surfaceRequest{Tag: tag}, &outdoor); err != nil {
		c.logger.Warn("terrain query failed", "tag", tag, "error", err)
		return false
	}
	return outdoor
}

var (
	_ engine.Navigator         = (*Client)(nil)
	_ engine.Transitioner      = (*Client)(nil)
	_ engine.Visibility        = (*Client)(nil)
	_ engine.OverrideDetector  = (*Client)(nil)
	_ engine.WaypointSource    = (*Client)(nil)
	_ engine.TerrainClassifier = (*Client)(nil)
)
