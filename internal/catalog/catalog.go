// Package catalog loads the curated tour catalog: the era ring, each era's
// photo cameras and waypoint metadata, and the ground zones the headless
// simulator walks on.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/timewalk/tourguide/internal/geo"
	"github.com/timewalk/tourguide/pkg/core"
)

// ErrUnknownEra is returned for scenes not listed in the catalog.
var ErrUnknownEra = errors.New("unknown era")

// ZoneKind classifies a catalog zone.
type ZoneKind string

const (
	ZoneWalkable ZoneKind = "walkable"
	ZoneObstacle ZoneKind = "obstacle"
	ZoneOutdoor  ZoneKind = "outdoor"
)

// ZoneSpec is a zone as written in the catalog file.
type ZoneSpec struct {
	Name    string   `yaml:"name"`
	Kind    ZoneKind `yaml:"kind"`
	WKT     string   `yaml:"wkt"`
	Surface string   `yaml:"surface"`
}

// EraSpec is one era as written in the catalog file.
type EraSpec struct {
	ID       core.SceneID                 `yaml:"id"`
	Title    string                       `yaml:"title"`
	Spawn    core.Vec3                    `yaml:"spawn"`
	Cameras  []core.PhotoCamera           `yaml:"cameras"`
	Metadata map[string]core.WaypointMeta `yaml:"metadata"`
	Zones    []ZoneSpec                   `yaml:"zones"`
}

// File is the on-disk catalog layout.
type File struct {
	Origin          core.GeoOrigin `yaml:"origin"`
	OutdoorKeywords []string       `yaml:"outdoorKeywords"`
	Eras            []EraSpec      `yaml:"eras"`
}

// Zone is a parsed catalog zone.
type Zone struct {
	geo.Zone
	Kind    ZoneKind
	Surface string
}

// Era is a validated era with parsed zones.
type Era struct {
	ID       core.SceneID
	Title    string
	Spawn    core.Vec3
	Cameras  []core.PhotoCamera
	Metadata map[string]core.WaypointMeta
	Zones    []Zone
}

// ZonesOf returns the era's zones of the given kind in file order.
func (e *Era) ZonesOf(kind ZoneKind) []Zone {
	var out []Zone
	for _, z := range e.Zones {
		if z.Kind == kind {
			out = append(out, z)
		}
	}
	return out
}

// Catalog is the loaded, validated catalog. It is read-only after Load.
type Catalog struct {
	origin   core.GeoOrigin
	keywords []string
	ring     []core.SceneID
	eras     map[core.SceneID]*Era
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	return New(f)
}

// New validates a decoded catalog file.
func New(f File) (*Catalog, error) {
	if len(f.Eras) == 0 {
		return nil, errors.New("catalog lists no eras")
	}

	c := &Catalog{
		origin:   f.Origin,
		keywords: f.OutdoorKeywords,
		eras:     make(map[core.SceneID]*Era, len(f.Eras)),
	}
	var errs []error
	for _, spec := range f.Eras {
		era, err := buildEra(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.eras[era.ID]; dup {
			errs = append(errs, fmt.Errorf("era %s listed twice", era.ID))
			continue
		}
		c.eras[era.ID] = era
		c.ring = append(c.ring, era.ID)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

func buildEra(spec EraSpec) (*Era, error) {
	if spec.ID == "" {
		return nil, errors.New("era without id")
	}
	if len(spec.Cameras) == 0 {
		return nil, fmt.Errorf("era %s has no photo cameras", spec.ID)
	}

	era := &Era{
		ID:       spec.ID,
		Title:    spec.Title,
		Spawn:    spec.Spawn,
		Cameras:  spec.Cameras,
		Metadata: spec.Metadata,
	}
	seen := make(map[string]bool, len(spec.Cameras))
	for _, cam := range spec.Cameras {
		if cam.Name == "" {
			return nil, fmt.Errorf("era %s has a camera without a name", spec.ID)
		}
		if seen[cam.Name] {
			return nil, fmt.Errorf("era %s: camera %q listed twice", spec.ID, cam.Name)
		}
		seen[cam.Name] = true
	}

	for _, zs := range spec.Zones {
		switch zs.Kind {
		case ZoneWalkable, ZoneObstacle, ZoneOutdoor:
		default:
			return nil, fmt.Errorf("era %s: zone %q has unknown kind %q", spec.ID, zs.Name, zs.Kind)
		}
		z, err := geo.ParseZone(zs.Name, zs.WKT)
		if err != nil {
			return nil, fmt.Errorf("era %s: %w", spec.ID, err)
		}
		era.Zones = append(era.Zones, Zone{Zone: z, Kind: zs.Kind, Surface: zs.Surface})
	}
	return era, nil
}

// Origin is the real-world anchor of scene coordinates.
func (c *Catalog) Origin() core.GeoOrigin { return c.origin }

// Ring returns the era order used for time travel.
func (c *Catalog) Ring() []core.SceneID {
	return append([]core.SceneID(nil), c.ring...)
}

// OutdoorKeywords returns the catalog's terrain keywords, if any.
func (c *Catalog) OutdoorKeywords() []string { return c.keywords }

// Era looks up an era by id.
func (c *Catalog) Era(id core.SceneID) (*Era, bool) {
	e, ok := c.eras[id]
	return e, ok
}

// ListWaypoints returns the era's photo cameras in curated order.
func (c *Catalog) ListWaypoints(scene core.SceneID) ([]core.PhotoCamera, error) {
	e, ok := c.eras[scene]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEra, scene)
	}
	return append([]core.PhotoCamera(nil), e.Cameras...), nil
}

// Metadata returns curated behavior for a waypoint. Unknown scenes and names
// yield the zero value.
func (c *Catalog) Metadata(scene core.SceneID, name string) (core.WaypointMeta, bool) {
	e, ok := c.eras[scene]
	if !ok {
		return core.WaypointMeta{}, false
	}
	m, ok := e.Metadata[name]
	return m, ok
}
