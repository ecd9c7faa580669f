// Package geo holds the 2D ground-plane geometry of a scene (walkable areas,
// obstacles, outdoor zones) and geo-referencing of scene-local positions.
//
// Scene space is Y-up, so the ground plane is X/Z. Zones map scene X to WKT X
// and scene Z to WKT Y.
package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/timewalk/tourguide/pkg/core"
)

// ErrInvalidZone is returned when a zone's WKT is not a polygonal area.
var ErrInvalidZone = errors.New("invalid zone geometry")

// Zone is a named polygonal area of the ground plane.
type Zone struct {
	Name string
	g    geom.Geometry
}

// ParseZone builds a zone from a POLYGON or MULTIPOLYGON WKT string.
func ParseZone(name, wkt string) (Zone, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return Zone{}, fmt.Errorf("zone %q: %w", name, err)
	}
	switch g.Type() {
	case geom.TypePolygon, geom.TypeMultiPolygon:
	default:
		return Zone{}, fmt.Errorf("zone %q is a %s: %w", name, g.Type(), ErrInvalidZone)
	}
	if g.IsEmpty() {
		return Zone{}, fmt.Errorf("zone %q is empty: %w", name, ErrInvalidZone)
	}
	return Zone{Name: name, g: g}, nil
}

// Contains reports whether the ground projection of p lies inside the zone
// (boundary included).
func (z Zone) Contains(p core.Vec3) bool {
	return geom.Intersects(z.g, groundPoint(p).AsGeometry())
}

// Crosses reports whether the ground segment a→b touches the zone.
func (z Zone) Crosses(a, b core.Vec3) bool {
	if core.HorizontalDistance(a, b) == 0 {
		return z.Contains(a)
	}
	seg := geom.NewLineString(geom.NewSequence([]float64{a.X, a.Z, b.X, b.Z}, geom.DimXY))
	return geom.Intersects(z.g, seg.AsGeometry())
}

// WKT returns the zone geometry as WKT.
func (z Zone) WKT() string {
	return z.g.AsText()
}

func groundPoint(p core.Vec3) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Z},
		Type: geom.DimXY,
	})
}

// LocalToLonLat converts a scene-local position (meters, +X east, +Z north)
// to WGS84 longitude/latitude around origin.
//
// The offset is applied in web mercator, scaled by the mercator stretch at the
// origin latitude, which is accurate to well under a meter across a city block.
func LocalToLonLat(origin core.GeoOrigin, p core.Vec3) (lon, lat float64) {
	epsg := wgs84.EPSG()
	toMercator := epsg.Transform(4326, 3857)
	fromMercator := epsg.Transform(3857, 4326)

	x0, y0, _ := toMercator(origin.Longitude, origin.Latitude, 0)
	k := 1 / math.Cos(origin.Latitude*math.Pi/180)
	lon, lat, _ = fromMercator(x0+p.X*k, y0+p.Z*k, 0)
	return lon, lat
}

// NearestWhere searches rings around p, out to tolerance, for the closest
// ground point accepted by ok. The search resolution is a quarter meter.
func NearestWhere(p core.Vec3, tolerance float64, ok func(core.Vec3) bool) (core.Vec3, bool) {
	if ok(p) {
		return p, true
	}
	const (
		step    = 0.25
		spokes  = 32
		fullArc = 2 * math.Pi
	)
	for r := step; r <= tolerance+1e-9; r += step {
		for i := 0; i < spokes; i++ {
			a := fullArc * float64(i) / spokes
			q := core.Vec3{X: p.X + r*math.Cos(a), Y: p.Y, Z: p.Z + r*math.Sin(a)}
			if ok(q) {
				return q, true
			}
		}
	}
	return core.Vec3{}, false
}
