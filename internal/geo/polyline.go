package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/timewalk/tourguide/pkg/core"
)

// TrackLineString geo-references a sequence of scene positions into a WGS84
// line string (X = longitude, Y = latitude).
func TrackLineString(origin core.GeoOrigin, positions []core.Vec3) (geom.LineString, error) {
	if len(positions) < 2 {
		return geom.LineString{}, fmt.Errorf("track must have at least 2 points, got %d", len(positions))
	}

	flat := make([]float64, 0, len(positions)*2)
	for _, p := range positions {
		lon, lat := LocalToLonLat(origin, p)
		flat = append(flat, lon, lat)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), nil
}

// TrackLength returns the ground length in meters of a scene-space track.
func TrackLength(positions []core.Vec3) float64 {
	var total float64
	for i := 1; i < len(positions); i++ {
		total += core.HorizontalDistance(positions[i-1], positions[i])
	}
	return total
}
