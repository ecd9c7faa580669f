package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timewalk/tourguide/pkg/core"
)

func loadMall(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load(filepath.Join("testdata", "mall.yaml"))
	require.NoError(t, err)
	return c
}

func TestLoad(t *testing.T) {
	c := loadMall(t)

	assert.Equal(t, []core.SceneID{"mall-1960", "mall-1990"}, c.Ring())
	assert.InDelta(t, 41.8781, c.Origin().Latitude, 1e-9)
	assert.Equal(t, []string{"parking", "sidewalk", "grass"}, c.OutdoorKeywords())

	era, ok := c.Era("mall-1990")
	require.True(t, ok)
	assert.Equal(t, "Renovation", era.Title)
	assert.Len(t, era.Cameras, 4)
	assert.Equal(t, core.Vec3{X: 31.5, Y: 1.6, Z: 5}, era.Cameras[1].Position)
	require.Len(t, era.ZonesOf(ZoneObstacle), 1)
	assert.Equal(t, "kiosk", era.ZonesOf(ZoneObstacle)[0].Name)
	assert.True(t, era.ZonesOf(ZoneOutdoor)[0].Contains(core.Vec3{X: 90}))
	assert.Equal(t, "parking", era.ZonesOf(ZoneOutdoor)[0].Surface)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestListWaypoints(t *testing.T) {
	c := loadMall(t)

	cams, err := c.ListWaypoints("mall-1960")
	require.NoError(t, err)
	require.Len(t, cams, 4)
	assert.Equal(t, "entrance", cams[0].Name)

	cams[0].Name = "mutated"
	again, _ := c.ListWaypoints("mall-1960")
	assert.Equal(t, "entrance", again[0].Name)

	_, err = c.ListWaypoints("mall-2020")
	assert.ErrorIs(t, err, ErrUnknownEra)
}

func TestMetadata(t *testing.T) {
	c := loadMall(t)

	m, ok := c.Metadata("mall-1960", "entrance")
	assert.True(t, ok)
	assert.True(t, m.Fallback)

	m, ok = c.Metadata("mall-1960", "fountain")
	assert.True(t, ok)
	assert.True(t, m.PeekEnabled)

	m, ok = c.Metadata("mall-1960", "diner")
	assert.False(t, ok)
	assert.Equal(t, core.WaypointMeta{}, m)

	_, ok = c.Metadata("mall-2020", "entrance")
	assert.False(t, ok)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "eras: ["},
		{"no eras", "origin: {longitude: 1, latitude: 2}"},
		{"no cameras", "eras: [{id: a}]"},
		{"missing id", "eras: [{cameras: [{name: x}]}]"},
		{"duplicate era", "eras: [{id: a, cameras: [{name: x}]}, {id: a, cameras: [{name: x}]}]"},
		{"duplicate camera", "eras: [{id: a, cameras: [{name: x}, {name: x}]}]"},
		{"unnamed camera", "eras: [{id: a, cameras: [{position: {x: 1}}]}]"},
		{"bad zone kind", "eras: [{id: a, cameras: [{name: x}], zones: [{name: z, kind: lava, wkt: 'POLYGON((0 0, 1 0, 1 1, 0 0))'}]}]"},
		{"bad wkt", "eras: [{id: a, cameras: [{name: x}], zones: [{name: z, kind: walkable, wkt: 'POINT(1 1)'}]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestTerrain(t *testing.T) {
	terrain := NewTerrain("Parking", " grass ", "")

	tests := []struct {
		tag  string
		want bool
	}{
		{"parking", true},
		{"PARKING_LOT", true},
		{"front-grass", true},
		{"tile", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, terrain.IsOutdoor(tt.tag))
		})
	}
}
