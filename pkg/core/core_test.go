package core

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathStatus_JSON(t *testing.T) {
	out, err := json.Marshal(Path{Status: PathPartial, Corners: []Vec3{{X: 1}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"partial","corners":[{"X":1,"Y":0,"Z":0}]}`, string(out))

	tests := []struct {
		in      string
		want    PathStatus
		wantErr bool
	}{
		{`"complete"`, PathComplete, false},
		{`"Invalid"`, PathInvalid, false},
		{`1`, PathPartial, false},
		{`2`, PathInvalid, false},
		{`3`, 0, true},
		{`-1`, 0, true},
		{`"sideways"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s PathStatus
			err := json.Unmarshal([]byte(tt.in), &s)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestPathStatus_String(t *testing.T) {
	assert.Equal(t, "complete", PathComplete.String())
	assert.Equal(t, "unknown", PathStatus(7).String())
}

func TestPath_End(t *testing.T) {
	_, ok := Path{}.End()
	assert.False(t, ok)

	end, ok := Path{Corners: []Vec3{{X: 1}, {X: 4, Z: 2}}}.End()
	assert.True(t, ok)
	assert.Equal(t, Vec3{X: 4, Z: 2}, end)
}

func TestVectorHelpers(t *testing.T) {
	assert.Equal(t, Vec3{X: 1, Z: 3}, Flatten(Vec3{X: 1, Y: 2, Z: 3}))
	assert.True(t, IsZero(Vec3{X: 1e-10}, 1e-9))
	assert.False(t, IsZero(Vec3{X: 1e-3}, 1e-9))
	assert.Equal(t, 5.0, HorizontalDistance(Vec3{Y: 10}, Vec3{X: 3, Z: 4}))

	assert.Equal(t, 0.0, SlopeDegrees(Vec3{}))
	assert.InDelta(t, 0, SlopeDegrees(Up), 1e-9)
	assert.InDelta(t, 45, SlopeDegrees(Vec3{X: 1, Y: 1}), 1e-9)
	assert.InDelta(t, 90, SlopeDegrees(Vec3{Z: 1}), 1e-9)
}

func TestTourSession_Duration(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Zero(t, TourSession{StartTime: start}.Duration())
	assert.Zero(t, TourSession{StartTime: start, EndTime: start.Add(-time.Second)}.Duration())
	assert.Equal(t, 90*time.Second, TourSession{StartTime: start, EndTime: start.Add(90 * time.Second)}.Duration())
}

func TestSlopeDegrees_Normalizes(t *testing.T) {
	assert.InDelta(t, SlopeDegrees(Vec3{X: 1, Y: 1}), SlopeDegrees(Vec3{X: 10, Y: 10}), 1e-9)
	assert.False(t, math.IsNaN(SlopeDegrees(Vec3{Y: -1})))
}
