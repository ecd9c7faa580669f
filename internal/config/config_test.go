package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timewalk/tourguide/internal/tour"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"tour": { "pauseAtCameraDuration": "12s", "minApproachDistance": 25 }
	}`)
	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	p, err := GetTourParams()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, p.PauseAtCameraDuration)
	assert.Equal(t, 25.0, p.MinApproachDistance)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetTourParams_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	p, err := GetTourParams()
	require.NoError(t, err)

	def := tour.DefaultParams()
	assert.Equal(t, def.PauseAtCameraDuration, p.PauseAtCameraDuration)
	assert.Equal(t, def.ResumeDuration, p.ResumeDuration)
	assert.Equal(t, def.ResumeDurationPeeking, p.ResumeDurationPeeking)
	assert.Equal(t, def.NearToggleDistance, p.NearToggleDistance)
	assert.Equal(t, def.FarToggleDistance, p.FarToggleDistance)
	assert.Equal(t, def.MinApproachDistance, p.MinApproachDistance)
	assert.Equal(t, def.RetryDelayTicks, p.RetryDelayTicks)
	assert.Equal(t, def.TurnRate, p.TurnRate)
	assert.Equal(t, def.PreBlendAngle, p.PreBlendAngle)
	assert.Equal(t, def.PreBlendFrames, p.PreBlendFrames)
	assert.Equal(t, def.Indoor, p.Indoor)
	assert.Equal(t, def.Outdoor, p.Outdoor)
	assert.Equal(t, def.CommandQueueLimit, p.CommandQueueLimit)
	assert.Equal(t, tour.OrderCurated, p.Order)
	assert.Empty(t, p.DebugWaypoints)
}

func TestGetTourParams_RejectsUnknownOrder(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"tour": {"order": "alphabetical"}}`)))

	_, err := GetTourParams()
	require.Error(t, err)
}

func TestGetTourParams_RejectsInvalidBands(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"tour": {"nearToggleDistance": 9, "farToggleDistance": 8}}`)))

	_, err := GetTourParams()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tour config")
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./journals", cfg.Memory.OutputDir)
	assert.True(t, cfg.Memory.CompressOutput)
	assert.Equal(t, 2*time.Second, cfg.SQL.FlushInterval)
	assert.Equal(t, "tourguide", cfg.SQL.Database)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"sql": { "path": "/tmp/journal.db", "flushInterval": "500ms" }
		}
	}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "sqlite", cfg.Type)
	assert.Equal(t, "/tmp/journal.db", cfg.SQL.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.SQL.FlushInterval)
}

func TestSinkConfigs_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.False(t, GetInfluxConfig().Enabled)
	assert.Equal(t, "tour_telemetry", GetInfluxConfig().Bucket)
	assert.False(t, GetGraylogConfig().Enabled)
	assert.Equal(t, "localhost:12201", GetGraylogConfig().Address)
	assert.Equal(t, "tourguide", GetOTelConfig().ServiceName)
	assert.Equal(t, []string{"terrain", "grass", "parking", "sidewalk"}, GetOutdoorKeywords())
	assert.Empty(t, GetAPIConfig().ServerURL)
}

func TestGetTraceConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	tc := GetTraceConfig()
	assert.False(t, tc.Enabled)
	assert.Equal(t, uint32(5), tc.Burst)
	assert.Equal(t, 10*time.Second, tc.Period)
	assert.Equal(t, uint32(100), tc.SampleN)
}
