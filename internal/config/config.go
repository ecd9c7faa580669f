package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/timewalk/tourguide/internal/tour"
	"github.com/timewalk/tourguide/pkg/core"
)

// FileName is the config file looked up in the config directory.
const FileName = "tourguide.cfg.json"

// MemoryConfig holds in-memory/JSON journal settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLConfig holds gorm journal settings for sqlite and postgres.
type SQLConfig struct {
	Path          string        `json:"path" mapstructure:"path"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	Host          string        `json:"host" mapstructure:"host"`
	Port          string        `json:"port" mapstructure:"port"`
	Username      string        `json:"username" mapstructure:"username"`
	Password      string        `json:"password" mapstructure:"password"`
	Database      string        `json:"database" mapstructure:"database"`
}

// WebSocketConfig holds live-stream journal settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the journal backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQL       SQLConfig       `json:"sql" mapstructure:"sql"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// InfluxConfig configures the telemetry time-series sink.
type InfluxConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// GraylogConfig configures GELF log shipping.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig configures metrics.
type OTelConfig struct {
	Enabled     bool
	ServiceName string
}

// TraceConfig configures the sampled per-tick trace log.
type TraceConfig struct {
	Enabled bool
	Burst   uint32
	Period  time.Duration
	SampleN uint32
}

// APIConfig configures journal upload.
type APIConfig struct {
	ServerURL string
	APIKey    string
}

// Load sets defaults and reads FileName from configDir.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./tourlogs")
	viper.SetDefault("trace.enabled", false)
	viper.SetDefault("trace.burst", 5)
	viper.SetDefault("trace.period", "10s")
	viper.SetDefault("trace.sampleN", 100)

	viper.SetDefault("catalog.path", "./catalog.yaml")

	viper.SetDefault("tour.pauseAtCameraDuration", "10s")
	viper.SetDefault("tour.resumeDuration", "4s")
	viper.SetDefault("tour.resumeDurationPeeking", "4.5s")
	viper.SetDefault("tour.peekDuration", "10s")
	viper.SetDefault("tour.prePeekDelay", "1.5s")
	viper.SetDefault("tour.lookToCameraDistance", 3.0)
	viper.SetDefault("tour.nearToggleDistance", 4.0)
	viper.SetDefault("tour.farToggleDistance", 8.0)
	viper.SetDefault("tour.minApproachDistance", 20.0)
	viper.SetDefault("tour.retryDelayTicks", 10)
	viper.SetDefault("tour.maxRecoveryAttempts", 8)
	viper.SetDefault("tour.turnRate", 0.4)
	viper.SetDefault("tour.preBlendAngle", 60.0)
	viper.SetDefault("tour.preBlendFrames", 30)
	viper.SetDefault("tour.stationarySpeed", 0.05)
	viper.SetDefault("tour.navSampleTolerance", 5.0)
	viper.SetDefault("tour.agentGroundOffset", 1.0)
	viper.SetDefault("tour.waypointPullBack", 1.5)
	viper.SetDefault("tour.outdoorMinDistance", 15.0)
	viper.SetDefault("tour.flatSlopeDegrees", 5.0)
	viper.SetDefault("tour.speed.indoor.speed", 1.4)
	viper.SetDefault("tour.speed.indoor.acceleration", 4.0)
	viper.SetDefault("tour.speed.outdoor.speed", 3.5)
	viper.SetDefault("tour.speed.outdoor.acceleration", 6.0)
	viper.SetDefault("tour.peekOnArrival", true)
	viper.SetDefault("tour.periodicTimeTravel", false)
	viper.SetDefault("tour.order", "curated")
	viper.SetDefault("tour.seed", 0)
	viper.SetDefault("tour.debugWaypoints", []string{})
	viper.SetDefault("tour.transitionEffect", "fade")
	viper.SetDefault("tour.transitionDuration", "2s")
	viper.SetDefault("tour.peekTransitionDuration", "1s")
	viper.SetDefault("tour.sampleEveryTicks", 20)
	viper.SetDefault("tour.commandQueueLimit", 16)

	viper.SetDefault("terrain.outdoorKeywords", []string{"terrain", "grass", "parking", "sidewalk"})

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./journals")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sql.path", "")
	viper.SetDefault("storage.sql.flushInterval", "2s")
	viper.SetDefault("storage.sql.host", "localhost")
	viper.SetDefault("storage.sql.port", "5432")
	viper.SetDefault("storage.sql.username", "postgres")
	viper.SetDefault("storage.sql.password", "postgres")
	viper.SetDefault("storage.sql.database", "tourguide")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/tour/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "tourguide")
	viper.SetDefault("influx.bucket", "tour_telemetry")
	viper.SetDefault("influx.backupPath", "./tourlogs/influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "tourguide")

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetTourParams builds the tour tunables from config.
func GetTourParams() (tour.Params, error) {
	order, err := tour.ParseOrder(viper.GetString("tour.order"))
	if err != nil {
		return tour.Params{}, err
	}

	p := tour.Params{
		PauseAtCameraDuration:  viper.GetDuration("tour.pauseAtCameraDuration"),
		ResumeDuration:         viper.GetDuration("tour.resumeDuration"),
		ResumeDurationPeeking:  viper.GetDuration("tour.resumeDurationPeeking"),
		PeekDuration:           viper.GetDuration("tour.peekDuration"),
		PrePeekDelay:           viper.GetDuration("tour.prePeekDelay"),
		LookToCameraDistance:   viper.GetFloat64("tour.lookToCameraDistance"),
		NearToggleDistance:     viper.GetFloat64("tour.nearToggleDistance"),
		FarToggleDistance:      viper.GetFloat64("tour.farToggleDistance"),
		MinApproachDistance:    viper.GetFloat64("tour.minApproachDistance"),
		RetryDelayTicks:        viper.GetInt("tour.retryDelayTicks"),
		MaxRecoveryAttempts:    viper.GetInt("tour.maxRecoveryAttempts"),
		TurnRate:               viper.GetFloat64("tour.turnRate"),
		PreBlendAngle:          viper.GetFloat64("tour.preBlendAngle"),
		PreBlendFrames:         viper.GetInt("tour.preBlendFrames"),
		StationarySpeed:        viper.GetFloat64("tour.stationarySpeed"),
		NavSampleTolerance:     viper.GetFloat64("tour.navSampleTolerance"),
		AgentGroundOffset:      viper.GetFloat64("tour.agentGroundOffset"),
		WaypointPullBack:       viper.GetFloat64("tour.waypointPullBack"),
		OutdoorMinDistance:     viper.GetFloat64("tour.outdoorMinDistance"),
		FlatSlopeDegrees:       viper.GetFloat64("tour.flatSlopeDegrees"),
		PeekOnArrival:          viper.GetBool("tour.peekOnArrival"),
		PeriodicTimeTravel:     viper.GetBool("tour.periodicTimeTravel"),
		Order:                  order,
		Seed:                   viper.GetInt64("tour.seed"),
		DebugWaypoints:         viper.GetStringSlice("tour.debugWaypoints"),
		TransitionEffect:       viper.GetString("tour.transitionEffect"),
		TransitionDuration:     viper.GetDuration("tour.transitionDuration"),
		PeekTransitionDuration: viper.GetDuration("tour.peekTransitionDuration"),
		SampleEveryTicks:       viper.GetInt("tour.sampleEveryTicks"),
		CommandQueueLimit:      viper.GetInt("tour.commandQueueLimit"),
		Indoor: core.SpeedProfile{
			Name:         "indoor",
			Speed:        viper.GetFloat64("tour.speed.indoor.speed"),
			Acceleration: viper.GetFloat64("tour.speed.indoor.acceleration"),
		},
		Outdoor: core.SpeedProfile{
			Name:         "outdoor",
			Speed:        viper.GetFloat64("tour.speed.outdoor.speed"),
			Acceleration: viper.GetFloat64("tour.speed.outdoor.acceleration"),
		},
	}
	if err := p.Validate(); err != nil {
		return tour.Params{}, fmt.Errorf("invalid tour config: %w", err)
	}
	return p, nil
}

// GetOutdoorKeywords returns the terrain classifier keywords.
func GetOutdoorKeywords() []string {
	return viper.GetStringSlice("terrain.outdoorKeywords")
}

// GetStorageConfig returns the journal backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQL: SQLConfig{
			Path:          viper.GetString("storage.sql.path"),
			FlushInterval: viper.GetDuration("storage.sql.flushInterval"),
			Host:          viper.GetString("storage.sql.host"),
			Port:          viper.GetString("storage.sql.port"),
			Username:      viper.GetString("storage.sql.username"),
			Password:      viper.GetString("storage.sql.password"),
			Database:      viper.GetString("storage.sql.database"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetInfluxConfig returns the telemetry sink configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		URL:        viper.GetString("influx.url"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the GELF sink configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the metrics configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:     viper.GetBool("otel.enabled"),
		ServiceName: viper.GetString("otel.serviceName"),
	}
}

// GetTraceConfig returns the trace sampling configuration.
func GetTraceConfig() TraceConfig {
	return TraceConfig{
		Enabled: viper.GetBool("trace.enabled"),
		Burst:   viper.GetUint32("trace.burst"),
		Period:  viper.GetDuration("trace.period"),
		SampleN: viper.GetUint32("trace.sampleN"),
	}
}

// GetAPIConfig returns the upload configuration.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}
