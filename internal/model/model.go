package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SchemaVersion is stored in ExtensionInfo on first migration.
const SchemaVersion = 1

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ExtensionInfo{},
	&TourSession{},
	&TourEvent{},
	&TelemetrySample{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ExtensionInfo records which schema the journal database was created with.
type ExtensionInfo struct {
	gorm.Model
	SchemaVersion int    `json:"schemaVersion"`
	Description   string `json:"description" gorm:"size:255"`
}

func (*ExtensionInfo) TableName() string {
	return "extension_infos"
}

////////////////////////
// JOURNAL MODELS
////////////////////////

// TourSession is one journaled tour run.
type TourSession struct {
	ID        string         `json:"id" gorm:"primarykey;size:36"`
	CreatedAt time.Time      `json:"createdAt"`
	StartTime time.Time      `json:"startTime"`
	EndTime   sql.NullTime   `json:"endTime"`
	Eras      datatypes.JSON `json:"eras"`
	OriginLon float64        `json:"originLon"`
	OriginLat float64        `json:"originLat"`
	Events    int            `json:"events" gorm:"default:0"`  // filled on session end
	Samples   int            `json:"samples" gorm:"default:0"` // filled on session end
}

func (*TourSession) TableName() string {
	return "tour_sessions"
}

// TourEvent is a journal entry of the tour state machine.
type TourEvent struct {
	ID            uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID     string         `json:"sessionId" gorm:"size:36;index:idx_tourevent_session_id"`
	Session       TourSession    `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time          time.Time      `json:"time"`
	Tick          uint64         `json:"tick" gorm:"index:idx_tourevent_tick"`
	SimTime       float64        `json:"simTime"`
	Scene         string         `json:"scene" gorm:"size:64"`
	Kind          string         `json:"kind" gorm:"size:16;index:idx_tourevent_kind"`
	FromState     string         `json:"from" gorm:"size:32"`
	ToState       string         `json:"to" gorm:"size:32"`
	WaypointIndex int            `json:"waypointIndex"`
	WaypointName  string         `json:"waypointName" gorm:"size:128"`
	Detail        datatypes.JSON `json:"detail"`
}

func (*TourEvent) TableName() string {
	return "tour_events"
}

// TelemetrySample is a geo-referenced agent sample.
type TelemetrySample struct {
	ID            uint        `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID     string      `json:"sessionId" gorm:"size:36;index:idx_telemetrysample_session_id"`
	Session       TourSession `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time          time.Time   `json:"time"`
	Tick          uint64      `json:"tick" gorm:"index:idx_telemetrysample_tick"`
	Scene         string      `json:"scene" gorm:"size:64"`
	State         string      `json:"state" gorm:"size:32"`
	Position      geom.Point  `json:"position"` // lon/lat
	Height        float64     `json:"height"`
	Speed         float64     `json:"speed"`
	WaypointIndex int         `json:"waypointIndex"`
	ToNext        float64     `json:"toNext"`
}

func (*TelemetrySample) TableName() string {
	return "telemetry_samples"
}
