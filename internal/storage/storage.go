// internal/storage/storage.go
package storage

import "github.com/timewalk/tourguide/pkg/core"

// Backend is the interface all journal storage implementations must satisfy.
// It is a superset of tour.Recorder.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s core.TourSession) error
	EndSession(s core.TourSession) error

	// Journal recording
	RecordEvent(e core.TourEvent) error
	RecordSample(s core.TelemetrySample) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload after a session ends.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
