// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/timewalk/tourguide/internal/config"
	"github.com/timewalk/tourguide/pkg/core"
)

// ErrNoSession is returned when recording outside of a session.
var ErrNoSession = errors.New("no active session")

// Backend keeps the journal of one session in memory and exports it to JSON
// when the session ends.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.TourSession

	events  []core.TourEvent
	samples []core.TelemetrySample

	lastExportPath     string
	lastExportMetadata core.UploadMetadata

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session, dropping any previous one.
func (b *Backend) StartSession(s core.TourSession) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = &s
	b.events = nil
	b.samples = nil
	return nil
}

// EndSession finalizes and exports the session.
func (b *Backend) EndSession(s core.TourSession) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.session.EndTime = s.EndTime
	err := b.exportJSON()
	b.session = nil
	return err
}

// RecordEvent appends a journal event.
func (b *Backend) RecordEvent(e core.TourEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.events = append(b.events, e)
	return nil
}

// RecordSample appends a telemetry sample.
func (b *Backend) RecordSample(s core.TelemetrySample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.samples = append(b.samples, s)
	return nil
}

// Events returns a copy of the recorded events of the current session.
func (b *Backend) Events() []core.TourEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.TourEvent(nil), b.events...)
}

// Samples returns a copy of the recorded samples of the current session.
func (b *Backend) Samples() []core.TelemetrySample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.TelemetrySample(nil), b.samples...)
}

// GetExportedFilePath returns the path of the last exported file.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last exported file.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}
