// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine. It serves both
// Postgres and SQLite connections.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/timewalk/tourguide/internal/database"
	"github.com/timewalk/tourguide/internal/model"
	"github.com/timewalk/tourguide/internal/model/convert"
	"github.com/timewalk/tourguide/internal/queue"
	"github.com/timewalk/tourguide/pkg/core"
)

const (
	defaultFlushInterval = time.Second
	batchSize            = 500
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB may be nil, in which case records stay queued (used by tests).
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Events  *queue.Queue[model.TourEvent]
	Samples *queue.Queue[model.TelemetrySample]
}

func newQueues() *queues {
	return &queues{
		Events:  queue.New[model.TourEvent](),
		Samples: queue.New[model.TelemetrySample](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	mu      sync.Mutex
	origin  core.GeoOrigin
	events  int
	samples int

	flushMu   sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection (nil in queue-only mode).
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Init migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})
	if b.deps.DB == nil {
		return nil
	}

	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
		}
		if b.done != nil {
			<-b.done
		}
	})
	return nil
}

func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("Final journal flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("Journal flush failed", "error", err)
			}
		}
	}
}

// Flush writes all queued records. It is a no-op in queue-only mode.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	events := b.queues.Events.Drain()
	samples := b.queues.Samples.Drain()
	if len(events) == 0 && len(samples) == 0 {
		return nil
	}

	if len(events) > 0 {
		if err := b.deps.DB.CreateInBatches(&events, batchSize).Error; err != nil {
			return fmt.Errorf("failed to write %d tour events: %w", len(events), err)
		}
	}
	if len(samples) > 0 {
		if err := b.deps.DB.CreateInBatches(&samples, batchSize).Error; err != nil {
			return fmt.Errorf("failed to write %d telemetry samples: %w", len(samples), err)
		}
	}

	b.deps.Logger.Debug("Flushed journal",
		"events", len(events),
		"samples", len(samples),
		"duration", time.Since(start))
	return nil
}

// StartSession inserts the session row synchronously so queued rows can
// reference it.
func (b *Backend) StartSession(s core.TourSession) error {
	b.mu.Lock()
	b.origin = s.Origin
	b.events = 0
	b.samples = 0
	b.mu.Unlock()

	if b.deps.DB == nil {
		return nil
	}
	rec := convert.CoreToSession(s)
	if err := b.deps.DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to insert tour session: %w", err)
	}
	return nil
}

// EndSession flushes pending records and closes the session row.
func (b *Backend) EndSession(s core.TourSession) error {
	if err := b.Flush(); err != nil {
		return err
	}

	b.mu.Lock()
	events, samples := b.events, b.samples
	b.mu.Unlock()

	if b.deps.DB == nil {
		return nil
	}
	rec := convert.CoreToSession(s)
	err := b.deps.DB.Model(&model.TourSession{ID: s.ID}).Updates(map[string]any{
		"end_time": rec.EndTime,
		"events":   events,
		"samples":  samples,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to close tour session: %w", err)
	}
	return nil
}

// RecordEvent converts and queues a tour event.
func (b *Backend) RecordEvent(e core.TourEvent) error {
	b.mu.Lock()
	b.events++
	b.mu.Unlock()

	b.queues.Events.Push(convert.CoreToEvent(e))
	return nil
}

// RecordSample converts and queues a telemetry sample.
func (b *Backend) RecordSample(s core.TelemetrySample) error {
	b.mu.Lock()
	b.samples++
	origin := b.origin
	b.mu.Unlock()

	b.queues.Samples.Push(convert.CoreToSample(s, origin))
	return nil
}

// Pending returns the number of queued events and samples.
func (b *Backend) Pending() (events, samples int) {
	return b.queues.Events.Len(), b.queues.Samples.Len()
}
