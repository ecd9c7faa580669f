// Package monitor periodically snapshots tour status and metrics into a
// status file and the log.
package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/timewalk/tourguide/internal/otel"
	"github.com/timewalk/tourguide/internal/tour"
)

const defaultInterval = time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger *slog.Logger
	// Status must be safe to call from the monitor goroutine.
	Status  func() tour.Status
	Metrics *otel.Provider
	// StatusPath is rewritten on every interval. Empty disables the file.
	StatusPath string
	Interval   time.Duration
}

// Report is what the status file holds.
type Report struct {
	Time    time.Time          `json:"time"`
	Tour    tour.Status        `json:"tour"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	logger    *slog.Logger
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		deps:   deps,
		logger: logger.With("component", "monitor"),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus builds a report from the current tour status and metrics.
func (s *Service) GetStatus(ctx context.Context) Report {
	r := Report{Time: time.Now()}
	if s.deps.Status != nil {
		r.Tour = s.deps.Status()
	}
	if s.deps.Metrics == nil || !s.deps.Metrics.Enabled() {
		return r
	}

	ms, err := s.deps.Metrics.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("metric callbacks failed", "error", err)
	}
	r.Metrics = make(map[string]float64, len(ms))
	for _, m := range ms {
		r.Metrics[seriesName(m)] = m.Value
	}
	return r
}

func seriesName(m otel.Measurement) string {
	attrs := m.Attributes
	if attrs.Len() == 0 {
		return m.Name
	}
	return m.Name + "{" + attrs.Encoded(attribute.DefaultEncoder()) + "}"
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.stopChan != nil {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.logger.Debug("starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.report()
			}
		}
	}()

	return nil
}

func (s *Service) report() {
	r := s.GetStatus(context.Background())
	if r.Tour.State != tour.StateInactive {
		s.logger.Info("tour status",
			"state", r.Tour.State.String(),
			"scene", r.Tour.Scene,
			"waypoint", r.Tour.WaypointName,
			"index", r.Tour.WaypointIndex,
			"tick", r.Tour.Tick,
			"pending", r.Tour.PendingActions)
	}
	if s.deps.StatusPath == "" {
		return
	}
	if err := writeReport(s.deps.StatusPath, r); err != nil {
		s.logger.Error("error writing status file", "path", s.deps.StatusPath, "error", err)
	}
}

// writeReport replaces the file via rename so readers never see a partial
// report.
func writeReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopChan == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.stopChan = nil
	done := s.done
	s.mu.Unlock()
	<-done
}
