package tour

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/timewalk/tourguide/internal/tour"

type metrics struct {
	ticks       metric.Int64Counter
	transitions metric.Int64Counter
	advances    metric.Int64Counter
	recoveries  metric.Int64Counter
	visibility  metric.Int64Counter
}

// newMetrics uses the global meter provider (no-op unless one is installed).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		mt  metrics
		err error
	)

	if mt.ticks, err = m.Int64Counter("tour.ticks",
		metric.WithDescription("Simulation ticks processed")); err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	if mt.transitions, err = m.Int64Counter("tour.state.transitions",
		metric.WithDescription("Tour state changes")); err != nil {
		return nil, fmt.Errorf("creating transition counter: %w", err)
	}
	if mt.advances, err = m.Int64Counter("tour.waypoint.advances",
		metric.WithDescription("Waypoint index advances")); err != nil {
		return nil, fmt.Errorf("creating advance counter: %w", err)
	}
	if mt.recoveries, err = m.Int64Counter("tour.path.recoveries",
		metric.WithDescription("Path recovery decisions")); err != nil {
		return nil, fmt.Errorf("creating recovery counter: %w", err)
	}
	if mt.visibility, err = m.Int64Counter("tour.visibility.commands",
		metric.WithDescription("Visibility commands issued")); err != nil {
		return nil, fmt.Errorf("creating visibility counter: %w", err)
	}
	return &mt, nil
}
