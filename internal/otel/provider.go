// Package otel provides an in-process OpenTelemetry meter provider. It
// aggregates counters, up-down counters, histograms and observable gauges in
// memory so the status monitor can log them; nothing is exported over the
// network.
package otel

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/embedded"
	"go.opentelemetry.io/otel/metric/noop"
)

// Config holds OTel configuration
type Config struct {
	Enabled     bool
	ServiceName string
}

// Measurement is one aggregated series.
type Measurement struct {
	Name       string
	Attributes attribute.Set
	Value      float64
}

// Provider is a metric.MeterProvider backed by an in-memory store.
// When disabled it hands out no-op meters.
type Provider struct {
	embedded.MeterProvider

	config Config
	store  *store

	mu        sync.Mutex
	meters    map[string]*meter
	callbacks map[int]callback
	nextID    int
	shutdown  bool
}

type callback struct {
	fn     metric.Callback
	gauges map[metric.Observable]string
}

// New creates a new OTel provider with the given configuration.
func New(cfg Config) *Provider {
	return &Provider{
		config:    cfg,
		store:     newStore(),
		meters:    make(map[string]*meter),
		callbacks: make(map[int]callback),
	}
}

// Install makes p the global meter provider. Meters obtained earlier through
// otel.Meter are rebound by the global delegate.
func (p *Provider) Install() {
	if p.config.Enabled {
		otel.SetMeterProvider(p)
	}
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}

// Meter returns a meter with the given name for creating metrics.
func (p *Provider) Meter(name string, _ ...metric.MeterOption) metric.Meter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.config.Enabled || p.shutdown {
		return noop.Meter{}
	}
	if m, ok := p.meters[name]; ok {
		return m
	}
	m := &meter{provider: p}
	p.meters[name] = m
	return m
}

// Snapshot runs gauge callbacks and returns all series sorted by name.
// Callback errors are joined; the snapshot is still returned.
func (p *Provider) Snapshot(ctx context.Context) ([]Measurement, error) {
	p.mu.Lock()
	cbs := make([]callback, 0, len(p.callbacks))
	for _, cb := range p.callbacks {
		cbs = append(cbs, cb)
	}
	p.mu.Unlock()

	var errs []error
	for _, cb := range cbs {
		if err := cb.fn(ctx, &observer{store: p.store, gauges: cb.gauges}); err != nil {
			errs = append(errs, err)
		}
	}
	return p.store.snapshot(), errors.Join(errs...)
}

// Shutdown drops callbacks and stops handing out live meters.
func (p *Provider) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	p.callbacks = make(map[int]callback)
	return nil
}

func (p *Provider) register(cb callback) metric.Registration {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.callbacks[id] = cb
	return &registration{unregister: func() {
		p.mu.Lock()
		delete(p.callbacks, id)
		p.mu.Unlock()
	}}
}

// store aggregates series keyed by name and encoded attributes.
type store struct {
	mu     sync.Mutex
	series map[string]*Measurement
}

func newStore() *store {
	return &store{series: make(map[string]*Measurement)}
}

func (s *store) entry(name string, attrs attribute.Set) *Measurement {
	key := name + "|" + attrs.Encoded(attribute.DefaultEncoder())
	m, ok := s.series[key]
	if !ok {
		m = &Measurement{Name: name, Attributes: attrs}
		s.series[key] = m
	}
	return m
}

func (s *store) add(name string, attrs attribute.Set, v float64) {
	s.mu.Lock()
	s.entry(name, attrs).Value += v
	s.mu.Unlock()
}

func (s *store) set(name string, attrs attribute.Set, v float64) {
	s.mu.Lock()
	s.entry(name, attrs).Value = v
	s.mu.Unlock()
}

func (s *store) snapshot() []Measurement {
	s.mu.Lock()
	out := make([]Measurement, 0, len(s.series))
	for _, m := range s.series {
		out = append(out, *m)
	}
	s.mu.Unlock()

	enc := attribute.DefaultEncoder()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Attributes.Encoded(enc) < out[j].Attributes.Encoded(enc)
	})
	return out
}
