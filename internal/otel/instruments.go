package otel

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/embedded"
	"go.opentelemetry.io/otel/metric/noop"
)

// meter implements the instruments the extension uses; every other
// instrument kind falls through to the embedded no-op meter.
type meter struct {
	noop.Meter
	provider *Provider
}

func (m *meter) Int64Counter(name string, _ ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return &int64Counter{name: name, store: m.provider.store}, nil
}

func (m *meter) Int64UpDownCounter(name string, _ ...metric.Int64UpDownCounterOption) (metric.Int64UpDownCounter, error) {
	return &int64UpDownCounter{name: name, store: m.provider.store}, nil
}

func (m *meter) Float64Histogram(name string, _ ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return &float64Histogram{name: name, store: m.provider.store}, nil
}

func (m *meter) Int64ObservableGauge(name string, _ ...metric.Int64ObservableGaugeOption) (metric.Int64ObservableGauge, error) {
	return &int64Gauge{name: name}, nil
}

func (m *meter) RegisterCallback(f metric.Callback, instruments ...metric.Observable) (metric.Registration, error) {
	gauges := make(map[metric.Observable]string, len(instruments))
	for _, inst := range instruments {
		if g, ok := inst.(*int64Gauge); ok {
			gauges[inst] = g.name
		}
	}
	return m.provider.register(callback{fn: f, gauges: gauges}), nil
}

type int64Counter struct {
	noop.Int64Counter
	name  string
	store *store
}

func (c *int64Counter) Add(_ context.Context, incr int64, opts ...metric.AddOption) {
	c.store.add(c.name, metric.NewAddConfig(opts).Attributes(), float64(incr))
}

type int64UpDownCounter struct {
	noop.Int64UpDownCounter
	name  string
	store *store
}

func (c *int64UpDownCounter) Add(_ context.Context, incr int64, opts ...metric.AddOption) {
	c.store.add(c.name, metric.NewAddConfig(opts).Attributes(), float64(incr))
}

// float64Histogram keeps count and sum only.
type float64Histogram struct {
	noop.Float64Histogram
	name  string
	store *store
}

func (h *float64Histogram) Record(_ context.Context, v float64, opts ...metric.RecordOption) {
	attrs := metric.NewRecordConfig(opts).Attributes()
	h.store.add(h.name+".count", attrs, 1)
	h.store.add(h.name+".sum", attrs, v)
}

type int64Gauge struct {
	noop.Int64ObservableGauge
	name string
}

type observer struct {
	embedded.Observer
	store  *store
	gauges map[metric.Observable]string
}

func (o *observer) ObserveInt64(obsrv metric.Int64Observable, value int64, opts ...metric.ObserveOption) {
	name, ok := o.gauges[obsrv]
	if !ok {
		return
	}
	o.store.set(name, metric.NewObserveConfig(opts).Attributes(), float64(value))
}

func (o *observer) ObserveFloat64(metric.Float64Observable, float64, ...metric.ObserveOption) {}

type registration struct {
	embedded.Registration
	unregister func()
}

func (r *registration) Unregister() error {
	r.unregister()
	return nil
}
