package storage

import (
	"errors"

	"github.com/timewalk/tourguide/pkg/core"
)

// Fanout forwards every call to a list of backends. A failing backend does
// not stop the others; errors are joined.
type Fanout struct {
	backends []Backend
}

// NewFanout returns a Fanout over backends, skipping nil entries.
func NewFanout(backends ...Backend) *Fanout {
	f := &Fanout{}
	for _, b := range backends {
		if b != nil {
			f.backends = append(f.backends, b)
		}
	}
	return f
}

// Backends returns the wrapped backends.
func (f *Fanout) Backends() []Backend { return f.backends }

func (f *Fanout) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range f.backends {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Init() error {
	return f.each(Backend.Init)
}

func (f *Fanout) Close() error {
	return f.each(Backend.Close)
}

func (f *Fanout) StartSession(s core.TourSession) error {
	return f.each(func(b Backend) error { return b.StartSession(s) })
}

func (f *Fanout) EndSession(s core.TourSession) error {
	return f.each(func(b Backend) error { return b.EndSession(s) })
}

func (f *Fanout) RecordEvent(e core.TourEvent) error {
	return f.each(func(b Backend) error { return b.RecordEvent(e) })
}

func (f *Fanout) RecordSample(s core.TelemetrySample) error {
	return f.each(func(b Backend) error { return b.RecordSample(s) })
}

// Uploadables returns the wrapped backends that export files.
func (f *Fanout) Uploadables() []Uploadable {
	var out []Uploadable
	for _, b := range f.backends {
		if u, ok := b.(Uploadable); ok {
			out = append(out, u)
		}
	}
	return out
}
