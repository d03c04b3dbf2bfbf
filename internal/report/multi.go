package report

import (
	"context"
	"errors"
)

// MultiSink fans a report out to several sinks. A failing sink does not
// prevent delivery to the remaining ones; errors are joined.
type MultiSink struct {
	sinks []Sink
}

// NewMulti creates a MultiSink over the given sinks.
func NewMulti(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Deliver(ctx context.Context, r *Report) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Deliver(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
