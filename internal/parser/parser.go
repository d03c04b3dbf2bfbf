// Package parser turns raw log byte streams into canonical events,
// persisting them in bounded batches. One parser exists per supported
// format; the ingest orchestrator picks which to run.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/store"
)

// DefaultBatchSize is how many events accumulate before a flush. Bounds
// memory on large uploads without paying one-write-per-row overhead.
const DefaultBatchSize = 500

// ErrNotCSV signals that the stream does not look like tabular CSV, so the
// caller may retry with a different parser.
var ErrNotCSV = errors.New("parser: input does not look like CSV")

// Result reports how many records a parse saw and how many it normalized.
// Malformed records count toward Total only.
type Result struct {
	Total  int
	Parsed int
}

// Parser consumes a byte stream and persists normalized events for uploadID.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, uploadID string) (Result, error)
}

// GeoLookup resolves an IP to geolocation, or nil when unknown.
// *geoip.Resolver satisfies it.
type GeoLookup interface {
	Lookup(ip string) *model.GeoInfo
}

// batchWriter accumulates events and flushes them to the store every
// batchSize records. A flush failure is fatal for the parse: the error
// propagates and no partial retry is attempted.
type batchWriter struct {
	ctx   context.Context
	store store.EventStore
	size  int
	buf   []*model.Event
}

func newBatchWriter(ctx context.Context, s store.EventStore, size int) *batchWriter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &batchWriter{ctx: ctx, store: s, size: size, buf: make([]*model.Event, 0, size)}
}

func (w *batchWriter) add(e *model.Event) error {
	w.buf = append(w.buf, e)
	if len(w.buf) >= w.size {
		return w.flush()
	}
	return nil
}

func (w *batchWriter) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	batch := w.buf
	w.buf = w.buf[:0]
	if err := w.store.CreateBatch(w.ctx, batch); err != nil {
		return fmt.Errorf("flush batch of %d: %w", len(batch), err)
	}
	return nil
}

func applyGeo(e *model.Event, g *model.GeoInfo) {
	if g == nil {
		return
	}
	e.Country = g.Country
	e.City = g.City
	e.Latitude = g.Latitude
	e.Longitude = g.Longitude
}
